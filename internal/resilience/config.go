package resilience

import (
	"time"

	"go.uber.org/zap"

	"github.com/labelguard/compliance-cli/internal/config"
)

// FromMarketplaceConfig builds the retry schedule for listing fetches. The
// marketplace config only exposes an attempt count and an overall timeout;
// the backoff shape keeps the defaults. Every retry is logged with the
// attempt number so throttled batch runs are visible in the output.
func FromMarketplaceConfig(cfg config.MarketplaceConfig) RetryConfig {
	out := DefaultRetryConfig()
	if cfg.MaxRetries >= 0 {
		out.MaxAttempts = cfg.MaxRetries + 1
	}
	if cfg.TimeoutSecs > 0 {
		out.MaxBackoff = time.Duration(cfg.TimeoutSecs) * time.Second
	}
	out.OnRetry = func(attempt int, err error) {
		zap.L().Warn("marketplace: retrying fetch",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return out
}
