package parser

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/labelguard/compliance-cli/internal/config"
	"github.com/labelguard/compliance-cli/internal/model"
	"github.com/labelguard/compliance-cli/pkg/anthropic"
)

const assistSystem = `You extract mandatory product declarations from e-commerce listing text.
Reply with a single JSON object and nothing else. Keys: price, net_quantity,
country_of_origin, manufacturer. Values are short strings copied from the
text, e.g. {"price": "Rs 199", "net_quantity": "250 g", "country_of_origin":
"India", "manufacturer": "Acme Foods"}. Omit any key you cannot find. Never
guess.`

// Assist is an optional extra candidate producer: a language model reads the
// seller text and proposes declarations, which are then re-parsed by the
// same field parsers so only well-formed values survive. Its candidates fan
// into resolution like any other source and never bypass it.
type Assist struct {
	client anthropic.Client
	cfg    config.AssistConfig
	parser *Parser
}

// NewAssist creates the assist producer. Returns nil when disabled.
func NewAssist(cfg config.AssistConfig, client anthropic.Client, p *Parser) *Assist {
	if !cfg.Enabled || client == nil {
		return nil
	}
	return &Assist{client: client, cfg: cfg, parser: p}
}

// Propose runs the model over the seller text and returns candidates tagged
// with the assist source. Failures degrade to zero candidates: assist is
// advisory, never a gate.
func (a *Assist) Propose(ctx context.Context, sellerText string) []model.FieldCandidate {
	if a == nil || strings.TrimSpace(sellerText) == "" {
		return nil
	}

	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.cfg.Model,
		MaxTokens: a.cfg.MaxTokens,
		System:    assistSystem,
		Messages:  []anthropic.Message{{Role: "user", Content: sellerText}},
	})
	if err != nil {
		zap.L().Warn("assist: extraction failed", zap.Error(err))
		return nil
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(extractJSON(resp.Text)), &fields); err != nil {
		zap.L().Warn("assist: unparseable reply", zap.Error(err))
		return nil
	}

	// Re-parse each proposed value with the pattern parsers: the model picks
	// the span, the grammar decides whether it is a usable value.
	var lines []model.TextLine
	for key, val := range fields {
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		switch key {
		case "manufacturer":
			lines = append(lines, model.TextLine{RawText: "Mfd by " + val, Confidence: a.cfg.BaseConf})
		case "country_of_origin":
			lines = append(lines, model.TextLine{RawText: "Country of Origin: " + val, Confidence: a.cfg.BaseConf})
		default:
			lines = append(lines, model.TextLine{RawText: val, Confidence: a.cfg.BaseConf})
		}
	}

	return a.parser.Parse(lines, model.SourceAssist)
}

// extractJSON trims any prose around the outermost JSON object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
