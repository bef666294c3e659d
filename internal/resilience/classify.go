// Package resilience decides which marketplace fetch failures are worth a
// second attempt and schedules the retries. The classification is written for
// one workload: GET requests for listing pages and gallery images against
// marketplaces that rate-limit aggressively and sit behind flaky CDN
// gateways.
package resilience

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// StatusError is a fetch that reached the marketplace but came back outside
// the 2xx range. Whether it is worth retrying depends on the code alone.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Code)
}

// Retryable reports whether a fetch error is expected to clear on a later
// attempt. HTTP failures are judged by status code; network failures by the
// typed errors net/http surfaces. Everything else is permanent: a malformed
// URL or a 404 listing fails the same way every time.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return retryableStatus(se.Code)
	}

	// DNS: a blip is retryable, a name that does not exist is not.
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	// Client, dial, and TLS handshake timeouts all surface as net.Error.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Marketplaces drop keep-alive connections mid-flight under load.
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE)
}

// retryableStatus treats throttling and gateway flapping as recoverable.
// Other 4xx codes mean the request itself is wrong and will not heal.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
