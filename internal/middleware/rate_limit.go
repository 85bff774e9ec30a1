package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/portfolio-gate/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds the coarse request throttle configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	IPConfig          *pkghttp.IPConfig
}

// RateLimitByIP throttles raw request volume per client address, keyed the same
// way the gate keys its attempt records. It counts every request, including
// token checks, and is independent of the attempt store.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientAddress(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Rate limit exceeded", nil)
		}),
	)
}
