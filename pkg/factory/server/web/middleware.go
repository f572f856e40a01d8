package web

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/solana-token-factory/factory/pkg/netutil"
	"github.com/solana-token-factory/factory/pkg/rate"
)

var errRateLimited = errors.New("Rate limit exceeded. Please try again later.")

// rateLimitMiddleware limits requests per client IP. Loopback clients are
// never limited.
func rateLimitMiddleware(log *logrus.Entry, limiter rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := netutil.GetClientIP(r)
			if netutil.IsLocalhost(ip) || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(ip)
			if err != nil {
				log.WithError(err).Warn("failure checking rate limit")
			} else if !allowed {
				log.WithField("ip", ip).Debug("request rate limited")
				if err := writeResponse(w, http.StatusTooManyRequests, NewGenericApiFailureResponseBody(errRateLimited)); err != nil {
					log.WithError(err).Info("failed to write body")
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
