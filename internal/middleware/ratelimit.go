package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/keepsake/keepsake-api/internal/pkg/ratelimit"
	"github.com/keepsake/keepsake-api/internal/pkg/response"
)

// RateLimit rejects requests from clients that exceeded the sliding-window
// quota. A rejected request has no side effects; a limiter failure lets the
// request through rather than blocking publishes on Redis availability.
func RateLimit(limiter ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)

			allowed, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				log.Error().Err(err).Str("ip", ip).Msg("Rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				log.Warn().Str("ip", ip).Msg("Creation rate limit exceeded")
				response.TooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
