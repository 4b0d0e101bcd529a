package middleware

import (
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"sdp-backend/internal/apperr"
	"sdp-backend/internal/metrics"
	"sdp-backend/internal/ratelimit"
	"sdp-backend/pkg/utils"
)

// RateLimit caps requests per client IP. The bucket is shared by every route
// wrapped with the same scope. A failing store lets traffic through.
func RateLimit(limiter *ratelimit.Limiter, scope string, rule ratelimit.Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r)
			res, err := limiter.TakeIP(r.Context(), scope+":"+ip, rule)
			if err != nil {
				log.Printf("[RateLimit] Store error for %s, allowing request: %v", scope, err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				metrics.RateLimitRejectionsTotal.WithLabelValues(scope).Inc()
				retry := int(math.Ceil(res.RetryAfter(time.Now()).Seconds()))
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				utils.WriteError(w, r, apperr.ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
