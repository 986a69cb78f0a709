// Package middleware contains HTTP middleware for the admin API.
package middleware

import (
	"encoding/json"
	"net/http"

	"golang.org/x/time/rate"

	"flowplane/pkg/api"
)

// RateLimitMiddleware applies a global token-bucket limit to the admin
// API. A limit of 0 disables limiting.
func RateLimitMiddleware(limit float64, burst int) func(http.Handler) http.Handler {
	var limiter *rate.Limiter
	if limit > 0 {
		limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil && !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(api.ErrorResponse{
					Error: "Too Many Requests",
					Code:  "429",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
