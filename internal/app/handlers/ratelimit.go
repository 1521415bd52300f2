package handlers

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit guards the staff verification endpoints: pickup codes live in a
// 6-digit space, so lookup attempts must be throttled.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
