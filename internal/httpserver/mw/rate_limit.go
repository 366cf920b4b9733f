package mw

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/MrSnakeDoc/pelican/internal/utils"
)

// RateLimit limits each client IP to perMinute requests. Zero or less disables the limit.
func RateLimit(perMinute int, trustProxy bool) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return passthrough
	}

	return httprate.Limit(
		perMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return utils.ClientIP(r, trustProxy), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
}
