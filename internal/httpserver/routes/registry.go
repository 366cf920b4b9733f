// Package routes mounts pelican's endpoints. Each file adds its group from init().
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/pelican/internal/httpserver/deps"
)

// Mount adds one group of routes to the router.
type Mount func(r chi.Router, d deps.Deps)

type mount struct {
	fn  Mount
	mws []func(http.Handler) http.Handler
}

var mounts []mount

// Register queues fn to be mounted, wrapped in mws when any are given.
func Register(fn Mount, mws ...func(http.Handler) http.Handler) {
	mounts = append(mounts, mount{fn: fn, mws: mws})
}

// RegisterAll mounts every queued group in registration order.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, m := range mounts {
		target := r
		if len(m.mws) > 0 {
			target = r.With(m.mws...)
		}
		m.fn(target, d)
	}
}
