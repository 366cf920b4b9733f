package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/pelican/internal/httpserver/deps"
)

type componentStatus struct {
	OK             bool   `json:"ok"`
	ServicesLoaded *int   `json:"services_loaded,omitempty"`
	LastReload     string `json:"last_reload,omitempty"`
	Mode           string `json:"mode,omitempty"`
	Impact         string `json:"impact,omitempty"`
	Error          string `json:"error,omitempty"`
}

type readyzResponse struct {
	Ready      bool                       `json:"ready"`
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Readyz reports whether the service list is loaded and persistence is usable.
// Redis being down degrades pelican but does not make it unready.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count := d.Registry.Count()
		lastReload := d.Registry.LastReload()
		lastReloadStr := "never"
		if !lastReload.IsZero() {
			lastReloadStr = lastReload.Format(time.RFC3339)
		}

		components := map[string]componentStatus{
			"services": {
				OK:             !lastReload.IsZero(),
				ServicesLoaded: &count,
				LastReload:     lastReloadStr,
			},
			"redis": checkRedis(r.Context(), d),
		}

		resp := readyzResponse{
			Ready:      components["services"].OK,
			Mode:       determineMode(components),
			Components: components,
		}

		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

func determineMode(components map[string]componentStatus) string {
	if !components["services"].OK {
		return "critical"
	}
	if redis := components["redis"]; !redis.OK && redis.Mode != "disabled" {
		return "degraded"
	}
	return "ok"
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.Store == nil {
		return componentStatus{
			OK:     true,
			Mode:   "disabled",
			Impact: "history-not-persisted",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.Store.Ping(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "history-not-persisted",
			Error:  err.Error(),
		}
	}

	return componentStatus{
		OK:   true,
		Mode: "optimal",
	}
}
