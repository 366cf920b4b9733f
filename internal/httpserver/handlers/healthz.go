package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/pelican/internal/httpserver/deps"
)

// healthzResponse reports liveness plus build info. It never touches Redis or the network.
type healthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Services      int    `json:"services"`
	Version       string `json:"version,omitempty"`
	Commit        string `json:"commit,omitempty"`
	BuildDate     string `json:"build_date,omitempty"`
	GoVersion     string `json:"go_version,omitempty"`
}

func Healthz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := 0
		if d.Registry != nil {
			services = len(d.Registry.List())
		}
		writeJSON(w, http.StatusOK, healthzResponse{
			Status:        "ok",
			UptimeSeconds: int64(time.Since(d.StartTime) / time.Second),
			Services:      services,
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
		})
	}
}
