package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/pelican/internal/domain"
	"github.com/MrSnakeDoc/pelican/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pelican/internal/logger"
)

type statusResponse struct {
	Results []domain.CheckResult `json:"results"`
}

// ServiceStatus returns the results of the most recent check.
func ServiceStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := d.Monitor.LastResults()
		if results == nil {
			results = []domain.CheckResult{}
		}
		writeJSON(w, http.StatusOK, statusResponse{Results: results})
	}
}

type triggerResponse struct {
	Message string `json:"message"`
}

// TriggerCheck requests an immediate check of every service.
func TriggerCheck(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.CheckTrigger != nil && d.CheckTrigger() {
			d.Logger.Info("manual check triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusAccepted, triggerResponse{Message: "check triggered"})
			return
		}

		d.Logger.Warn("check already pending",
			logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusTooManyRequests, triggerResponse{Message: "check already pending, please wait"})
	}
}
