package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/pelican/internal/domain"
	"github.com/MrSnakeDoc/pelican/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pelican/internal/logger"
)

type servicesResponse struct {
	Services []domain.ServiceDescriptor `json:"services"`
}

// ListServices returns the configured services.
func ListServices(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, servicesResponse{Services: d.Registry.List()})
	}
}

// AddService registers a new service and persists the list.
func AddService(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var desc domain.ServiceDescriptor
		if err := decodeJSON(w, r, &desc); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		if err := d.Registry.Add(desc); err != nil {
			switch {
			case errors.Is(err, domain.ErrServiceExists):
				writeError(w, http.StatusConflict, err.Error())
			case errors.Is(err, domain.ErrInvalidService):
				writeError(w, http.StatusBadRequest, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}

		persistServices(d)
		name := strings.TrimSpace(desc.Name)
		d.Logger.Info("service added",
			logger.String("service", name),
			logger.String("remote_ip", r.RemoteAddr))

		added, _ := d.Registry.Get(name)
		writeJSON(w, http.StatusCreated, added)
	}
}

// RemoveService deletes a service; its status history goes with it.
func RemoveService(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		if err := d.Registry.Remove(name); err != nil {
			if errors.Is(err, domain.ErrServiceNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		persistServices(d)
		d.Logger.Info("service removed",
			logger.String("service", name),
			logger.String("remote_ip", r.RemoteAddr))

		w.WriteHeader(http.StatusNoContent)
	}
}

// persistServices writes the registry to disk. The in-memory change stands even if this fails.
func persistServices(d deps.Deps) {
	if d.PersistServices == nil {
		return
	}
	if err := d.PersistServices(); err != nil {
		d.Logger.Warn("failed to persist services", logger.Error(err))
	}
}
