package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/pelican/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pelican/internal/logger"
	redisstore "github.com/MrSnakeDoc/pelican/internal/store/redis"
)

type settingBody struct {
	Key   string `json:"key,omitempty"`
	Value string `json:"value"`
}

func settingsUnavailable(w http.ResponseWriter) {
	writeError(w, http.StatusServiceUnavailable, "settings storage disabled (no redis configured)")
}

// GetSetting returns one stored setting.
func GetSetting(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Store == nil {
			settingsUnavailable(w)
			return
		}
		key := chi.URLParam(r, "key")

		val, err := d.Store.GetSetting(r.Context(), key)
		if err != nil {
			writeSettingError(w, d, key, err)
			return
		}
		writeJSON(w, http.StatusOK, settingBody{Key: key, Value: val})
	}
}

// PutSetting stores one setting.
func PutSetting(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Store == nil {
			settingsUnavailable(w)
			return
		}
		key := chi.URLParam(r, "key")

		var body settingBody
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		if err := d.Store.SetSetting(r.Context(), key, body.Value); err != nil {
			writeSettingError(w, d, key, err)
			return
		}
		writeJSON(w, http.StatusOK, settingBody{Key: key, Value: body.Value})
	}
}

// DeleteSetting removes one setting.
func DeleteSetting(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Store == nil {
			settingsUnavailable(w)
			return
		}
		key := chi.URLParam(r, "key")

		if err := d.Store.DeleteSetting(r.Context(), key); err != nil {
			writeSettingError(w, d, key, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeSettingError(w http.ResponseWriter, d deps.Deps, key string, err error) {
	switch {
	case errors.Is(err, redisstore.ErrInvalidKey):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, redisstore.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		d.Logger.Error("settings storage error",
			logger.String("key", key),
			logger.Error(err))
		writeError(w, http.StatusBadGateway, "settings storage unavailable")
	}
}
