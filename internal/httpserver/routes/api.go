package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/pelican/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pelican/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/pelican/internal/httpserver/mw"
)

func init() { Register(registerAPI) }

func registerAPI(r chi.Router, d deps.Deps) {
	r.Route("/api", func(api chi.Router) {
		api.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
		api.Use(mw.EnforceHost(d.AllowedHosts, d.Logger))
		api.Use(mw.RateLimit(d.RateLimit, d.TrustProxy))

		api.Route("/services", func(s chi.Router) {
			s.Get("/", handlers.ListServices(d))
			s.Post("/", handlers.AddService(d))
			s.Get("/status", handlers.ServiceStatus(d))
			s.Post("/check", handlers.TriggerCheck(d))
			s.Delete("/{name}", handlers.RemoveService(d))
		})

		api.Route("/music", func(m chi.Router) {
			m.Get("/current", handlers.CurrentTrack(d))
			m.Put("/playlist", handlers.SetPlaylist(d))
			m.Post("/scan", handlers.ScanLibrary(d))
			m.Post("/next", handlers.NextTrack(d))
			m.Post("/prev", handlers.PrevTrack(d))
			m.Post("/select", handlers.SelectTrack(d))
			m.Post("/shuffle", handlers.ToggleShuffle(d))
		})

		api.Route("/settings", func(st chi.Router) {
			st.Get("/{key}", handlers.GetSetting(d))
			st.Put("/{key}", handlers.PutSetting(d))
			st.Delete("/{key}", handlers.DeleteSetting(d))
		})
	})
}
