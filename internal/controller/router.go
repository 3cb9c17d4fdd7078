package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (c controller) GetRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(c.requestIdMw, c.loggingMw)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ws", c.handleWS)

		r.Post("/room-action", c.handleRoomAction)
		r.Get("/room-state", c.handleRoomState)

		r.Get("/generate", c.handleGenerate)
		r.Get("/stats", c.handleStats)
		r.Get("/debug", c.handleDebug)
		r.Post("/wipe", c.handleWipe)
		r.Get("/health", c.handleHealth)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	return r
}
