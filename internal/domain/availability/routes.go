package availability

import (
	"github.com/go-chi/chi/v5"
)

// Routes returns the availability router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/board", h.GetBoard)
	r.Post("/board/property", h.SelectProperty)
	r.Post("/board/date", h.SelectDate)
	r.Post("/board/refresh", h.Refresh)
	r.Put("/board/auto-refresh", h.SetAutoRefresh)
	r.Post("/board/signals", h.Signal)
	r.Get("/board/stream", h.Stream)

	r.Post("/rooms/{id}/toggle", h.Toggle)

	return r
}
