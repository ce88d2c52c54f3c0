package availability

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/roomdesk/roomdesk-api/internal/domain/booking"
	"github.com/roomdesk/roomdesk-api/internal/pkg/response"
	"github.com/roomdesk/roomdesk-api/internal/pkg/validator"
)

// Handler exposes the dashboard over HTTP
type Handler struct {
	engine *Engine
	store  *Store
	hub    *Hub
}

// NewHandler creates the availability handler
func NewHandler(engine *Engine, store *Store, hub *Hub) *Handler {
	return &Handler{
		engine: engine,
		store:  store,
		hub:    hub,
	}
}

// GetBoard handles GET /board
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	response.OK(w, NewBoardView(h.store.Snapshot()))
}

// SelectProperty handles POST /board/property
func (h *Handler) SelectProperty(w http.ResponseWriter, r *http.Request) {
	var req SelectPropertyRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	if err := h.engine.SelectProperty(r.Context(), *req.Index); err != nil {
		if errors.Is(err, ErrPropertyOutOfRange) {
			response.BadRequest(w, err.Error())
			return
		}
		response.ServiceUnavailable(w, "REMOTE_FETCH_FAILED", err.Error())
		return
	}
	response.OK(w, NewBoardView(h.store.Snapshot()))
}

// SelectDate handles POST /board/date
func (h *Handler) SelectDate(w http.ResponseWriter, r *http.Request) {
	var req SelectDateRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	date, err := booking.ParseDate(req.Date)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.engine.SelectDate(r.Context(), date); err != nil {
		response.ServiceUnavailable(w, "REMOTE_FETCH_FAILED", err.Error())
		return
	}
	response.OK(w, NewBoardView(h.store.Snapshot()))
}

// Toggle handles POST /rooms/{id}/toggle
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	roomID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid room ID")
		return
	}

	outcome, err := h.engine.Toggle(r.Context(), roomID)
	if err != nil {
		switch {
		case errors.Is(err, ErrOffline):
			response.ServiceUnavailable(w, "OFFLINE", err.Error())
		case errors.Is(err, ErrRoomNotFound):
			response.NotFound(w, err.Error())
		default:
			response.ServiceUnavailable(w, "TOGGLE_FAILED", err.Error())
		}
		return
	}
	response.OK(w, outcome)
}

// Refresh handles POST /board/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Refresh(r.Context()); err != nil {
		response.ServiceUnavailable(w, "REMOTE_FETCH_FAILED", err.Error())
		return
	}
	response.OK(w, NewBoardView(h.store.Snapshot()))
}

// SetAutoRefresh handles PUT /board/auto-refresh
func (h *Handler) SetAutoRefresh(w http.ResponseWriter, r *http.Request) {
	var req AutoRefreshRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	h.engine.SetAutoRefresh(*req.Enabled)
	response.OK(w, NewBoardView(h.store.Snapshot()))
}

// Signal handles POST /board/signals
func (h *Handler) Signal(w http.ResponseWriter, r *http.Request) {
	var req SignalRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	h.engine.Signal(r.Context(), req.Type)
	response.OK(w, map[string]string{"status": "ok"})
}

// Stream handles GET /board/stream
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	h.hub.HandleWS(w, r)
}
