package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"umbrella/internal/core"
	"umbrella/internal/types"
)

// ReminderService is the full reminder lifecycle contract.
type ReminderService interface {
	Enable(ctx context.Context, hour, minute int) (string, error)
	Disable(ctx context.Context) error
	CancelAll(ctx context.Context) error
	State(ctx context.Context) types.ReminderState
}

// ReminderHandler serves the reminder lifecycle endpoints.
type ReminderHandler struct {
	service ReminderService
	logger  *slog.Logger
}

// NewReminderHandler creates a ReminderHandler.
func NewReminderHandler(service ReminderService, logger *slog.Logger) *ReminderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderHandler{service: service, logger: logger}
}

// RegisterRoutes mounts the reminder endpoints onto the mux.
func (h *ReminderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleState)
	r.Post("/enable", h.HandleEnable)
	r.Post("/disable", h.HandleDisable)
	r.Delete("/", h.HandleCancelAll)
}

type enableRequest struct {
	Hour   *int `json:"hour" validate:"required,min=0,max=23"`
	Minute *int `json:"minute" validate:"required,min=0,max=59"`
}

type enableResponse struct {
	Handle string `json:"handle"`
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
}

// HandleEnable handles POST /v1/reminders/enable.
func (h *ReminderHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	var req enableRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		core.Error(w, r, validationError(err))
		return
	}

	handle, err := h.service.Enable(r.Context(), *req.Hour, *req.Minute)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: enableResponse{
		Handle: handle,
		Hour:   *req.Hour,
		Minute: *req.Minute,
	}})
}

// HandleDisable handles POST /v1/reminders/disable. Disabling when nothing
// is registered succeeds.
func (h *ReminderHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Disable(r.Context()); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]bool{"enabled": false}})
}

// HandleCancelAll handles DELETE /v1/reminders.
func (h *ReminderHandler) HandleCancelAll(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CancelAll(r.Context()); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]bool{"cancelled": true}})
}

// HandleState handles GET /v1/reminders.
func (h *ReminderHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	state := h.service.State(r.Context())
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: state})
}
