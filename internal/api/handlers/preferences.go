package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"umbrella/internal/core"
	"umbrella/internal/types"
)

var validate = validator.New()

// PreferenceService is the persistence side of the preference surface.
type PreferenceService interface {
	Load(ctx context.Context) types.NotificationPreference
	Save(ctx context.Context, pref types.NotificationPreference) error
	TemperatureUnit(ctx context.Context) types.TemperatureUnit
	SetTemperatureUnit(ctx context.Context, unit types.TemperatureUnit) error
}

// ReminderLifecycle is the scheduling side: saving an enabled preference
// (re)registers the daily trigger, saving a disabled one cancels it.
type ReminderLifecycle interface {
	Enable(ctx context.Context, hour, minute int) (string, error)
	Disable(ctx context.Context) error
}

// PreferenceHandler serves the reminder preference and temperature unit
// endpoints.
type PreferenceHandler struct {
	prefs     PreferenceService
	lifecycle ReminderLifecycle
	logger    *slog.Logger
}

// NewPreferenceHandler creates a PreferenceHandler.
func NewPreferenceHandler(prefs PreferenceService, lifecycle ReminderLifecycle, logger *slog.Logger) *PreferenceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreferenceHandler{prefs: prefs, lifecycle: lifecycle, logger: logger}
}

// RegisterRoutes mounts the preference endpoints onto the mux.
func (h *PreferenceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleGet)
	r.Put("/", h.HandlePut)
	r.Put("/temperature-unit", h.HandlePutTemperatureUnit)
}

type preferenceResponse struct {
	Enabled         bool   `json:"enabled"`
	Hour            int    `json:"hour"`
	Minute          int    `json:"minute"`
	TemperatureUnit string `json:"temperature_unit"`
}

// HandleGet handles GET /v1/preferences.
func (h *PreferenceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	pref := h.prefs.Load(r.Context())
	unit := h.prefs.TemperatureUnit(r.Context())
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: preferenceResponse{
		Enabled:         pref.Enabled,
		Hour:            pref.Hour,
		Minute:          pref.Minute,
		TemperatureUnit: string(unit),
	}})
}

type putPreferenceRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
	Hour    *int  `json:"hour" validate:"required,min=0,max=23"`
	Minute  *int  `json:"minute" validate:"required,min=0,max=59"`
}

// HandlePut handles PUT /v1/preferences. The preference is persisted first,
// then the reminder registration is driven to match it: enabled replaces
// any existing registration, disabled cancels it.
func (h *PreferenceHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	var req putPreferenceRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		core.Error(w, r, validationError(err))
		return
	}

	pref := types.NotificationPreference{Enabled: *req.Enabled, Hour: *req.Hour, Minute: *req.Minute}
	if err := h.prefs.Save(r.Context(), pref); err != nil {
		core.Error(w, r, err)
		return
	}

	if pref.Enabled {
		if _, err := h.lifecycle.Enable(r.Context(), pref.Hour, pref.Minute); err != nil {
			core.Error(w, r, err)
			return
		}
	} else {
		if err := h.lifecycle.Disable(r.Context()); err != nil {
			core.Error(w, r, err)
			return
		}
	}

	unit := h.prefs.TemperatureUnit(r.Context())
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: preferenceResponse{
		Enabled:         pref.Enabled,
		Hour:            pref.Hour,
		Minute:          pref.Minute,
		TemperatureUnit: string(unit),
	}})
}

type putUnitRequest struct {
	Unit string `json:"unit" validate:"required"`
}

// HandlePutTemperatureUnit handles PUT /v1/preferences/temperature-unit.
func (h *PreferenceHandler) HandlePutTemperatureUnit(w http.ResponseWriter, r *http.Request) {
	var req putUnitRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	unit := types.TemperatureUnit(req.Unit)
	if !unit.Valid() {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidUnit, "unit must be C or F", nil))
		return
	}
	if err := h.prefs.SetTemperatureUnit(r.Context(), unit); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]string{"unit": string(unit)}})
}

// validationError converts a validator failure into the field-level
// validation error codes.
func validationError(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return types.NewAppError(types.ErrCodeValidationInvalidJSON, "invalid request body", err)
	}
	fe := errs[0]
	switch fe.Field() {
	case "Hour":
		if fe.Tag() == "required" {
			return types.NewAppError(types.ErrCodeValidationMissingField, "hour is required", nil)
		}
		return types.NewAppError(types.ErrCodeValidationInvalidHour, "hour must be between 0 and 23", nil)
	case "Minute":
		if fe.Tag() == "required" {
			return types.NewAppError(types.ErrCodeValidationMissingField, "minute is required", nil)
		}
		return types.NewAppError(types.ErrCodeValidationInvalidMin, "minute must be between 0 and 59", nil)
	case "Enabled":
		return types.NewAppError(types.ErrCodeValidationMissingField, "enabled is required", nil)
	}
	return types.NewAppError(types.ErrCodeValidationInvalidJSON, "invalid request body", err)
}
