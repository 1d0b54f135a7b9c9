// Package handlers contains the HTTP handler implementations for the
// umbrella API: the interactive decision flow, the preference surface, and
// the reminder lifecycle.
package handlers

import (
	"context"
	"log/slog"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"umbrella/internal/core"
	"umbrella/internal/decision"
	"umbrella/internal/types"
)

// DecisionService is the interactive check-now contract. Defined locally to
// avoid tight coupling to the decision package's concrete service.
type DecisionService interface {
	CheckNow(ctx context.Context) (types.UmbrellaRecommendation, error)
}

// UnitStore reads the persisted display temperature unit.
type UnitStore interface {
	TemperatureUnit(ctx context.Context) types.TemperatureUnit
}

// DecisionHandler serves the interactive "check weather now" flow. Unlike
// the scheduling flow, every failure — permission, API key, rate limit,
// provider — is surfaced to the caller.
type DecisionHandler struct {
	service DecisionService
	units   UnitStore
	logger  *slog.Logger
}

// NewDecisionHandler creates a DecisionHandler.
func NewDecisionHandler(service DecisionService, units UnitStore, logger *slog.Logger) *DecisionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DecisionHandler{service: service, units: units, logger: logger}
}

// RegisterRoutes mounts the decision endpoint onto the mux.
func (h *DecisionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleCheckNow)
}

// decisionResponse is the recommendation plus the display temperature in
// the user's persisted unit.
type decisionResponse struct {
	NeedsUmbrella      bool    `json:"needs_umbrella"`
	Headline           string  `json:"headline"`
	Reason             string  `json:"reason"`
	ConditionMain      string  `json:"condition_main"`
	PlaceName          string  `json:"place_name"`
	TemperatureC       float64 `json:"temperature_c"`
	DisplayTemperature int     `json:"display_temperature"`
	TemperatureUnit    string  `json:"temperature_unit"`
}

// HandleCheckNow handles GET /v1/decision.
func (h *DecisionHandler) HandleCheckNow(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.CheckNow(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	unit := h.units.TemperatureUnit(r.Context())
	display := int(math.Round(rec.TemperatureC))
	if unit == types.UnitFahrenheit {
		display = decision.ToFahrenheit(rec.TemperatureC)
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: decisionResponse{
		NeedsUmbrella:      rec.NeedsUmbrella,
		Headline:           rec.Headline,
		Reason:             rec.Reason,
		ConditionMain:      string(rec.ConditionMain),
		PlaceName:          rec.PlaceName,
		TemperatureC:       rec.TemperatureC,
		DisplayTemperature: display,
		TemperatureUnit:    string(unit),
	}})
}
