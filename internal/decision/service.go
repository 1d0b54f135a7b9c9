package decision

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"umbrella/internal/types"
)

// LocationSource is the subset of the location resolver the interactive
// flow needs.
type LocationSource interface {
	Resolve(ctx context.Context) (types.Coordinates, error)
	PlaceName(ctx context.Context, lat, lon float64) string
}

// WeatherSource is the subset of the weather client the interactive flow
// needs.
type WeatherSource interface {
	Fetch(ctx context.Context, lat, lon float64) (types.WeatherObservation, error)
}

// Service orchestrates the interactive "check weather now" flow:
// location -> observation -> recommendation. Unlike the scheduling flow,
// every failure is surfaced to the caller; there is no silent fallback.
type Service struct {
	location LocationSource
	weather  WeatherSource
	logger   *slog.Logger
}

// NewService creates a decision Service.
func NewService(location LocationSource, weather WeatherSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{location: location, weather: weather, logger: logger}
}

// CheckNow resolves the current location, fetches the current observation,
// and returns the umbrella recommendation.
//
// The weather fetch and the reverse geocode run concurrently; only the
// fetch can fail the call. A geocoded place name, when available, overrides
// the provider's best guess.
func (s *Service) CheckNow(ctx context.Context) (types.UmbrellaRecommendation, error) {
	coords, err := s.location.Resolve(ctx)
	if err != nil {
		return types.UmbrellaRecommendation{}, err
	}

	var (
		obs   types.WeatherObservation
		place string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o, fetchErr := s.weather.Fetch(gctx, coords.Lat, coords.Lon)
		if fetchErr != nil {
			return fetchErr
		}
		obs = o
		return nil
	})
	g.Go(func() error {
		// Best-effort; PlaceName never fails.
		place = s.location.PlaceName(gctx, coords.Lat, coords.Lon)
		return nil
	})
	if err := g.Wait(); err != nil {
		return types.UmbrellaRecommendation{}, err
	}

	if place != "" {
		obs.PlaceName = place
	}

	rec := Decide(obs)
	s.logger.InfoContext(ctx, "umbrella decision computed",
		"needs_umbrella", rec.NeedsUmbrella,
		"reason", rec.Reason,
		"condition", string(rec.ConditionMain),
	)
	return rec, nil
}
