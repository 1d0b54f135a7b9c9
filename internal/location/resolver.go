// Package location wraps the host location provider. The service analog of
// the device location prompt is a consent flag in configuration: when the
// flag is off, every resolve attempt fails with a permission error, exactly
// as a denied OS prompt would.
package location

import (
	"context"
	"log/slog"

	"umbrella/internal/config"
	"umbrella/internal/types"
)

// Geocoder resolves coordinates to a human-readable place name.
// Implemented by the weather provider client.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// Resolver produces the current coordinates and, best-effort, a display
// name for them.
type Resolver struct {
	cfg      config.LocationConfig
	geocoder Geocoder
	logger   *slog.Logger
}

// NewResolver creates a Resolver. geocoder may be nil, in which case place
// name resolution always degrades to the empty string.
func NewResolver(cfg config.LocationConfig, geocoder Geocoder, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{cfg: cfg, geocoder: geocoder, logger: logger}
}

// Resolve returns the current coordinates. It fails with
// permission_location_denied when location consent has not been granted.
// The returned PlaceName is empty; callers that want a display name use
// PlaceName, which is deliberately separate so it can run concurrently
// with the weather fetch.
func (r *Resolver) Resolve(ctx context.Context) (types.Coordinates, error) {
	if !r.cfg.ConsentGranted {
		return types.Coordinates{}, types.NewAppError(
			types.ErrCodePermissionLocation,
			"location access has not been granted",
			nil,
		)
	}
	return types.Coordinates{Lat: r.cfg.Lat, Lon: r.cfg.Lon}, nil
}

// PlaceName reverse-geocodes the coordinates to a "City, Region" name.
// Geocoding is strictly best-effort: any failure degrades to the empty
// string (the weather provider's own place name wins downstream) and is
// logged at warn level only.
func (r *Resolver) PlaceName(ctx context.Context, lat, lon float64) string {
	if r.geocoder == nil {
		return ""
	}
	name, err := r.geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		r.logger.WarnContext(ctx, "reverse geocoding failed", "error", err)
		return ""
	}
	return name
}
