package location

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"umbrella/internal/config"
	"umbrella/internal/types"
)

type mockGeocoder struct {
	name string
	err  error
}

func (m *mockGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	return m.name, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolve_ConsentDenied(t *testing.T) {
	r := NewResolver(config.LocationConfig{ConsentGranted: false, Lat: 1, Lon: 2}, nil, discardLogger())

	_, err := r.Resolve(context.Background())
	appErr, ok := err.(*types.AppError)
	if !ok || appErr.Code != types.ErrCodePermissionLocation {
		t.Fatalf("got %v, want permission_location_denied", err)
	}
}

func TestResolve_ReturnsConfiguredCoordinates(t *testing.T) {
	r := NewResolver(config.LocationConfig{ConsentGranted: true, Lat: 41.15, Lon: -8.6}, nil, discardLogger())

	coords, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coords.Lat != 41.15 || coords.Lon != -8.6 {
		t.Errorf("coords = %+v", coords)
	}
}

func TestPlaceName_BestEffort(t *testing.T) {
	cfg := config.LocationConfig{ConsentGranted: true}

	r := NewResolver(cfg, &mockGeocoder{name: "Porto, PT"}, discardLogger())
	if got := r.PlaceName(context.Background(), 1, 2); got != "Porto, PT" {
		t.Errorf("place = %q", got)
	}

	r = NewResolver(cfg, &mockGeocoder{err: errors.New("boom")}, discardLogger())
	if got := r.PlaceName(context.Background(), 1, 2); got != "" {
		t.Errorf("place = %q, want empty on geocode failure", got)
	}

	r = NewResolver(cfg, nil, discardLogger())
	if got := r.PlaceName(context.Background(), 1, 2); got != "" {
		t.Errorf("place = %q, want empty without a geocoder", got)
	}
}
