// Package weather implements the OpenWeatherMap provider client. It is the
// only component that understands the provider's wire format; everything
// downstream consumes the normalized types.WeatherObservation.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"umbrella/internal/config"
	"umbrella/internal/external"
	"umbrella/internal/types"
)

// maxErrorBodyRead limits how much of an error response body is read for
// diagnostics.
const maxErrorBodyRead = 4096

// currentWeatherPath is the provider's current-conditions endpoint.
const currentWeatherPath = "/data/2.5/weather"

// reverseGeocodePath is the provider's reverse geocoding endpoint.
const reverseGeocodePath = "/geo/1.0/reverse"

// currentResponse mirrors the provider's current-conditions JSON body.
// Only the fields the decision flow consumes are mapped.
type currentResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Rain *struct {
		OneHour   float64 `json:"1h"`
		ThreeHour float64 `json:"3h"`
	} `json:"rain"`
	Name string `json:"name"`
}

// providerError mirrors the provider's error body. The cod field arrives as
// an int or a string depending on the endpoint, so it is left untyped.
type providerError struct {
	Cod     any    `json:"cod"`
	Message string `json:"message"`
}

// geocodeResponse mirrors one entry of the reverse geocoding response.
type geocodeResponse struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// Client fetches current weather observations from OpenWeatherMap.
type Client struct {
	base    *external.BaseClient
	baseURL string
	apiKey  types.SecretString
	logger  *slog.Logger
}

// NewClient creates a weather client from the provider configuration.
func NewClient(cfg config.WeatherConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &Client{
		base:    external.NewBaseClient(httpClient, "openweathermap", "Umbrella-Weather/1.0"),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

// NewClientWithBase creates a weather client with a caller-supplied base
// client. This constructor exists for testing.
func NewClientWithBase(base *external.BaseClient, baseURL string, apiKey types.SecretString, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{base: base, baseURL: baseURL, apiKey: apiKey, logger: logger}
}

// Fetch retrieves current conditions for the given coordinates and maps
// them into a normalized observation. The request is issued exactly once.
//
// Error mapping per the provider contract:
//   - missing API key        -> upstream_unauthorized (no request issued)
//   - HTTP 401               -> upstream_unauthorized
//   - HTTP 429               -> upstream_rate_limited
//   - any other non-2xx      -> upstream_provider_error
//   - transport/body failure -> upstream_unavailable / upstream_provider_error
func (c *Client) Fetch(ctx context.Context, lat, lon float64) (types.WeatherObservation, error) {
	if c.apiKey.Unmask() == "" {
		return types.WeatherObservation{}, types.NewAppError(
			types.ErrCodeUpstreamUnauthorized,
			"weather API key is not configured",
			nil,
		)
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("appid", c.apiKey.Unmask())
	q.Set("units", "metric")

	var body currentResponse
	if err := c.getJSON(ctx, currentWeatherPath, q, &body); err != nil {
		return types.WeatherObservation{}, err
	}

	return normalize(body), nil
}

// ReverseGeocode resolves coordinates to a "City, Region" display name.
// Failures are returned to the caller, which treats them as best-effort.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	if c.apiKey.Unmask() == "" {
		return "", types.NewAppError(
			types.ErrCodeUpstreamUnauthorized,
			"weather API key is not configured",
			nil,
		)
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("limit", "1")
	q.Set("appid", c.apiKey.Unmask())

	var entries []geocodeResponse
	if err := c.getJSON(ctx, reverseGeocodePath, q, &entries); err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}

	e := entries[0]
	if e.Name != "" && e.State != "" {
		return fmt.Sprintf("%s, %s", e.Name, e.State), nil
	}
	if e.Name != "" && e.Country != "" {
		return fmt.Sprintf("%s, %s", e.Name, e.Country), nil
	}
	return e.Name, nil
}

// getJSON issues a single GET through the base client and decodes the
// response into dst, applying the shared status-code error mapping.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, dst any) error {
	reqURL := c.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build provider request", err)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.mapStatus(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamProvider,
			"weather provider returned a malformed response",
			err,
		)
	}
	return nil
}

// mapStatus translates a non-2xx provider response into a typed error.
// The provider error message is captured for diagnostics but the API key
// never appears in it.
func (c *Client) mapStatus(resp *http.Response) error {
	var detail providerError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyRead))
	_ = json.Unmarshal(raw, &detail)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return types.NewAppError(
			types.ErrCodeUpstreamUnauthorized,
			"weather provider rejected the API key",
			fmt.Errorf("provider said: %s", detail.Message),
		)
	case http.StatusTooManyRequests:
		return types.NewAppError(
			types.ErrCodeUpstreamRateLimited,
			"weather provider rate limit exceeded",
			fmt.Errorf("provider said: %s", detail.Message),
		)
	default:
		return types.NewAppError(
			types.ErrCodeUpstreamProvider,
			fmt.Sprintf("weather provider returned %d", resp.StatusCode),
			fmt.Errorf("provider said: %s", detail.Message),
		)
	}
}

// normalize maps the provider body into the domain observation, enforcing
// the observation invariants. Out-of-range provider values are clamped:
// anomalies must never erase the decision.
func normalize(body currentResponse) types.WeatherObservation {
	obs := types.WeatherObservation{
		TemperatureC:    body.Main.Temp,
		HumidityPercent: body.Main.Humidity,
		PlaceName:       body.Name,
	}

	if len(body.Weather) > 0 {
		obs.ConditionMain = types.ConditionMain(body.Weather[0].Main)
	}

	// Rain volume: 1-hour window wins, else 3-hour, else 0.
	if body.Rain != nil {
		switch {
		case body.Rain.OneHour > 0:
			obs.RainVolumeMM = body.Rain.OneHour
		case body.Rain.ThreeHour > 0:
			obs.RainVolumeMM = body.Rain.ThreeHour
		}
	}
	if obs.RainVolumeMM < 0 {
		obs.RainVolumeMM = 0
	}

	if obs.HumidityPercent < 0 {
		obs.HumidityPercent = 0
	}
	if obs.HumidityPercent > 100 {
		obs.HumidityPercent = 100
	}

	return obs
}
