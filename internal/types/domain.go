package types

import "time"

// ConditionMain is the provider's primary weather condition group. The set is
// open: providers may return values outside the constants below, and all
// downstream logic must treat unknown values as benign.
type ConditionMain string

const (
	ConditionClear        ConditionMain = "Clear"
	ConditionClouds       ConditionMain = "Clouds"
	ConditionRain         ConditionMain = "Rain"
	ConditionDrizzle      ConditionMain = "Drizzle"
	ConditionThunderstorm ConditionMain = "Thunderstorm"
	ConditionSnow         ConditionMain = "Snow"
	ConditionMist         ConditionMain = "Mist"
	ConditionFog          ConditionMain = "Fog"
)

// IsRaining reports whether the condition group indicates active
// precipitation.
func (c ConditionMain) IsRaining() bool {
	switch c {
	case ConditionRain, ConditionDrizzle, ConditionThunderstorm:
		return true
	}
	return false
}

// Coordinates is a geographic position with an optional human-readable
// place name produced by reverse geocoding.
type Coordinates struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	PlaceName string  `json:"place_name,omitempty"`
}

// WeatherObservation is a normalized snapshot of current conditions for one
// coordinate pair at one instant, derived from the provider response.
//
// Invariants (enforced by the weather client, assumed by the decision
// engine): RainVolumeMM >= 0 and HumidityPercent in [0,100]. Out-of-range
// provider values are clamped, never propagated.
type WeatherObservation struct {
	TemperatureC    float64       `json:"temperature_c"`
	HumidityPercent int           `json:"humidity_percent"`
	ConditionMain   ConditionMain `json:"condition_main"`
	RainVolumeMM    float64       `json:"rain_volume_mm"`
	PlaceName       string        `json:"place_name"`
}

// SafeDefaultObservation returns the observation substituted for weather
// data that could not be obtained. It always decides to "no umbrella
// needed" so that reminder scheduling never fails on a weather outage.
func SafeDefaultObservation() WeatherObservation {
	return WeatherObservation{
		ConditionMain: ConditionClear,
		PlaceName:     "",
	}
}

// UmbrellaRecommendation is the umbrella decision plus the human-readable
// explanation derived from a single observation. It is created fresh on
// every decision request and never mutated.
type UmbrellaRecommendation struct {
	NeedsUmbrella bool          `json:"needs_umbrella"`
	Headline      string        `json:"headline"`
	Reason        string        `json:"reason"`
	ConditionMain ConditionMain `json:"condition_main"`
	TemperatureC  float64       `json:"temperature_c"`
	PlaceName     string        `json:"place_name"`
}

// TemperatureUnit is the persisted display unit preference.
type TemperatureUnit string

const (
	UnitCelsius    TemperatureUnit = "C"
	UnitFahrenheit TemperatureUnit = "F"
)

// Valid reports whether the unit is one of the two supported values.
func (u TemperatureUnit) Valid() bool {
	return u == UnitCelsius || u == UnitFahrenheit
}

// NotificationPreference is the user-chosen reminder configuration.
// Persisted on every mutation; loaded with documented defaults when absent.
type NotificationPreference struct {
	Enabled bool `json:"enabled"`
	Hour    int  `json:"hour" validate:"min=0,max=23"`
	Minute  int  `json:"minute" validate:"min=0,max=59"`
}

// DefaultNotificationPreference is returned by the preference store when
// nothing is persisted or the persisted value cannot be parsed.
func DefaultNotificationPreference() NotificationPreference {
	return NotificationPreference{Enabled: false, Hour: 8, Minute: 0}
}

// ReminderContent is the fixed title/body pair registered with the host
// scheduler. Content is computed once at registration time and repeats
// verbatim on every firing.
type ReminderContent struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// DailyTrigger is the host scheduler's recurrence primitive: fire once per
// day at Hour:Minute until cancelled.
type DailyTrigger struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// NextAfter returns the first moment strictly after now at which the
// trigger fires: today at Hour:Minute, or the same time tomorrow when that
// moment has already passed. The recurring Hour/Minute fields are
// unaffected by the rollover.
func (t DailyTrigger) NextAfter(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// ReminderState describes the current reminder lifecycle for API consumers.
type ReminderState struct {
	Enabled    bool       `json:"enabled"`
	Hour       int        `json:"hour"`
	Minute     int        `json:"minute"`
	Handle     string     `json:"handle,omitempty"`
	NextFireAt *time.Time `json:"next_fire_at,omitempty"`
}

// ReminderMessage is the queue payload sent when a daily trigger fires.
// It is the contract between the host scheduler's delivery sink and the
// reminder worker.
type ReminderMessage struct {
	MessageID  string          `json:"message_id"`
	Handle     string          `json:"handle"`
	Content    ReminderContent `json:"content"`
	FiredAt    time.Time       `json:"fired_at"`
	RetryCount int             `json:"retry_count"`
}
