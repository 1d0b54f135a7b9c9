// Package config defines the global configuration structure for the umbrella
// service. Configuration is loaded once at process initialization and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any invalid value causes the process to exit immediately on startup
// (fail fast).
package config

import (
	"time"

	"umbrella/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the umbrella service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"umbrella-service"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server   ServerConfig
	Database DatabaseConfig
	Weather  WeatherConfig
	Location LocationConfig
	Reminder ReminderConfig
	AWS      AWSConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"5"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// WeatherConfig holds weather provider access configuration.
//
// APIKey is deliberately NOT required: the interactive decision flow surfaces
// a missing key as an upstream_unauthorized error, and the scheduling flow
// degrades to the safe default observation. Startup must not fail on it.
type WeatherConfig struct {
	APIKey  SecretString  `envconfig:"WEATHER_API_KEY"`
	BaseURL string        `envconfig:"WEATHER_BASE_URL" default:"https://api.openweathermap.org" validate:"required,url"`
	Timeout time.Duration `envconfig:"WEATHER_TIMEOUT" default:"10s"`
}

// LocationConfig models the host location provider. ConsentGranted is the
// service analog of the OS location permission prompt: when false, every
// resolve attempt fails with permission_location_denied.
type LocationConfig struct {
	ConsentGranted bool    `envconfig:"LOCATION_CONSENT" default:"false"`
	Lat            float64 `envconfig:"LOCATION_LAT" validate:"min=-90,max=90"`
	Lon            float64 `envconfig:"LOCATION_LON" validate:"min=-180,max=180"`
}

// ReminderConfig holds reminder delivery configuration. ConsentGranted is
// the analog of the OS notification permission prompt.
type ReminderConfig struct {
	ConsentGranted bool          `envconfig:"NOTIFICATION_CONSENT" default:"false"`
	WebhookURL     string        `envconfig:"REMINDER_WEBHOOK_URL" validate:"omitempty,url"`
	UserAgent      string        `envconfig:"REMINDER_USER_AGENT" default:"Umbrella-Reminder/1.0"`
	Timeout        time.Duration `envconfig:"REMINDER_TIMEOUT" default:"10s"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region        string `envconfig:"AWS_REGION" default:"us-east-1"`
	ReminderQueue string `envconfig:"SQS_REMINDERS" validate:"omitempty,url"`

	// LocalStack support (empty in prod).
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}
