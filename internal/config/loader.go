// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs in daily-trigger math.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Validate the struct using go-playground/validator.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig.
type ConfigError struct {
	Stage   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoadConfig loads and validates the service configuration.
//
// godotenv.Load silently succeeds when no .env file exists in the working
// directory and does NOT override existing environment variables, so the
// OS environment always wins.
func LoadConfig() (*Config, error) {
	// Daily-trigger arithmetic depends on a stable process timezone.
	time.Local = time.UTC

	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Stage:   "envconfig",
			Message: "failed to process environment variables",
			Err:     err,
		}
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, &ConfigError{
			Stage:   "validate",
			Message: "configuration failed validation",
			Err:     err,
		}
	}

	return &cfg, nil
}
