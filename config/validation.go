package config

import (
	"fmt"
	"time"
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of config validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Validate checks the config for invalid values.
func (c *Config) Validate() ValidationResult {
	var errors []ValidationError

	if c.ProfileAPI.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "profile_api.base_url",
			Message: "must not be empty",
		})
	}

	if c.ProfileAPI.Timeout < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "profile_api.timeout",
			Message: "must be at least 1 second",
		})
	}

	if c.Site.MarketURL == "" {
		errors = append(errors, ValidationError{
			Field:   "site.market_url",
			Message: "must not be empty",
		})
	}

	if c.Site.TasksURL == "" {
		errors = append(errors, ValidationError{
			Field:   "site.tasks_url",
			Message: "must not be empty",
		})
	}

	if c.Runner.Threads < 1 {
		errors = append(errors, ValidationError{
			Field:   "runner.threads",
			Message: "must be at least 1",
		})
	}

	if c.Runner.StallTimeout < 10*time.Second {
		errors = append(errors, ValidationError{
			Field:   "runner.stall_timeout",
			Message: "must be at least 10 seconds",
		})
	}

	if c.Runner.ResetHour < 0 || c.Runner.ResetHour > 23 {
		errors = append(errors, ValidationError{
			Field:   "runner.reset_hour",
			Message: "must be between 0 and 23",
		})
	}

	if c.Ledger.Path == "" {
		errors = append(errors, ValidationError{
			Field:   "ledger.path",
			Message: "must not be empty",
		})
	}

	if c.Control.Enabled && (c.Control.Port < 1 || c.Control.Port > 65535) {
		errors = append(errors, ValidationError{
			Field:   "control.port",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", c.Control.Port),
		})
	}

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}
