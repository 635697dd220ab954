package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks the configuration and returns ValidationErrors listing
// every problem, or nil.
func (c DocksideConfig) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(c.StateDir) == "" {
		errs.Add("stateDir", "is required")
	}
	if strings.TrimSpace(c.DefinitionsDir) == "" {
		errs.Add("definitionsDir", "is required")
	}
	if len(c.Sources) == 0 {
		errs.Add("sources", fmt.Sprintf("at least one source is required (or set %s)", SourcesEnv))
	}
	seen := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		field := fmt.Sprintf("sources[%d].url", i)
		if strings.TrimSpace(src.URL) == "" {
			errs.Add(field, "is required")
			continue
		}
		if seen[src.URL] {
			errs.Add(field, "duplicate source", src.URL)
		}
		seen[src.URL] = true
	}
	if c.UnitTimeout <= 0 {
		errs.Add("unitTimeout", "must be positive", c.UnitTimeout)
	}
	if c.Concurrency < 0 {
		errs.Add("concurrency", "must not be negative", c.Concurrency)
	}
	if strings.TrimSpace(c.Compose.Binary) == "" {
		errs.Add("compose.binary", "is required")
	}
	if c.History.Retain < 0 {
		errs.Add("history.retain", "must not be negative", c.History.Retain)
	}
	if c.Watch.Interval <= 0 {
		errs.Add("watch.interval", "must be positive", c.Watch.Interval)
	}
	if c.Watch.Debounce < 0 {
		errs.Add("watch.debounce", "must not be negative", c.Watch.Debounce)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
