package pipeline

import (
	"errors"
	"fmt"
)

// ValidationError marks claim input the pipeline refuses to process.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("pipeline: invalid %s: %s", e.Field, e.Reason)
}

// IsValidationError returns true if the error (or any error in its chain) is
// a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ConfigurationError marks a pipeline that was wired with missing or
// inconsistent components.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("pipeline: configuration %s: %s", e.Setting, e.Reason)
}

// IsConfigurationError returns true if the error (or any error in its chain)
// is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// ErrClaimNotFound is returned by lookups for claim numbers that were never
// processed.
var ErrClaimNotFound = errors.New("pipeline: claim not found")
