package types

import (
	"errors"
	"fmt"
)

// ValidationError reports rejected input. Validation failures are surfaced
// immediately and never count against a stage's retry budget.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ProcessingError reports a stage logic failure. Processing failures are
// retried up to the per-stage limit.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// IsValidation reports whether err has a ValidationError in its chain.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Retryable reports whether a stage failure should be retried. Validation
// failures are final; everything else, external process timeouts included,
// counts against the retry budget.
func Retryable(err error) bool {
	return err != nil && !IsValidation(err)
}
