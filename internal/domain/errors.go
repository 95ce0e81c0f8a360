package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrSubmissionInFlight is returned when a draft is submitted while a
	// previous submission of the same draft has not completed.
	ErrSubmissionInFlight = errors.New("submission already in flight")

	// ErrNotFound is returned when the platform has no resource for the request.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports draft or form fields that block a submission.
// Missing lists mandatory fields that are unset; Invalid maps set fields to
// the reason their value was refused.
type ValidationError struct {
	Missing []Field
	Invalid map[Field]string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		names := make([]string, len(e.Missing))
		for i, f := range e.Missing {
			names[i] = string(f)
		}
		parts = append(parts, "missing "+strings.Join(names, ", "))
	}
	if len(e.Invalid) > 0 {
		fields := make([]string, 0, len(e.Invalid))
		for f := range e.Invalid {
			fields = append(fields, string(f))
		}
		sort.Strings(fields)
		for _, f := range fields {
			parts = append(parts, fmt.Sprintf("%s: %s", f, e.Invalid[Field(f)]))
		}
	}
	if len(parts) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsMissing reports whether f is among the missing fields.
func (e *ValidationError) IsMissing(f Field) bool {
	for _, m := range e.Missing {
		if m == f {
			return true
		}
	}
	return false
}

func invalidField(f Field, reason string) *ValidationError {
	return &ValidationError{Invalid: map[Field]string{f: reason}}
}

// AuthenticationError reports credentials or a session the platform rejected.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	if e.Reason == "" {
		return "authentication failed"
	}
	return "authentication failed: " + e.Reason
}

// NetworkError reports a request that did not complete. The action that
// triggered it can be retried manually.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ConfigurationError reports a value the static display tables cannot map.
type ConfigurationError struct {
	Kind   string
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for %q: %s", e.Kind, e.Detail)
}
