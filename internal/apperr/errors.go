// Package apperr defines the error kinds the HTTP layer knows how to surface.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationError is bad user input. Fields maps an input name to its message.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// Invalid returns a ValidationError with no field detail.
func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// InvalidField returns a ValidationError for a single input field.
func InvalidField(field, message string) error {
	return &ValidationError{
		Message: "Invalid input",
		Fields:  map[string]string{field: message},
	}
}

// NotFoundError is a missing product, cart item or order.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// Flash levels carried by a GatewayError.
const (
	LevelWarning = "warning"
	LevelError   = "error"
)

// GatewayError is a payment provider failure, or a precondition the payment
// step could not meet. Redirect is where the client should send the user.
type GatewayError struct {
	Level    string
	Message  string
	Redirect string
	Err      error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error { return e.Err }

// AuthorizationError is an attempt to act on another user's resource.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

func Forbidden(message string) error {
	return &AuthorizationError{Message: message}
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
