// Package domainerrors provides coded errors for the domain layer.
//
// Services return these so transport layers can translate failures into
// consistent responses without inspecting error strings. Stores return
// sentinel errors (pkg/platform/sentinel); services translate them into
// coded errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain failure.
type Code string

const (
	// CodeValidation marks malformed or missing required fields on a
	// domain operation (the caller can fix the request).
	CodeValidation Code = "validation"
	// CodeBadRequest marks a request the transport layer could not even
	// hand to the domain (undecodable body, bad path parameter).
	CodeBadRequest Code = "bad_request"
	// CodeInvalidInput marks a value that failed primitive parsing
	// (IDs, enums) at a trust boundary.
	CodeInvalidInput Code = "invalid_input"
	// CodeUnauthorized marks a missing or unverifiable caller identity.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks a role or status precondition failure: the
	// caller is known but not allowed to perform the operation.
	CodeForbidden Code = "forbidden"
	// CodeNotFound marks an operation referencing a nonexistent record.
	CodeNotFound Code = "not_found"
	// CodeConflict marks an attempt to create a record that already
	// exists (duplicate profile, reused email).
	CodeConflict Code = "conflict"
	// CodeInvalidState marks an operation attempted on a workflow entity
	// that is not in an eligible state for the transition.
	CodeInvalidState Code = "invalid_state"
	// CodeInvariantViolation marks a broken domain invariant detected by
	// a model constructor or transition guard.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeTimeout marks an aborted operation due to deadline or cancellation.
	CodeTimeout Code = "timeout"
	// CodeInternal marks unexpected infrastructure failures.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. It optionally wraps a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err
// returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		de = nil
	}
	return false
}

// Is is a readability alias for HasCode at handler call sites.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code carried by err, or CodeInternal if
// err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HTTPStatus maps a code to the HTTP status the transport layer should
// respond with.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidState:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
