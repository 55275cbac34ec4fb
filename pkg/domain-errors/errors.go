// Package domainerrors defines the coded error vocabulary services return to
// transports. Stores return pkg/platform/sentinel errors; services translate
// those into these codes, and handlers translate codes into HTTP statuses.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain outcome.
type Code string

const (
	// CodeInvalidInput rejects malformed identity or request fields before
	// any shared state is touched.
	CodeInvalidInput Code = "invalid_input"
	// CodeInvalidCapacity rejects a requested capacity outside the
	// configured bounds.
	CodeInvalidCapacity Code = "invalid_capacity"
	// CodeDuplicateBooking means the traveler already holds a membership in
	// some group for this departure.
	CodeDuplicateBooking Code = "duplicate_booking"
	// CodeGroupFull means the capacity race was lost; the group has no open
	// slot.
	CodeGroupFull Code = "group_full"
	// CodeNotFound means the referenced entity does not exist.
	CodeNotFound Code = "not_found"
	// CodeNotJoinable means the group exists but is expired and accepts no
	// further members.
	CodeNotJoinable Code = "not_joinable"
	// CodeStoreUnavailable is a transient storage fault; the whole operation
	// is safe to retry because it either fully applied or did not.
	CodeStoreUnavailable Code = "store_unavailable"
	// CodeInternal is everything else.
	CodeInternal Code = "internal"
)

// Error carries a code, a caller-facing message, and an optional cause.
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

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the caller-facing message, defaulting to a generic one
// so internal details never leak through transports.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code to its transport status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeInvalidCapacity:
		return http.StatusUnprocessableEntity
	case CodeDuplicateBooking, CodeGroupFull, CodeNotJoinable:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
