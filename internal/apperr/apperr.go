// Package apperr defines the failure taxonomy shared by services, the
// storage adapter, and the HTTP layer. Every failure that crosses a package
// boundary is classified with a Kind so handlers can map it to a status
// without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	// Internal is the zero value; anything unclassified lands here.
	Internal Kind = iota
	// InvalidInput marks malformed or semantically invalid request data.
	InvalidInput
	// Unauthenticated marks a missing, invalid, or expired token, or a
	// failed credential check.
	Unauthenticated
	// Forbidden marks a valid identity with insufficient role or ownership.
	Forbidden
	// NotFound marks an absent resource.
	NotFound
	// Conflict marks a uniqueness violation such as a duplicate email.
	Conflict
	// Upstream marks a row-store call that failed or returned an
	// unexpected shape.
	Upstream
	// UpstreamTimeout marks a row-store call that exceeded its deadline.
	UpstreamTimeout
)

// Error pairs a Kind with a caller-safe message and an optional wrapped
// cause. The cause is for server-side logs; the message is what clients see.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error with a caller-safe message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds a classified error with a formatted caller-safe message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error while keeping it for diagnostics.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind of err, or Internal when it carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the caller-safe message for err. Unclassified errors get
// a generic message so internals never leak to clients.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// HTTPStatus maps a Kind to the status code the HTTP layer responds with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case InvalidInput:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Upstream:
		return http.StatusBadGateway
	case UpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
