package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation      = fmt.Errorf("invalid payload")
	ErrNotFound        = fmt.Errorf("message not found")
	ErrForbidden       = fmt.Errorf("not the sender of this message")
	ErrUnauthenticated = fmt.Errorf("invalid or missing credentials")
	ErrStorage         = fmt.Errorf("storage failure")
)

// MapToHTTPStatus translates the error taxonomy to an HTTP status code.
// Both transport adapters derive their wire shape from the same sentinels,
// so ownership and state checks cannot drift between entry points.
func MapToHTTPStatus(err error) int {
	switch {
	case stderrors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case stderrors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case stderrors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case stderrors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Reason returns the stable machine-readable reason emitted in
// message.error frames.
func Reason(err error) string {
	switch {
	case stderrors.Is(err, ErrValidation):
		return "validation"
	case stderrors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case stderrors.Is(err, ErrForbidden):
		return "forbidden"
	case stderrors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
