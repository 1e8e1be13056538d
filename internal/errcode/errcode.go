package errcode

import (
	"errors"
	"net/http"
)

// Sentinel errors for the failure classes the handlers translate to HTTP.
// Services wrap these with fmt.Errorf("...: %w", ...) and handlers match
// with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrBadInput         = errors.New("bad input")
	ErrConflict         = errors.New("conflict")
	ErrTransportFailure = errors.New("transport failure")
)

// HTTPStatus maps a taxonomy error to a response status. Anything outside
// the taxonomy is a 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrBadInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrTransportFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
