// Package apperr holds the error taxonomy shared by every service.
//
// Callers wrap a sentinel with context (fmt.Errorf("%w: ...", ErrConflict))
// and transports map the sentinel to a status code with HTTPStatus.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrTransport       = errors.New("transport error")
	ErrInternal        = errors.New("internal error")
)

// HTTPStatus maps err onto the Ledger/Gateway status codes. Transport and
// unexpected failures both surface as 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// FromStatus rebuilds a taxonomy error from a remote status code.
func FromStatus(code int, msg string) error {
	var base error
	switch code {
	case http.StatusBadRequest:
		base = ErrInvalidArgument
	case http.StatusConflict:
		base = ErrConflict
	case http.StatusNotFound:
		base = ErrNotFound
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		base = ErrTransport
	default:
		base = ErrInternal
	}
	if msg == "" {
		return base
	}
	return fmt.Errorf("%w: %s", base, msg)
}

// Message is the caller-facing text of a 4xx error: the detail after the
// sentinel prefix, or the sentinel itself when there is no detail.
func Message(err error) string {
	msg := err.Error()
	for _, s := range []error{ErrInvalidArgument, ErrConflict, ErrNotFound} {
		if !errors.Is(err, s) {
			continue
		}
		prefix := s.Error() + ": "
		if i := strings.Index(msg, prefix); i >= 0 {
			return msg[i+len(prefix):]
		}
		return s.Error()
	}
	return msg
}
