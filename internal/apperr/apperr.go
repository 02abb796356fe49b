// Package apperr defines the error kinds the service layer reports.
// Handlers match them with errors.Is and translate to HTTP statuses.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrForbidden       = errors.New("forbidden")
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
)
