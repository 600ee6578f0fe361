package models

import "errors"

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("forbidden")
	ErrDataUnavailable   = errors.New("data store unavailable")
	ErrInvalidID         = errors.New("invalid id")
)
