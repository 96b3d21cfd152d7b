package model

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	// ErrConfiguration signals an operator mistake (missing timezone,
	// missing template for a role). Write paths fail loudly on it.
	ErrConfiguration = errors.New("configuration error")
)
