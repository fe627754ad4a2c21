package domain

import "errors"

var (
	// ErrPreferencesNotFound is returned when the preference store was never initialised.
	ErrPreferencesNotFound = errors.New("preferences not found")
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCategory is returned for an unknown point-of-interest category.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrInvalidInput is returned for malformed request data.
	ErrInvalidInput = errors.New("invalid input")
)
