package jwks

import "errors"

var (
	// ErrNoAllowedJKUs is returned by New when the allow-list is empty.
	ErrNoAllowedJKUs = errors.New("jwks: at least one allowed jku is required")

	// ErrJKUMissing is returned when a protected header has no jku.
	ErrJKUMissing = errors.New("jwks: jku missing from signature header")

	// ErrJKUNotAllowed is returned when a jku is not in the allow-list.
	ErrJKUNotAllowed = errors.New("jwks: jku not allowed")

	// ErrFetchFailed is returned when the key set cannot be retrieved.
	ErrFetchFailed = errors.New("jwks: fetch failed")
)
