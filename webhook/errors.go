package webhook

import "errors"

var (
	// ErrNoKeySource is returned by Middleware when Config.Keys is nil.
	ErrNoKeySource = errors.New("webhook: key source is required")

	// ErrMissingSignature is passed to OnError when a request has no
	// Tl-Signature header.
	ErrMissingSignature = errors.New("webhook: missing Tl-Signature header")

	// ErrBodyTooLarge is passed to OnError when the request body exceeds
	// Config.MaxBodyBytes.
	ErrBodyTooLarge = errors.New("webhook: request body too large")

	// ErrBodyRead is passed to OnError when the request body cannot be read.
	ErrBodyRead = errors.New("webhook: request body read failed")
)
