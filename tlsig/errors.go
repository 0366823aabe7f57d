package tlsig

import "errors"

// Argument errors. These indicate a programming error by the caller and
// are returned before any signing or verification work is done.
var (
	// ErrInvalidPath is returned when a request path does not start with '/'.
	ErrInvalidPath = errors.New("tlsig: path must start with '/'")

	// ErrInvalidRequest is returned when a verifier request has no method.
	ErrInvalidRequest = errors.New("tlsig: invalid request")

	// ErrInvalidHeader is returned when a header to be signed has an invalid
	// name or a value containing control characters.
	ErrInvalidHeader = errors.New("tlsig: invalid header")

	// ErrNoKeyID is returned when a signature is requested without a kid.
	ErrNoKeyID = errors.New("tlsig: key id must not be empty")

	// ErrNoSigner is returned when SignWith is called with a nil SignFunc.
	ErrNoSigner = errors.New("tlsig: sign function must not be nil")

	// ErrNoVerifier is returned when VerifyWith is called with a nil
	// VerifyFunc.
	ErrNoVerifier = errors.New("tlsig: verify function must not be nil")
)

// Key material errors.
var (
	// ErrInvalidKey is returned when key material is invalid: bad PEM, a
	// curve other than P-521, an unparseable JWK or no JWK matching the kid.
	ErrInvalidKey = errors.New("tlsig: invalid key")
)

// Signing errors.
var (
	// ErrSigningFailed is returned when the signature primitive fails.
	ErrSigningFailed = errors.New("tlsig: signing failed")
)

// Verification errors.
var (
	// ErrMalformedSignature is returned when a Tl-Signature value cannot be
	// parsed: missing ".." delimiter, bad base64, bad header JSON or wrong
	// signature length.
	ErrMalformedSignature = errors.New("tlsig: malformed signature")

	// ErrUnsupportedAlgorithm is returned when the protected header alg is
	// not ES512.
	ErrUnsupportedAlgorithm = errors.New("tlsig: unsupported algorithm")

	// ErrVersionNotAllowed is returned when a v1 body-only signature is seen
	// and the verifier did not opt in to v1.
	ErrVersionNotAllowed = errors.New("tlsig: signature version not allowed")

	// ErrMissingDeclaredHeader is returned when the signature declares a
	// header in tl_headers that the verifier was not given.
	ErrMissingDeclaredHeader = errors.New("tlsig: declared header missing from request")

	// ErrMissingRequiredHeader is returned when a header required by the
	// verifier is not covered by the signature.
	ErrMissingRequiredHeader = errors.New("tlsig: required header not signed")

	// ErrVerificationFailed is returned when the signature does not match.
	ErrVerificationFailed = errors.New("tlsig: signature verification failed")
)
