package tlsig

import (
	"crypto/ecdsa"
	"fmt"
)

type keySource int

const (
	keySourceNone keySource = iota
	keySourcePEM
	keySourceJWKS
)

// PublicKey is the verification key source: either a PEM public key or a
// JWKS document searched by the signature kid. Construct it with PEMKey or
// JWKSKey.
type PublicKey struct {
	source keySource
	data   []byte
}

// PEMKey returns a PublicKey from P-521 public key PEM data.
func PEMKey(pem []byte) PublicKey {
	return PublicKey{source: keySourcePEM, data: pem}
}

// JWKSKey returns a PublicKey from a JWKS document. The key is selected by
// the kid of the signature being verified.
func JWKSKey(jwks []byte) PublicKey {
	return PublicKey{source: keySourceJWKS, data: jwks}
}

// IsZero reports whether no key source is set.
func (k PublicKey) IsZero() bool {
	return k.source == keySourceNone
}

// resolve returns the public key to verify a signature issued by kid.
func (k PublicKey) resolve(kid string) (*ecdsa.PublicKey, error) {
	switch k.source {
	case keySourcePEM:
		return ParsePublicKeyPEM(k.data)
	case keySourceJWKS:
		return FindJWK(kid, k.data)
	default:
		return nil, fmt.Errorf("%w: no public key nor jwks supplied", ErrInvalidKey)
	}
}

// VerifyFunc checks signature over message, returning nil when valid. It
// is used to delegate verification to an external verifier.
type VerifyFunc func(message, signature []byte) error

// VerifyConfig configures Tl-Signature verification.
type VerifyConfig struct {
	// PublicKey is the verification key source. Required, except by
	// VerifyWith.
	PublicKey PublicKey

	// RequiredHeaders lists header names that must be covered by the
	// signature. Verification fails if the signature does not declare any
	// of them, even when the header is present on the request.
	RequiredHeaders []string

	// AllowV1 permits legacy body-only signatures in Verify. v1 signatures
	// do not authenticate method, path or headers.
	AllowV1 bool
}

// Verify verifies a Tl-Signature value against req, dispatching on the
// signature version. v1 body-only signatures are rejected with
// ErrVersionNotAllowed unless cfg.AllowV1 is set, in which case only the
// body is checked.
//
// Method and path are only checked for v2 signatures.
func Verify(value string, req Request, cfg VerifyConfig) error {
	token, err := parseForVerify(value)
	if err != nil {
		return err
	}

	if token.Header.Version() == VersionV1 {
		if !cfg.AllowV1 {
			return fmt.Errorf("%w: v1 signature not allowed", ErrVersionNotAllowed)
		}

		return verifyBodyOnly(token, req.Body, cfg.PublicKey)
	}

	if err := checkVerifyRequest(req); err != nil {
		return err
	}

	key, err := cfg.PublicKey.resolve(token.Header.Kid)
	if err != nil {
		return err
	}

	return verifyV2(token, req, cfg.RequiredHeaders, esVerifyFunc(key))
}

// VerifyV2 verifies a v2 Tl-Signature value against req. v1 signatures are
// always rejected with ErrVersionNotAllowed.
func VerifyV2(value string, req Request, cfg VerifyConfig) error {
	if err := checkVerifyRequest(req); err != nil {
		return err
	}

	token, err := parseForVerify(value)
	if err != nil {
		return err
	}

	if token.Header.Version() != VersionV2 {
		return fmt.Errorf("%w: v1 signature not allowed", ErrVersionNotAllowed)
	}

	key, err := cfg.PublicKey.resolve(token.Header.Kid)
	if err != nil {
		return err
	}

	return verifyV2(token, req, cfg.RequiredHeaders, esVerifyFunc(key))
}

// VerifyWith verifies a v2 Tl-Signature value against req using fn as the
// verification primitive. cfg.PublicKey and cfg.AllowV1 are ignored.
func VerifyWith(value string, req Request, cfg VerifyConfig, fn VerifyFunc) error {
	if fn == nil {
		return ErrNoVerifier
	}

	if err := checkVerifyRequest(req); err != nil {
		return err
	}

	token, err := parseForVerify(value)
	if err != nil {
		return err
	}

	if token.Header.Version() != VersionV2 {
		return fmt.Errorf("%w: v1 signature not allowed", ErrVersionNotAllowed)
	}

	return verifyV2(token, req, cfg.RequiredHeaders, fn)
}

// VerifyBodyOnly verifies a legacy v1 body-only Tl-Signature value. It
// authenticates the body alone. cfg.RequiredHeaders and cfg.AllowV1 are
// ignored.
func VerifyBodyOnly(value string, body []byte, cfg VerifyConfig) error {
	token, err := parseForVerify(value)
	if err != nil {
		return err
	}

	return verifyBodyOnly(token, body, cfg.PublicKey)
}

func checkVerifyRequest(req Request) error {
	if req.Method == "" {
		return fmt.Errorf("%w: method must be set", ErrInvalidRequest)
	}

	return req.checkPath()
}

// parseForVerify parses the token, then checks its algorithm and version
// in that order.
func parseForVerify(value string) (*Token, error) {
	token, err := ParseToken(value)
	if err != nil {
		return nil, err
	}

	if token.Header.Alg != AlgorithmES512 {
		return nil, fmt.Errorf("%w: unexpected header alg %q", ErrUnsupportedAlgorithm, token.Header.Alg)
	}

	if err := token.Header.checkVersion(); err != nil {
		return nil, err
	}

	return token, nil
}

func verifyBodyOnly(token *Token, body []byte, pk PublicKey) error {
	key, err := pk.resolve(token.Header.Kid)
	if err != nil {
		return err
	}

	return VerifyES512(key, signingInput(token.HeaderB64, body), token.Signature)
}

// verifyV2 reconstructs the v2 payload and verifies it with fn. When the
// first attempt fails it is retried once with the path trailing slash
// toggled; if that also fails the first error is returned.
func verifyV2(token *Token, req Request, required []string, fn VerifyFunc) error {
	headers, err := token.Header.FilterHeaders(req.Headers)
	if err != nil {
		return err
	}

	for _, name := range required {
		if !headers.Has(name) {
			return fmt.Errorf("%w: %s", ErrMissingRequiredHeader, name)
		}
	}

	payload := BuildPayload(req.Method, req.Path, headers, req.Body, false)

	err = fn(signingInput(token.HeaderB64, payload), token.Signature)
	if err == nil {
		return nil
	}

	path, addSlash := toggleTrailingSlash(req.Path)
	payload = BuildPayload(req.Method, path, headers, req.Body, addSlash)

	if retryErr := fn(signingInput(token.HeaderB64, payload), token.Signature); retryErr == nil {
		return nil
	}

	return err
}

func esVerifyFunc(key *ecdsa.PublicKey) VerifyFunc {
	return func(message, signature []byte) error {
		return VerifyES512(key, message, signature)
	}
}
