package tlsig

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"
)

// DefaultMethod is the request method signed when Request.Method is empty.
const DefaultMethod = "POST"

// Request holds the parts of an HTTP request covered by a signature.
type Request struct {
	// Method is the request method. Signing defaults it to "POST";
	// verification requires it.
	Method string

	// Path is the absolute request path, starting with '/'.
	Path string

	// Headers are the request headers. When signing, every header is
	// signed in insertion order. When verifying, any superset of the signed
	// headers may be given in any order and case.
	Headers *Headers

	// Body is the full request body, exactly as sent.
	Body []byte
}

// checkPath validates the path argument.
func (r Request) checkPath() error {
	if !strings.HasPrefix(r.Path, "/") {
		return fmt.Errorf("%w: got %q", ErrInvalidPath, r.Path)
	}

	return nil
}

// SignFunc signs message and returns the base64url encoded signature
// segment. It is used to delegate signing to an external signer; the
// result is appended to the token verbatim.
type SignFunc func(ctx context.Context, message []byte) (string, error)

// KeySignFunc returns a SignFunc signing with a local P-521 private key.
func KeySignFunc(key *ecdsa.PrivateKey) SignFunc {
	return func(_ context.Context, message []byte) (string, error) {
		sig, err := SignES512(key, message)
		if err != nil {
			return "", err
		}

		return encodeSegment(sig), nil
	}
}

// SignConfig configures Tl-Signature generation.
type SignConfig struct {
	// KeyID is the signing key id placed in the kid header. Required.
	KeyID string

	// PrivateKey is the P-521 signing key. Required by Sign and
	// SignBodyOnly; unused by SignWith.
	PrivateKey *ecdsa.PrivateKey

	// JKU is an optional JWKS URL placed in the v2 protected header.
	JKU string
}

// NewSignConfig parses a P-521 private key PEM and returns a SignConfig
// for kid.
func NewSignConfig(kid string, privateKeyPEM []byte) (SignConfig, error) {
	key, err := ParsePrivateKeyPEM(privateKeyPEM)
	if err != nil {
		return SignConfig{}, err
	}

	return SignConfig{KeyID: kid, PrivateKey: key}, nil
}

// Sign produces a v2 Tl-Signature value covering method, path, headers
// and body of req.
func Sign(req Request, cfg SignConfig) (string, error) {
	if cfg.PrivateKey == nil {
		return "", fmt.Errorf("%w: private key must not be nil", ErrInvalidKey)
	}

	if err := checkCurve(cfg.PrivateKey.Curve); err != nil {
		return "", err
	}

	return SignWith(context.Background(), req, cfg, KeySignFunc(cfg.PrivateKey))
}

// SignWith produces a v2 Tl-Signature value, handing the bytes to sign to
// fn. fn is called exactly once; its result is not cached. cfg.PrivateKey
// is ignored.
func SignWith(ctx context.Context, req Request, cfg SignConfig, fn SignFunc) (string, error) {
	if fn == nil {
		return "", ErrNoSigner
	}

	if cfg.KeyID == "" {
		return "", ErrNoKeyID
	}

	if err := req.checkPath(); err != nil {
		return "", err
	}

	headers := req.Headers
	if headers == nil {
		headers = NewHeaders()
	}

	if err := headers.validate(); err != nil {
		return "", err
	}

	method := req.Method
	if method == "" {
		method = DefaultMethod
	}

	headerB64, err := newV2Header(cfg.KeyID, headers, cfg.JKU).encode()
	if err != nil {
		return "", fmt.Errorf("%w: header encoding failed: %w", ErrSigningFailed, err)
	}

	payload := BuildPayload(method, req.Path, headers, req.Body, false)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	signature, err := fn(ctx, signingInput(headerB64, payload))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}

	return formatToken(headerB64, signature), nil
}

// SignBodyOnly produces a legacy v1 Tl-Signature value signing only body.
//
// v1 signatures do not authenticate method, path or headers; full request
// signing with Sign should be preferred.
func SignBodyOnly(body []byte, cfg SignConfig) (string, error) {
	if cfg.KeyID == "" {
		return "", ErrNoKeyID
	}

	header := &ProtectedHeader{Alg: AlgorithmES512, Kid: cfg.KeyID}

	headerB64, err := header.encode()
	if err != nil {
		return "", fmt.Errorf("%w: header encoding failed: %w", ErrSigningFailed, err)
	}

	signature, err := SignES512(cfg.PrivateKey, signingInput(headerB64, body))
	if err != nil {
		return "", err
	}

	return formatToken(headerB64, encodeSegment(signature)), nil
}
