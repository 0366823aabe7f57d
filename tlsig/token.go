package tlsig

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// HeaderName is the HTTP header carrying the signature.
const HeaderName = "Tl-Signature"

// detachedDelimiter separates the header and signature segments; the
// payload segment between them is always empty.
const detachedDelimiter = ".."

// Token is a parsed Tl-Signature value.
type Token struct {
	// Header is the decoded protected header.
	Header *ProtectedHeader

	// HeaderB64 is the header segment exactly as received. Verification
	// uses these bytes, not a re-encoding of Header.
	HeaderB64 string

	// Signature is the decoded signature segment.
	Signature []byte
}

// ParseToken parses a compact detached Tl-Signature value of the form
// header_b64 ".." signature_b64. Extra trailing dots are ignored.
//
// The header is not validated beyond JSON decoding.
func ParseToken(value string) (*Token, error) {
	headerB64, signatureB64, ok := strings.Cut(value, detachedDelimiter)
	if !ok {
		return nil, fmt.Errorf("%w: invalid signature format", ErrMalformedSignature)
	}

	signatureB64 = strings.TrimRight(signatureB64, ".")

	headerJSON, err := decodeSegment(headerB64)
	if err != nil {
		return nil, fmt.Errorf("%w: header base64 decoding failed", ErrMalformedSignature)
	}

	signature, err := decodeSegment(signatureB64)
	if err != nil {
		return nil, fmt.Errorf("%w: signature base64 decoding failed", ErrMalformedSignature)
	}

	header, err := parseProtectedHeader(headerJSON)
	if err != nil {
		return nil, err
	}

	return &Token{
		Header:    header,
		HeaderB64: headerB64,
		Signature: signature,
	}, nil
}

// ExtractProtectedHeader parses a Tl-Signature value and returns its
// protected header without verifying anything. Use it to pick a key by kid
// or jku before calling Verify.
func ExtractProtectedHeader(value string) (*ProtectedHeader, error) {
	token, err := ParseToken(value)
	if err != nil {
		return nil, err
	}

	return token.Header, nil
}

// formatToken joins the header and signature segments.
func formatToken(headerB64, signatureB64 string) string {
	return headerB64 + detachedDelimiter + signatureB64
}

// encodeSegment encodes data using base64url without padding.
func encodeSegment(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// decodeSegment decodes unpadded base64url data.
func decodeSegment(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}
