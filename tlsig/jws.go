package tlsig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// AlgorithmES512 is the only supported signature algorithm: ECDSA using
// P-521 and SHA-512.
const AlgorithmES512 = "ES512"

// Version identifies the Tl-Signature scheme version.
type Version string

const (
	// VersionV1 is the legacy body-only scheme. An absent tl_version is v1.
	VersionV1 Version = "1"

	// VersionV2 signs method, path, declared headers and body.
	VersionV2 Version = "2"
)

// ProtectedHeader is the JWS protected header of a Tl-Signature.
//
// Field order is stable so that identical inputs produce identical header
// bytes.
type ProtectedHeader struct {
	// Alg must be "ES512".
	Alg string `json:"alg"`

	// Kid is the signing key id.
	Kid string `json:"kid"`

	// TlVersion is the signing scheme version. Empty implies v1.
	TlVersion string `json:"tl_version,omitempty"`

	// TlHeaders is the comma separated, ordered list of signed header names.
	TlHeaders string `json:"tl_headers"`

	// JKU is the JWKS URL of the signing key, set on server-originated
	// signatures such as webhooks. It must be checked against an allow-list
	// before use.
	JKU string `json:"jku,omitempty"`
}

// v2Header is the wire form of a v2 header; tl_version and tl_headers are
// always present even when empty.
type v2Header struct {
	Alg       string `json:"alg"`
	Kid       string `json:"kid"`
	TlVersion string `json:"tl_version"`
	TlHeaders string `json:"tl_headers"`
	JKU       string `json:"jku,omitempty"`
}

// v1Header is the wire form of a legacy body-only header.
type v1Header struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

// newV2Header builds a v2 protected header declaring headers in insertion
// order.
func newV2Header(kid string, headers *Headers, jku string) *ProtectedHeader {
	return &ProtectedHeader{
		Alg:       AlgorithmES512,
		Kid:       kid,
		TlVersion: string(VersionV2),
		TlHeaders: strings.Join(headers.Names(), ","),
		JKU:       jku,
	}
}

// Version returns the scheme version declared by the header.
func (h *ProtectedHeader) Version() Version {
	if h.TlVersion == "" {
		return VersionV1
	}

	return Version(h.TlVersion)
}

// DeclaredHeaders returns the names listed in tl_headers, in order,
// skipping empty segments.
func (h *ProtectedHeader) DeclaredHeaders() []string {
	var names []string

	for name := range strings.SplitSeq(h.TlHeaders, ",") {
		if name != "" {
			names = append(names, name)
		}
	}

	return names
}

// FilterHeaders selects the declared headers from presented, ordered as
// declared and named with the declared casing.
//
// Every declared header must be presented, whether or not the verifier
// requires it.
func (h *ProtectedHeader) FilterHeaders(presented *Headers) (*Headers, error) {
	ordered := NewHeaders()

	for _, name := range h.DeclaredHeaders() {
		header, ok := presented.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingDeclaredHeader, name)
		}

		ordered.Set(name, header.Value)
	}

	return ordered, nil
}

// marshal encodes the header in its wire form for its version.
func (h *ProtectedHeader) marshal() ([]byte, error) {
	if h.Version() == VersionV1 {
		return marshalJSON(v1Header{Alg: h.Alg, Kid: h.Kid})
	}

	return marshalJSON(v2Header{
		Alg:       h.Alg,
		Kid:       h.Kid,
		TlVersion: h.TlVersion,
		TlHeaders: h.TlHeaders,
		JKU:       h.JKU,
	})
}

// encode returns the base64url form of the marshalled header.
func (h *ProtectedHeader) encode() (string, error) {
	data, err := h.marshal()
	if err != nil {
		return "", err
	}

	return encodeSegment(data), nil
}

// parseProtectedHeader decodes header JSON. Its fields are not checked.
func parseProtectedHeader(data []byte) (*ProtectedHeader, error) {
	var h ProtectedHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("%w: header json decoding failed", ErrMalformedSignature)
	}

	return &h, nil
}

// checkVersion rejects a tl_version other than v1 or v2.
func (h *ProtectedHeader) checkVersion() error {
	switch h.Version() {
	case VersionV1, VersionV2:
		return nil
	default:
		return fmt.Errorf("%w: unknown tl_version %q", ErrMalformedSignature, h.TlVersion)
	}
}

// marshalJSON encodes v compactly without HTML escaping.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
