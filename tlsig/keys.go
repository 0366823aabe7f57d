package tlsig

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"

	"github.com/go-jose/go-jose/v4"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// ES512 fixed-width signature layout: R and S are each left-zero-padded to
// the byte length of the P-521 field.
const (
	coordinateSize = 66
	signatureSize  = 2 * coordinateSize
)

// JWK parameters accepted for verification keys.
const (
	jwkKeyType = "EC"
	jwkCurve   = "P-521"
)

// ParsePrivateKeyPEM parses a P-521 private key from PEM data. Both SEC 1
// ("EC PRIVATE KEY") and PKCS #8 ("PRIVATE KEY") blocks are accepted.
//
// Error messages never contain key material.
func ParsePrivateKeyPEM(data []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM data found", ErrInvalidKey)
	}

	var key *ecdsa.PrivateKey

	switch block.Type {
	case "EC PRIVATE KEY":
		k, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: private key parsing failed", ErrInvalidKey)
		}

		key = k

	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: private key parsing failed", ErrInvalidKey)
		}

		ecKey, ok := k.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: private key is not an ECDSA key", ErrInvalidKey)
		}

		key = ecKey

	default:
		return nil, fmt.Errorf("%w: unexpected PEM block type %q", ErrInvalidKey, block.Type)
	}

	if err := checkCurve(key.Curve); err != nil {
		return nil, err
	}

	return key, nil
}

// ParsePublicKeyPEM parses a P-521 public key from PKIX ("PUBLIC KEY") PEM
// data.
func ParsePublicKeyPEM(data []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM data found", ErrInvalidKey)
	}

	if block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("%w: unexpected PEM block type %q, expected PUBLIC KEY", ErrInvalidKey, block.Type)
	}

	generic, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: public key parsing failed", ErrInvalidKey)
	}

	key, ok := generic.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is not an ECDSA key", ErrInvalidKey)
	}

	if err := checkCurve(key.Curve); err != nil {
		return nil, err
	}

	return key, nil
}

// MarshalPrivateKeyPEM encodes a P-521 private key as a SEC 1 PEM block.
func MarshalPrivateKeyPEM(key *ecdsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: private key must not be nil", ErrInvalidKey)
	}

	if err := checkCurve(key.Curve); err != nil {
		return nil, err
	}

	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: private key encoding failed", ErrInvalidKey)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), nil
}

// MarshalPublicKeyPEM encodes a P-521 public key as a PKIX PEM block.
func MarshalPublicKeyPEM(key *ecdsa.PublicKey) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: public key must not be nil", ErrInvalidKey)
	}

	if err := checkCurve(key.Curve); err != nil {
		return nil, err
	}

	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: public key encoding failed", ErrInvalidKey)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// GenerateKey generates a new P-521 key pair.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
}

func checkCurve(curve elliptic.Curve) error {
	if curve != elliptic.P521() {
		return fmt.Errorf("%w: the elliptic curve must be P-521 to sign using ES512", ErrInvalidKey)
	}

	return nil
}

// jwkSelector holds the JWK members needed to pick a key before decoding
// it in full.
type jwkSelector struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Crv string `json:"crv"`
}

type jwksDocument struct {
	Keys []json.RawMessage `json:"keys"`
}

// FindJWK finds the JWK with the given kid in a JWKS document and decodes
// it as a P-521 public key.
//
// Entries whose kty is not "EC" or whose crv is not "P-521" are skipped.
// The first remaining entry with a matching kid is used.
func FindJWK(kid string, jwks []byte) (*ecdsa.PublicKey, error) {
	var doc jwksDocument
	if err := json.Unmarshal(jwks, &doc); err != nil {
		return nil, fmt.Errorf("%w: jwks parsing failed", ErrInvalidKey)
	}

	for _, raw := range doc.Keys {
		var sel jwkSelector
		if err := json.Unmarshal(raw, &sel); err != nil {
			continue
		}

		if sel.Kid != kid || sel.Kty != jwkKeyType || sel.Crv != jwkCurve {
			continue
		}

		entry, err := padJWKCoordinates(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: jwk %q: %w", ErrInvalidKey, kid, err)
		}

		var jwk jose.JSONWebKey
		if err := jwk.UnmarshalJSON(entry); err != nil {
			return nil, fmt.Errorf("%w: jwk %q decoding failed", ErrInvalidKey, kid)
		}

		key, ok := jwk.Key.(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: jwk %q is not an ECDSA public key", ErrInvalidKey, kid)
		}

		if err := checkCurve(key.Curve); err != nil {
			return nil, err
		}

		return key, nil
	}

	return nil, fmt.Errorf("%w: no jwk found for kid %q", ErrInvalidKey, kid)
}

// padJWKCoordinates left-pads the x and y members of an EC JWK to the
// P-521 field size. Producers may encode coordinates as minimal big-endian
// integers, while go-jose only decodes full width ones.
func padJWKCoordinates(raw json.RawMessage) (json.RawMessage, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, err
	}

	for _, name := range []string{"x", "y"} {
		encoded, ok := members[name]
		if !ok {
			continue
		}

		var value string
		if err := json.Unmarshal(encoded, &value); err != nil {
			return nil, fmt.Errorf("%s is not a string", name)
		}

		data, err := base64.RawURLEncoding.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("%s base64 decoding failed", name)
		}

		if len(data) > coordinateSize {
			return nil, fmt.Errorf("%s is %d bytes, expected at most %d", name, len(data), coordinateSize)
		}

		padded := new(big.Int).SetBytes(data).FillBytes(make([]byte, coordinateSize))

		members[name], err = json.Marshal(base64.RawURLEncoding.EncodeToString(padded))
		if err != nil {
			return nil, err
		}
	}

	return json.Marshal(members)
}

// PublicJWK converts a P-521 public key to a JWK suitable for publishing in
// a JWKS document.
func PublicJWK(kid string, key *ecdsa.PublicKey) (jose.JSONWebKey, error) {
	if key == nil {
		return jose.JSONWebKey{}, fmt.Errorf("%w: public key must not be nil", ErrInvalidKey)
	}

	if err := checkCurve(key.Curve); err != nil {
		return jose.JSONWebKey{}, err
	}

	return jose.JSONWebKey{
		Key:       key,
		KeyID:     kid,
		Algorithm: AlgorithmES512,
		Use:       "sig",
	}, nil
}

// MarshalJWKS encodes public JWKs as a JWKS document.
func MarshalJWKS(keys ...jose.JSONWebKey) ([]byte, error) {
	return json.Marshal(jose.JSONWebKeySet{Keys: keys})
}

// SignES512 signs SHA-512(payload) with key and returns the fixed-width
// R || S signature (132 bytes).
func SignES512(key *ecdsa.PrivateKey, payload []byte) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: private key must not be nil", ErrInvalidKey)
	}

	if err := checkCurve(key.Curve); err != nil {
		return nil, err
	}

	digest := sha512.Sum512(payload)

	r, s, err := ecdsa.Sign(rand.Reader, key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}

	return EncodeSignature(r, s)
}

// VerifyES512 verifies a fixed-width R || S signature over SHA-512(payload).
func VerifyES512(key *ecdsa.PublicKey, payload, signature []byte) error {
	if key == nil {
		return fmt.Errorf("%w: public key must not be nil", ErrInvalidKey)
	}

	r, s, err := DecodeSignature(signature)
	if err != nil {
		return err
	}

	digest := sha512.Sum512(payload)
	if !ecdsa.Verify(key, digest[:], r, s) {
		return ErrVerificationFailed
	}

	return nil
}

// EncodeSignature encodes R and S as two big-endian 66 byte integers. Short
// values are left-padded with zeros, never trimmed.
func EncodeSignature(r, s *big.Int) ([]byte, error) {
	if r == nil || s == nil || r.Sign() < 0 || s.Sign() < 0 {
		return nil, fmt.Errorf("%w: invalid signature integers", ErrSigningFailed)
	}

	if r.BitLen() > coordinateSize*8 || s.BitLen() > coordinateSize*8 {
		return nil, fmt.Errorf("%w: signature integer too large", ErrSigningFailed)
	}

	sig := make([]byte, signatureSize)
	r.FillBytes(sig[:coordinateSize])
	s.FillBytes(sig[coordinateSize:])

	return sig, nil
}

// DecodeSignature splits a 132 byte R || S signature into its integers.
func DecodeSignature(sig []byte) (*big.Int, *big.Int, error) {
	if len(sig) != signatureSize {
		return nil, nil, fmt.Errorf("%w: signature length %d, expected %d", ErrMalformedSignature, len(sig), signatureSize)
	}

	r := new(big.Int).SetBytes(sig[:coordinateSize])
	s := new(big.Int).SetBytes(sig[coordinateSize:])

	return r, s, nil
}

// DERToRaw converts an ASN.1 DER ECDSA signature, as returned by
// crypto.Signer implementations and most HSMs, to the fixed-width R || S
// form.
func DERToRaw(der []byte) ([]byte, error) {
	var (
		r, s  = new(big.Int), new(big.Int)
		inner cryptobyte.String
	)

	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, fmt.Errorf("%w: invalid ASN.1 signature", ErrSigningFailed)
	}

	return EncodeSignature(r, s)
}
