package tlsig

import (
	"crypto/ecdsa"
	"testing"

	"github.com/stretchr/testify/require"
)

const testKid = "45fc75cf-5649-4134-84b3-192c2c78e990"

// testKeyPair generates a P-521 key and returns it with its PEM encodings.
func testKeyPair(t *testing.T) (*ecdsa.PrivateKey, []byte, []byte) {
	t.Helper()

	key, err := GenerateKey()
	require.NoError(t, err)

	privPEM, err := MarshalPrivateKeyPEM(key)
	require.NoError(t, err)

	pubPEM, err := MarshalPublicKeyPEM(&key.PublicKey)
	require.NoError(t, err)

	return key, privPEM, pubPEM
}

func testRequest(headers ...string) Request {
	h := NewHeaders()
	for i := 0; i+1 < len(headers); i += 2 {
		h.Set(headers[i], []byte(headers[i+1]))
	}

	return Request{
		Method:  "POST",
		Path:    "/merchant_accounts/a61acaef-ee05-4077-92f3-25543a11bd8d/sweeping",
		Headers: h,
		Body:    []byte(`{"currency":"GBP","max_amount_in_minor":5000000}`),
	}
}
