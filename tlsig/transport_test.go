package tlsig

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport(t *testing.T) {
	key, _, pubPEM := testKeyPair(t)

	// server verifies every request and echoes the outcome.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		err = Verify(r.Header.Get(HeaderName), Request{
			Method:  r.Method,
			Path:    r.URL.EscapedPath(),
			Headers: HeadersFromHTTP(r.Header),
			Body:    body,
		}, VerifyConfig{PublicKey: PEMKey(pubPEM), RequiredHeaders: []string{"Idempotency-Key"}})
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		w.Write(body)
	}))
	defer server.Close()

	client := &http.Client{Transport: NewTransport(nil, TransportConfig{
		Sign:    SignConfig{KeyID: testKid, PrivateKey: key},
		Headers: []string{"Idempotency-Key", "X-Not-Sent"},
	})}

	t.Run("signed post is accepted", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, server.URL+"/payouts", strings.NewReader(`{"amount":100}`))
		require.NoError(t, err)
		req.Header.Set("Idempotency-Key", "idemp-123")

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		assert.Equal(t, `{"amount":100}`, string(body))
		assert.Empty(t, req.Header.Get(HeaderName), "caller request must not be mutated")
	})

	t.Run("missing required header is rejected", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, server.URL+"/payouts", strings.NewReader(`{}`))
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("request without body", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, server.URL+"/mandates/123", nil)
		require.NoError(t, err)
		req.Header.Set("Idempotency-Key", "idemp-456")

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("signed header list only covers present headers", func(t *testing.T) {
		var captured string

		capture := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			captured = r.Header.Get(HeaderName)
		}))
		defer capture.Close()

		req, err := http.NewRequest(http.MethodPost, capture.URL+"/x", strings.NewReader("body"))
		require.NoError(t, err)
		req.Header.Set("Idempotency-Key", "idemp")

		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		header, err := ExtractProtectedHeader(captured)
		require.NoError(t, err)
		assert.Equal(t, "Idempotency-Key", header.TlHeaders)
	})

	t.Run("signing errors are returned", func(t *testing.T) {
		broken := &http.Client{Transport: NewTransport(nil, TransportConfig{Sign: SignConfig{PrivateKey: key}})}

		req, err := http.NewRequest(http.MethodGet, server.URL+"/x", nil)
		require.NoError(t, err)

		_, err = broken.Do(req)
		assert.ErrorIs(t, err, ErrNoKeyID)
	})
}

func TestRequestPath(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{url: "https://api.truelayer.com", want: "/"},
		{url: "https://api.truelayer.com/payouts", want: "/payouts"},
		{url: "https://api.truelayer.com/a%2Fb/c?x=1", want: "/a%2Fb/c"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, tt.url, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, requestPath(req))
		})
	}
}
