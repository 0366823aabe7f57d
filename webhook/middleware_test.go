package webhook

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/tlsigning/jwks"
	"github.com/vitalvas/tlsigning/tlsig"
)

const webhookBody = `{"type":"payout_executed","payout_id":"0cd1b0f7-71bc-4d24-b209-95259dadcc20"}`

type fixture struct {
	sign tlsig.SignConfig
	key  tlsig.PublicKey
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	priv, err := tlsig.GenerateKey()
	require.NoError(t, err)

	pubPEM, err := tlsig.MarshalPublicKeyPEM(&priv.PublicKey)
	require.NoError(t, err)

	return fixture{
		sign: tlsig.SignConfig{KeyID: "webhook-kid", PrivateKey: priv},
		key:  tlsig.PEMKey(pubPEM),
	}
}

// signedRequest builds a POST /hook request signed over the given headers.
func (f fixture) signedRequest(t *testing.T, body string, signed ...string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/hook", bytes.NewReader([]byte(body)))
	req.Header.Set("X-Tl-Webhook-Timestamp", "2024-01-01T00:00:00Z")
	req.Header.Set("Content-Type", "application/json")

	headers := tlsig.NewHeaders()
	for _, name := range signed {
		if name == "Host" {
			headers.Set(name, []byte(req.Host))
			continue
		}

		headers.Set(name, []byte(req.Header.Get(name)))
	}

	value, err := tlsig.Sign(tlsig.Request{
		Method:  req.Method,
		Path:    req.URL.EscapedPath(),
		Headers: headers,
		Body:    []byte(body),
	}, f.sign)
	require.NoError(t, err)

	req.Header.Set(tlsig.HeaderName, value)

	return req
}

// router serves /hook behind mw and records what the handler saw.
func router(mw mux.MiddlewareFunc, gotBody *string, gotKid *string) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/hook", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		*gotBody = string(data)

		if h, ok := HeaderFromContext(r.Context()); ok {
			*gotKid = h.Kid
		}

		w.WriteHeader(http.StatusAccepted)
	}).Methods(http.MethodPost)
	r.Use(mw)

	return r
}

func TestMiddleware(t *testing.T) {
	f := newFixture(t)

	t.Run("nil key source returns error", func(t *testing.T) {
		_, err := Middleware(Config{})
		assert.ErrorIs(t, err, ErrNoKeySource)
	})

	t.Run("valid signed request passes through with body", func(t *testing.T) {
		mw, err := Middleware(Config{Keys: StaticKey(f.key)})
		require.NoError(t, err)

		var body, kid string

		w := httptest.NewRecorder()
		router(mw, &body, &kid).ServeHTTP(w, f.signedRequest(t, webhookBody, "X-Tl-Webhook-Timestamp", "Content-Type"))

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, webhookBody, body)
		assert.Equal(t, "webhook-kid", kid)
	})

	t.Run("signed host header is verified", func(t *testing.T) {
		mw, err := Middleware(Config{Keys: StaticKey(f.key)})
		require.NoError(t, err)

		var body, kid string

		req := f.signedRequest(t, webhookBody, "Host")

		w := httptest.NewRecorder()
		router(mw, &body, &kid).ServeHTTP(w, req)
		assert.Equal(t, http.StatusAccepted, w.Code)

		req = f.signedRequest(t, webhookBody, "Host")
		req.Host = "attacker.example"

		w = httptest.NewRecorder()
		router(mw, &body, &kid).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unsigned request returns 401 with no body", func(t *testing.T) {
		metrics, err := NewMetrics(prometheus.NewRegistry())
		require.NoError(t, err)

		logger, hook := test.NewNullLogger()
		logger.SetLevel(logrus.DebugLevel)

		mw, err := Middleware(Config{Keys: StaticKey(f.key), Metrics: metrics, Logger: logger})
		require.NoError(t, err)

		var body, kid string

		w := httptest.NewRecorder()
		router(mw, &body, &kid).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/hook", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, w.Body.String())
		assert.Empty(t, body)

		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.verifications.WithLabelValues(resultMissingSignature)))

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.DebugLevel, entry.Level)
		assert.Equal(t, resultMissingSignature, entry.Data["result"])
		assert.Equal(t, "/hook", entry.Data["path"])
	})

	t.Run("tampered body is rejected", func(t *testing.T) {
		metrics, err := NewMetrics(nil)
		require.NoError(t, err)

		var gotErr error

		mw, err := Middleware(Config{
			Keys:    StaticKey(f.key),
			Metrics: metrics,
			OnError: func(w http.ResponseWriter, _ *http.Request, err error) {
				gotErr = err
				w.WriteHeader(http.StatusForbidden)
			},
		})
		require.NoError(t, err)

		req := f.signedRequest(t, webhookBody)
		req.Body = io.NopCloser(bytes.NewReader([]byte(`{"type":"forged"}`)))

		var body, kid string

		w := httptest.NewRecorder()
		router(mw, &body, &kid).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.ErrorIs(t, gotErr, tlsig.ErrVerificationFailed)
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.verifications.WithLabelValues(resultInvalid)))
	})

	t.Run("required header must be signed", func(t *testing.T) {
		var gotErr error

		mw, err := Middleware(Config{
			Keys:            StaticKey(f.key),
			RequiredHeaders: []string{"X-Tl-Webhook-Timestamp"},
			OnError: func(w http.ResponseWriter, _ *http.Request, err error) {
				gotErr = err
				w.WriteHeader(http.StatusUnauthorized)
			},
		})
		require.NoError(t, err)

		var body, kid string

		w := httptest.NewRecorder()
		router(mw, &body, &kid).ServeHTTP(w, f.signedRequest(t, webhookBody, "Content-Type"))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.ErrorIs(t, gotErr, tlsig.ErrMissingRequiredHeader)
	})

	t.Run("oversized body is rejected", func(t *testing.T) {
		var gotErr error

		mw, err := Middleware(Config{
			Keys:         StaticKey(f.key),
			MaxBodyBytes: 8,
			OnError: func(w http.ResponseWriter, _ *http.Request, err error) {
				gotErr = err
				w.WriteHeader(http.StatusRequestEntityTooLarge)
			},
		})
		require.NoError(t, err)

		var body, kid string

		w := httptest.NewRecorder()
		router(mw, &body, &kid).ServeHTTP(w, f.signedRequest(t, webhookBody))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.ErrorIs(t, gotErr, ErrBodyTooLarge)
	})

	t.Run("key source errors are rejected", func(t *testing.T) {
		errKeys := errors.New("keys unavailable")

		var gotErr error

		mw, err := Middleware(Config{
			Keys: KeySourceFunc(func(context.Context, *tlsig.ProtectedHeader) (tlsig.PublicKey, error) {
				return tlsig.PublicKey{}, errKeys
			}),
			OnError: func(w http.ResponseWriter, _ *http.Request, err error) {
				gotErr = err
				w.WriteHeader(http.StatusServiceUnavailable)
			},
		})
		require.NoError(t, err)

		var body, kid string

		w := httptest.NewRecorder()
		router(mw, &body, &kid).ServeHTTP(w, f.signedRequest(t, webhookBody))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.ErrorIs(t, gotErr, errKeys)
	})

	t.Run("v1 signature needs opt in", func(t *testing.T) {
		value, err := tlsig.SignBodyOnly([]byte(webhookBody), f.sign)
		require.NoError(t, err)

		newReq := func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/hook", bytes.NewReader([]byte(webhookBody)))
			req.Header.Set(tlsig.HeaderName, value)

			return req
		}

		var body, kid string

		strict, err := Middleware(Config{Keys: StaticKey(f.key)})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		router(strict, &body, &kid).ServeHTTP(w, newReq())
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		lenient, err := Middleware(Config{Keys: StaticKey(f.key), AllowV1: true})
		require.NoError(t, err)

		w = httptest.NewRecorder()
		router(lenient, &body, &kid).ServeHTTP(w, newReq())
		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, webhookBody, body)
	})
}

func TestMiddlewareWithFetcher(t *testing.T) {
	priv, err := tlsig.GenerateKey()
	require.NoError(t, err)

	jwk, err := tlsig.PublicJWK("webhook-kid", &priv.PublicKey)
	require.NoError(t, err)

	doc, err := tlsig.MarshalJWKS(jwk)
	require.NoError(t, err)

	keys := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Cache-Control", "max-age=60")
		w.Write(doc)
	}))
	defer keys.Close()

	jku := keys.URL + "/.well-known/jwks"

	fetcher, err := jwks.New(jwks.Config{AllowedJKUs: []string{jku}})
	require.NoError(t, err)

	mw, err := Middleware(Config{Keys: fetcher})
	require.NoError(t, err)

	f := fixture{sign: tlsig.SignConfig{KeyID: "webhook-kid", PrivateKey: priv, JKU: jku}}

	t.Run("signature with allowed jku passes", func(t *testing.T) {
		var body, kid string

		w := httptest.NewRecorder()
		router(mw, &body, &kid).ServeHTTP(w, f.signedRequest(t, webhookBody, "X-Tl-Webhook-Timestamp"))

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "webhook-kid", kid)
	})

	t.Run("signature with foreign jku is rejected", func(t *testing.T) {
		forged := f
		forged.sign.JKU = "https://attacker.example/jwks"

		var body, kid string

		w := httptest.NewRecorder()
		router(mw, &body, &kid).ServeHTTP(w, forged.signedRequest(t, webhookBody))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, body)
	})
}

func TestResultOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: resultOK},
		{err: ErrMissingSignature, want: resultMissingSignature},
		{err: ErrBodyTooLarge, want: resultBody},
		{err: tlsig.ErrMalformedSignature, want: resultMalformed},
		{err: tlsig.ErrVersionNotAllowed, want: resultMalformed},
		{err: jwks.ErrJKUNotAllowed, want: resultKeyUnavailable},
		{err: tlsig.ErrInvalidKey, want: resultKeyUnavailable},
		{err: tlsig.ErrMissingDeclaredHeader, want: resultHeaderMismatch},
		{err: tlsig.ErrVerificationFailed, want: resultInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, resultOf(tt.err))
		})
	}
}
