package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/vitalvas/tlsigning/tlsig"
)

// DefaultMaxBodyBytes is the default cap on a verified request body.
const DefaultMaxBodyBytes = 1 << 20

// Config configures the verification middleware.
type Config struct {
	// Keys resolves the verification key for each request. Required.
	Keys KeySource

	// RequiredHeaders lists header names every signature must cover.
	RequiredHeaders []string

	// AllowV1 accepts legacy body-only signatures.
	AllowV1 bool

	// MaxBodyBytes caps the request body read for verification. Defaults
	// to DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// OnError is called when verification fails. When nil, a plain 401
	// Unauthorized response is sent.
	OnError func(w http.ResponseWriter, r *http.Request, err error)

	// Logger receives a debug entry for every rejected request. Defaults
	// to the logrus standard logger.
	Logger logrus.FieldLogger

	// Metrics records verification results when set.
	Metrics *Metrics
}

type contextKey struct{}

// HeaderFromContext returns the protected header of the signature verified
// for the request carrying ctx.
func HeaderFromContext(ctx context.Context) (*tlsig.ProtectedHeader, bool) {
	h, ok := ctx.Value(contextKey{}).(*tlsig.ProtectedHeader)
	return h, ok
}

// Middleware returns a mux.MiddlewareFunc that verifies the Tl-Signature
// header of incoming requests.
//
// It returns ErrNoKeySource if cfg.Keys is nil.
func Middleware(cfg Config) (mux.MiddlewareFunc, error) {
	if cfg.Keys == nil {
		return nil, ErrNoKeySource
	}

	onError := cfg.OnError
	if onError == nil {
		onError = defaultOnError
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header, err := verifyRequest(r, cfg)
			cfg.Metrics.observe(err)

			if err != nil {
				cfg.Logger.WithFields(logrus.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
					"result": resultOf(err),
				}).WithError(err).Debug("webhook signature rejected")

				onError(w, r, err)

				return
			}

			ctx := context.WithValue(r.Context(), contextKey{}, header)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}, nil
}

// verifyRequest verifies r and leaves its body readable by the next
// handler.
func verifyRequest(r *http.Request, cfg Config) (*tlsig.ProtectedHeader, error) {
	value := r.Header.Get(tlsig.HeaderName)
	if value == "" {
		return nil, ErrMissingSignature
	}

	header, err := tlsig.ExtractProtectedHeader(value)
	if err != nil {
		return nil, err
	}

	key, err := cfg.Keys.PublicKey(r.Context(), header)
	if err != nil {
		return nil, err
	}

	body, err := readBody(r, cfg.MaxBodyBytes)
	if err != nil {
		return nil, err
	}

	err = tlsig.Verify(value, tlsig.Request{
		Method:  r.Method,
		Path:    r.URL.EscapedPath(),
		Headers: requestHeaders(r),
		Body:    body,
	}, tlsig.VerifyConfig{
		PublicKey:       key,
		RequiredHeaders: cfg.RequiredHeaders,
		AllowV1:         cfg.AllowV1,
	})
	if err != nil {
		return nil, err
	}

	return header, nil
}

// readBody reads at most limit bytes of the body and replaces it with an
// unread copy.
func readBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	r.Body.Close()

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBodyRead, err)
	}

	if int64(len(data)) > limit {
		return nil, ErrBodyTooLarge
	}

	r.Body = io.NopCloser(bytes.NewReader(data))

	return data, nil
}

// requestHeaders returns the request headers including Host, which net/http
// moves out of the header map.
func requestHeaders(r *http.Request) *tlsig.Headers {
	headers := tlsig.HeadersFromHTTP(r.Header)

	if r.Host != "" && !headers.Has("Host") {
		headers.Set("Host", []byte(r.Host))
	}

	return headers
}

// defaultOnError writes a 401 Unauthorized response with no body.
func defaultOnError(w http.ResponseWriter, _ *http.Request, _ error) {
	w.WriteHeader(http.StatusUnauthorized)
}
