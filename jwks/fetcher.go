package jwks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/sirupsen/logrus"

	"github.com/vitalvas/tlsigning/tlsig"
)

// DefaultMaxBytes is the default cap on a key set response body.
const DefaultMaxBytes = 1 << 20

// DefaultTimeout bounds a single fetch made by the default client.
const DefaultTimeout = 10 * time.Second

// TrueLayerJKUs are the key set URLs used by TrueLayer webhooks in
// production and sandbox.
var TrueLayerJKUs = []string{
	"https://webhooks.truelayer.com/.well-known/jwks",
	"https://webhooks.truelayer-sandbox.com/.well-known/jwks",
}

// Config configures a Fetcher.
type Config struct {
	// AllowedJKUs is the exact list of key set URLs that may be fetched.
	// Required.
	AllowedJKUs []string

	// Client performs the fetches. When nil, NewCachingClient is used.
	Client *http.Client

	// MaxBytes caps the response body size. Defaults to DefaultMaxBytes.
	MaxBytes int64

	// Logger receives debug logs for each fetch. Defaults to the logrus
	// standard logger.
	Logger logrus.FieldLogger

	// Metrics records fetch results when set.
	Metrics *Metrics
}

// Fetcher retrieves key sets from allow-listed URLs. It is safe for
// concurrent use.
type Fetcher struct {
	allowed  map[string]struct{}
	client   *http.Client
	maxBytes int64
	logger   logrus.FieldLogger
	metrics  *Metrics
}

// New creates a Fetcher. It returns ErrNoAllowedJKUs when cfg.AllowedJKUs
// is empty.
func New(cfg Config) (*Fetcher, error) {
	allowed := make(map[string]struct{}, len(cfg.AllowedJKUs))
	for _, jku := range cfg.AllowedJKUs {
		if jku != "" {
			allowed[jku] = struct{}{}
		}
	}

	if len(allowed) == 0 {
		return nil, ErrNoAllowedJKUs
	}

	client := cfg.Client
	if client == nil {
		client = NewCachingClient()
	}

	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Fetcher{
		allowed:  allowed,
		client:   client,
		maxBytes: maxBytes,
		logger:   logger,
		metrics:  cfg.Metrics,
	}, nil
}

// NewCachingClient returns an HTTP client that caches responses in memory
// according to their cache headers, over a pooled transport.
func NewCachingClient() *http.Client {
	transport := httpcache.NewTransport(httpcache.NewMemoryCache())
	transport.Transport = cleanhttp.DefaultPooledTransport()
	transport.MarkCachedResponses = true

	return &http.Client{
		Transport: transport,
		Timeout:   DefaultTimeout,
	}
}

// Allowed reports whether jku is in the allow-list.
func (f *Fetcher) Allowed(jku string) bool {
	_, ok := f.allowed[jku]
	return ok
}

// Fetch returns the key set document served at jku. The allow-list is
// checked before any network access.
func (f *Fetcher) Fetch(ctx context.Context, jku string) ([]byte, error) {
	log := f.logger.WithField("jku", jku)

	if !f.Allowed(jku) {
		f.metrics.observe(resultNotAllowed)
		log.Debug("jku rejected by allow-list")

		return nil, fmt.Errorf("%w: %s", ErrJKUNotAllowed, jku)
	}

	data, cached, err := f.get(ctx, jku)
	if err != nil {
		f.metrics.observe(resultError)
		log.WithError(err).Debug("jwks fetch failed")

		return nil, err
	}

	if cached {
		f.metrics.observe(resultCached)
	} else {
		f.metrics.observe(resultFetched)
	}

	log.WithField("cached", cached).Debug("jwks fetched")

	return data, nil
}

// PublicKey returns the verification key source for a signature header by
// fetching the key set named by its jku.
func (f *Fetcher) PublicKey(ctx context.Context, header *tlsig.ProtectedHeader) (tlsig.PublicKey, error) {
	if header == nil || header.JKU == "" {
		return tlsig.PublicKey{}, ErrJKUMissing
	}

	data, err := f.Fetch(ctx, header.JKU)
	if err != nil {
		return tlsig.PublicKey{}, err
	}

	return tlsig.JWKSKey(data), nil
}

func (f *Fetcher) get(ctx context.Context, jku string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jku, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, false, fmt.Errorf("%w: unexpected status %d", ErrFetchFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	if int64(len(data)) > f.maxBytes {
		return nil, false, fmt.Errorf("%w: response exceeds %d bytes", ErrFetchFailed, f.maxBytes)
	}

	return data, resp.Header.Get(httpcache.XFromCache) != "", nil
}
