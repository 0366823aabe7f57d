package tlsig

import (
	"bytes"
	"io"
	"net/http"
)

// TransportConfig configures a signing Transport.
type TransportConfig struct {
	// Sign holds the signing key and kid.
	Sign SignConfig

	// Headers lists the request header names to sign when present on the
	// outgoing request, in signing order. Headers not present are skipped.
	Headers []string
}

// Transport is an http.RoundTripper that adds a v2 Tl-Signature header to
// outgoing requests.
//
// NewTransport wraps a base transport, so connection settings stay with
// the caller.
type Transport struct {
	base   http.RoundTripper
	config TransportConfig
}

// NewTransport creates a signing Transport that delegates to base after
// signing each request. When base is nil, a clone of http.DefaultTransport
// is used.
func NewTransport(base *http.Transport, cfg TransportConfig) *Transport {
	var rt http.RoundTripper
	if base != nil {
		rt = base
	} else {
		rt = http.DefaultTransport.(*http.Transport).Clone()
	}

	return &Transport{
		base:   rt,
		config: cfg,
	}
}

// RoundTrip signs the request and then delegates to the base transport.
// The original request is cloned before signing to avoid mutation. The
// body is read through GetBody when available so the caller's body is not
// consumed.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	body, err := readRequestBody(req, clone)
	if err != nil {
		return nil, err
	}

	headers := NewHeaders()
	for _, name := range t.config.Headers {
		if v := clone.Header.Values(name); len(v) > 0 {
			headers.Set(name, []byte(v[len(v)-1]))
		}
	}

	signature, err := Sign(Request{
		Method:  clone.Method,
		Path:    requestPath(clone),
		Headers: headers,
		Body:    body,
	}, t.config.Sign)
	if err != nil {
		return nil, err
	}

	clone.Header.Set(HeaderName, signature)

	return t.base.RoundTrip(clone)
}

// readRequestBody returns the request body and gives clone an unread copy.
func readRequestBody(req, clone *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}

	var rc io.ReadCloser

	if req.GetBody != nil {
		b, err := req.GetBody()
		if err != nil {
			return nil, err
		}

		rc = b
	} else {
		rc = req.Body
	}

	data, err := io.ReadAll(rc)
	rc.Close()

	if err != nil {
		return nil, err
	}

	clone.Body = io.NopCloser(bytes.NewReader(data))

	return data, nil
}

// requestPath returns the path as it appears on the request line.
func requestPath(r *http.Request) string {
	path := r.URL.EscapedPath()
	if path == "" {
		path = "/"
	}

	return path
}
