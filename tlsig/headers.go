package tlsig

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Header is a single header name and value. Name keeps the casing supplied
// by the caller and is emitted verbatim in the signing payload.
type Header struct {
	Name  string
	Value []byte
}

// Headers is an ordered set of headers keyed by ASCII case-insensitive name.
// Iteration follows insertion order. The zero value is ready to use.
//
// Only a single value per header name is supported.
type Headers struct {
	index   map[string]int
	entries []Header
}

// NewHeaders returns an empty header set.
func NewHeaders() *Headers {
	return &Headers{}
}

// HeadersFromHTTP builds a header set from a net/http header map. When a
// header has multiple values the last one is used.
func HeadersFromHTTP(h http.Header) *Headers {
	headers := NewHeaders()

	for name, values := range h {
		if len(values) == 0 {
			continue
		}

		headers.Set(name, []byte(values[len(values)-1]))
	}

	return headers
}

// Set adds or replaces a header. Replacing an existing header keeps its
// position and takes the new name casing and value.
func (h *Headers) Set(name string, value []byte) {
	key := strings.ToLower(name)

	if h.index == nil {
		h.index = make(map[string]int)
	}

	if i, ok := h.index[key]; ok {
		h.entries[i] = Header{Name: name, Value: value}
		return
	}

	h.index[key] = len(h.entries)
	h.entries = append(h.entries, Header{Name: name, Value: value})
}

// Get returns the header with the given case-insensitive name.
func (h *Headers) Get(name string) (Header, bool) {
	if h == nil || h.index == nil {
		return Header{}, false
	}

	i, ok := h.index[strings.ToLower(name)]
	if !ok {
		return Header{}, false
	}

	return h.entries[i], true
}

// Has reports whether a header with the given case-insensitive name is set.
func (h *Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Len returns the number of headers.
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}

	return len(h.entries)
}

// All returns a copy of the headers in insertion order.
func (h *Headers) All() []Header {
	if h == nil {
		return nil
	}

	out := make([]Header, len(h.entries))
	copy(out, h.entries)

	return out
}

// Names returns the header names in insertion order, in their stored casing.
func (h *Headers) Names() []string {
	if h == nil {
		return nil
	}

	names := make([]string, len(h.entries))
	for i, e := range h.entries {
		names[i] = e.Name
	}

	return names
}

// validate checks every header can be emitted as a single payload line and
// listed in tl_headers.
func (h *Headers) validate() error {
	if h == nil {
		return nil
	}

	for _, e := range h.entries {
		if !httpguts.ValidHeaderFieldName(e.Name) {
			return fmt.Errorf("%w: name %q", ErrInvalidHeader, e.Name)
		}

		if !httpguts.ValidHeaderFieldValue(string(e.Value)) {
			return fmt.Errorf("%w: value of %q contains invalid characters", ErrInvalidHeader, e.Name)
		}
	}

	return nil
}
