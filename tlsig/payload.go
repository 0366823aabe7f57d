package tlsig

import (
	"bytes"
	"strings"
)

// BuildPayload builds the v2 signing payload:
//
//	METHOD SP path ['/'] LF
//	Name: value LF        (for each header, in order)
//	body
//
// The method is upper-cased. The path, header names, header values and
// body are used byte-for-byte. addTrailingSlash appends a '/' to the path.
func BuildPayload(method, path string, headers *Headers, body []byte, addTrailingSlash bool) []byte {
	var b bytes.Buffer

	b.WriteString(strings.ToUpper(method))
	b.WriteByte(' ')
	b.WriteString(path)

	if addTrailingSlash {
		b.WriteByte('/')
	}

	b.WriteByte('\n')

	for _, h := range headers.All() {
		b.WriteString(h.Name)
		b.WriteString(": ")
		b.Write(h.Value)
		b.WriteByte('\n')
	}

	b.Write(body)

	return b.Bytes()
}

// signingInput returns the JWS signing input header_b64 "." payload_b64.
func signingInput(headerB64 string, payload []byte) []byte {
	encoded := encodeSegment(payload)

	input := make([]byte, 0, len(headerB64)+1+len(encoded))
	input = append(input, headerB64...)
	input = append(input, '.')
	input = append(input, encoded...)

	return input
}

// toggleTrailingSlash returns the arguments for BuildPayload that flip the
// presence of a single trailing slash on path.
func toggleTrailingSlash(path string) (string, bool) {
	if trimmed, ok := strings.CutSuffix(path, "/"); ok {
		return trimmed, false
	}

	return path, true
}
