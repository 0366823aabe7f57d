package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vitalvas/tlsigning/tlsig"
)

// requestFlags describes the request being signed or verified.
type requestFlags struct {
	method   string
	path     string
	headers  []string
	body     string
	bodyFile string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.method, "method", "X", tlsig.DefaultMethod, "Request method")
	cmd.Flags().StringVar(&f.path, "path", "", "Request path, starting with '/'")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, "Request header 'Name: value', repeatable")
	cmd.Flags().StringVar(&f.body, "body", "", "Request body")
	cmd.Flags().StringVar(&f.bodyFile, "body-file", "", "Read the request body from a file")

	_ = cmd.MarkFlagRequired("path")
	cmd.MarkFlagsMutuallyExclusive("body", "body-file")
}

func (f *requestFlags) request() (tlsig.Request, error) {
	headers, err := parseHeaders(f.headers)
	if err != nil {
		return tlsig.Request{}, err
	}

	body := []byte(f.body)

	if f.bodyFile != "" {
		body, err = os.ReadFile(f.bodyFile)
		if err != nil {
			return tlsig.Request{}, fmt.Errorf("failed to read body: %w", err)
		}
	}

	return tlsig.Request{
		Method:  f.method,
		Path:    f.path,
		Headers: headers,
		Body:    body,
	}, nil
}

// parseHeaders parses "Name: value" pairs in order.
func parseHeaders(values []string) (*tlsig.Headers, error) {
	headers := tlsig.NewHeaders()

	for _, v := range values {
		name, value, ok := strings.Cut(v, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", v)
		}

		headers.Set(strings.TrimSpace(name), []byte(strings.TrimLeft(value, " \t")))
	}

	return headers, nil
}
