package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vitalvas/tlsigning/tlsig"
)

var (
	okFmt   = color.New(color.FgGreen, color.Bold).SprintFunc()
	failFmt = color.New(color.FgRed, color.Bold).SprintFunc()
)

// errVerifyFailed is returned after the failure has been reported.
var errVerifyFailed = errors.New("signature verification failed")

func newVerifyCommand() *cobra.Command {
	var (
		req       requestFlags
		signature string
		pemFile   string
		jwksPath  string
		required  []string
		allowV1   bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a Tl-Signature against a request",
		Example: `  tlsign verify --pem public.pem --signature "$SIG" --path /payouts \
    -H 'Idempotency-Key: 619410b3-b00c-406e-bb1b-2982f97edb8b' \
    --body '{"amount_in_minor":100}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var key tlsig.PublicKey

			switch {
			case pemFile != "":
				data, err := os.ReadFile(pemFile)
				if err != nil {
					return fmt.Errorf("failed to read public key: %w", err)
				}

				key = tlsig.PEMKey(data)
			case jwksPath != "":
				data, err := os.ReadFile(jwksPath)
				if err != nil {
					return fmt.Errorf("failed to read jwks: %w", err)
				}

				key = tlsig.JWKSKey(data)
			}

			r, err := req.request()
			if err != nil {
				return err
			}

			err = tlsig.Verify(signature, r, tlsig.VerifyConfig{
				PublicKey:       key,
				RequiredHeaders: required,
				AllowV1:         allowV1,
			})
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %v\n", failFmt("FAILED"), err)
				return errVerifyFailed
			}

			fmt.Fprintln(cmd.OutOrStdout(), okFmt("OK"))

			return nil
		},
	}

	req.register(cmd)
	cmd.Flags().StringVarP(&signature, "signature", "s", "", "Tl-Signature header value")
	cmd.Flags().StringVar(&pemFile, "pem", "", "Public key PEM file")
	cmd.Flags().StringVar(&jwksPath, "jwks", "", "JWKS document file")
	cmd.Flags().StringArrayVar(&required, "require-header", nil, "Header the signature must cover, repeatable")
	cmd.Flags().BoolVar(&allowV1, "allow-v1", false, "Accept legacy body-only signatures")

	_ = cmd.MarkFlagRequired("signature")
	cmd.MarkFlagsOneRequired("pem", "jwks")
	cmd.MarkFlagsMutuallyExclusive("pem", "jwks")

	return cmd
}
