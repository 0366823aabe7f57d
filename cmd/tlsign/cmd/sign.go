package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vitalvas/tlsigning/tlsig"
)

func newSignCommand(root *rootOptions) *cobra.Command {
	var (
		req     requestFlags
		kid     string
		keyFile string
		jku     string
		v1      bool
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the Tl-Signature for a request",
		Long: `Sign a request and print the Tl-Signature header value.

The key id and private key default to signing.key_id and
signing.private_key_file from the config file.`,
		Example: `  tlsign sign --kid $KID --key private.pem --path /payouts \
    -H 'Idempotency-Key: 619410b3-b00c-406e-bb1b-2982f97edb8b' \
    --body '{"amount_in_minor":100}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if kid == "" && root.config != nil {
				kid = root.config.Signing.KeyID
			}

			if keyFile == "" && root.config != nil {
				keyFile = root.config.Signing.PrivateKeyFile
			}

			if keyFile == "" {
				return errors.New("a private key is required, use --key")
			}

			pem, err := os.ReadFile(keyFile)
			if err != nil {
				return fmt.Errorf("failed to read private key: %w", err)
			}

			cfg, err := tlsig.NewSignConfig(kid, pem)
			if err != nil {
				return err
			}

			cfg.JKU = jku

			r, err := req.request()
			if err != nil {
				return err
			}

			var signature string
			if v1 {
				signature, err = tlsig.SignBodyOnly(r.Body, cfg)
			} else {
				signature, err = tlsig.Sign(r, cfg)
			}

			if err != nil {
				return err
			}

			root.logger.WithField("kid", kid).Debug("request signed")
			fmt.Fprintln(cmd.OutOrStdout(), signature)

			return nil
		},
	}

	req.register(cmd)
	cmd.Flags().StringVar(&kid, "kid", "", "Signing key id")
	cmd.Flags().StringVar(&keyFile, "key", "", "Private key PEM file")
	cmd.Flags().StringVar(&jku, "jku", "", "JWKS URL to place in the signature header")
	cmd.Flags().BoolVar(&v1, "v1", false, "Produce a legacy body-only signature")

	return cmd
}
