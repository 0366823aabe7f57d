package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vitalvas/tlsigning/tlsig"
)

const (
	privateKeyFile = "private.pem"
	publicKeyFile  = "public.pem"
	jwksFile       = "jwks.json"
)

func newKeygenCommand() *cobra.Command {
	var (
		kid   string
		out   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a P-521 signing key pair",
		Long: `Generate a P-521 key pair for ES512 signing.

Writes private.pem, public.pem and a jwks.json containing the public key
to the output directory. The key id defaults to a random UUID.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if kid == "" {
				kid = uuid.NewString()
			}

			key, err := tlsig.GenerateKey()
			if err != nil {
				return fmt.Errorf("failed to generate key: %w", err)
			}

			privPEM, err := tlsig.MarshalPrivateKeyPEM(key)
			if err != nil {
				return err
			}

			pubPEM, err := tlsig.MarshalPublicKeyPEM(&key.PublicKey)
			if err != nil {
				return err
			}

			jwk, err := tlsig.PublicJWK(kid, &key.PublicKey)
			if err != nil {
				return err
			}

			doc, err := tlsig.MarshalJWKS(jwk)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(out, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			files := []struct {
				name string
				data []byte
				mode os.FileMode
			}{
				{name: privateKeyFile, data: privPEM, mode: 0o600},
				{name: publicKeyFile, data: pubPEM, mode: 0o644},
				{name: jwksFile, data: doc, mode: 0o644},
			}

			for _, f := range files {
				if err := writeFile(filepath.Join(out, f.name), f.data, f.mode, force); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "kid: %s\n", kid)

			return nil
		},
	}

	cmd.Flags().StringVar(&kid, "kid", "", "Key id (default: random UUID)")
	cmd.Flags().StringVarP(&out, "out", "o", ".", "Output directory")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func writeFile(path string, data []byte, mode os.FileMode, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, mode)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}

		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return f.Close()
}
