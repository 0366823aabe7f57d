package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vitalvas/tlsigning/tlsig"
)

// headerView is the printed form of a protected header.
type headerView struct {
	Alg       string   `json:"alg" yaml:"alg"`
	Kid       string   `json:"kid" yaml:"kid"`
	Version   string   `json:"tl_version" yaml:"tl_version"`
	TlHeaders []string `json:"tl_headers" yaml:"tl_headers"`
	JKU       string   `json:"jku,omitempty" yaml:"jku,omitempty"`
}

func newHeaderCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "header <signature>",
		Short: "Print the protected header of a Tl-Signature",
		Long: `Decode and print the protected header of a Tl-Signature value.

The signature is not verified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := tlsig.ExtractProtectedHeader(args[0])
			if err != nil {
				return err
			}

			declared := h.DeclaredHeaders()
			if declared == nil {
				declared = []string{}
			}

			return writeOutput(cmd.OutOrStdout(), output, headerView{
				Alg:       h.Alg,
				Kid:       h.Kid,
				Version:   string(h.Version()),
				TlHeaders: declared,
				JKU:       h.JKU,
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format: yaml, json")

	return cmd
}
