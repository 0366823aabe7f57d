// Package cmd implements the tlsign CLI commands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vitalvas/tlsigning/config"
)

// Version is set at build time
var Version = "0.1.0"

type rootOptions struct {
	configPath string
	logLevel   string

	config *config.Config
	logger *logrus.Logger
}

// NewRootCommand builds the tlsign command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "tlsign",
		Short: "Sign and verify Tl-Signature request signatures",
		Long: `tlsign creates and checks Tl-Signature headers: ES512 detached JWS
signatures over an HTTP request's method, path, selected headers and body.

It can generate P-521 signing keys, sign and verify requests from the
command line, and run a webhook receiver that verifies inbound callbacks.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = opts.logLevel
			}

			level, err := logrus.ParseLevel(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}

			logger := logrus.New()
			logger.SetOutput(cmd.ErrOrStderr())
			logger.SetLevel(level)

			opts.config = cfg
			opts.logger = logger

			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	root.AddCommand(
		newKeygenCommand(),
		newSignCommand(opts),
		newVerifyCommand(),
		newHeaderCommand(),
		newServeCommand(opts),
	)

	return root
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// writeOutput encodes data as json or yaml.
func writeOutput(w io.Writer, format string, data any) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(data)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)

		if err := encoder.Encode(data); err != nil {
			return err
		}

		return encoder.Close()
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
