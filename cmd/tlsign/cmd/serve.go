package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vitalvas/tlsigning/config"
	"github.com/vitalvas/tlsigning/jwks"
	"github.com/vitalvas/tlsigning/tlsig"
	"github.com/vitalvas/tlsigning/webhook"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a webhook receiver that verifies Tl-Signature headers",
		Long: `Run an HTTP server that accepts POST requests on the configured path
and answers 401 Unauthorized unless the Tl-Signature header verifies.

Keys come from public_key_file when set, otherwise from the JWKS URL named
by each signature's jku, restricted to allowed_jkus.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.config
			if err := cfg.Validate(); err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			handler, err := newReceiver(cfg, root.logger, reg)
			if err != nil {
				return err
			}

			return serve(cmd.Context(), cfg.Listen, handler, root.logger)
		},
	}
}

// newReceiver builds the receiver router: the verified webhook route and,
// when configured, the metrics route.
func newReceiver(cfg *config.Config, logger logrus.FieldLogger, reg *prometheus.Registry) (http.Handler, error) {
	keys, err := keySource(cfg, logger, reg)
	if err != nil {
		return nil, err
	}

	metrics, err := webhook.NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	mw, err := webhook.Middleware(webhook.Config{
		Keys:            keys,
		RequiredHeaders: cfg.RequiredHeaders,
		AllowV1:         cfg.AllowV1,
		MaxBodyBytes:    cfg.MaxBodyBytes,
		Logger:          logger,
		Metrics:         metrics,
	})
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware(), recoveryMiddleware(logger))
	r.Handle(cfg.Path, mw(receiveHandler(logger))).Methods(http.MethodPost)

	if cfg.MetricsPath != "" {
		r.Handle(cfg.MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	return r, nil
}

func keySource(cfg *config.Config, logger logrus.FieldLogger, reg prometheus.Registerer) (webhook.KeySource, error) {
	if cfg.PublicKeyFile != "" {
		data, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read public key: %w", err)
		}

		if _, err := tlsig.ParsePublicKeyPEM(data); err != nil {
			return nil, err
		}

		return webhook.StaticKey(tlsig.PEMKey(data)), nil
	}

	metrics, err := jwks.NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	return jwks.New(jwks.Config{
		AllowedJKUs: cfg.AllowedJKUs,
		Logger:      logger,
		Metrics:     metrics,
	})
}

// receiveHandler acknowledges a verified webhook.
func receiveHandler(logger logrus.FieldLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fields := logrus.Fields{
			"path":       r.URL.Path,
			"request_id": requestIDFromContext(r.Context()),
		}

		if h, ok := webhook.HeaderFromContext(r.Context()); ok {
			fields["kid"] = h.Kid
			fields["tl_headers"] = h.TlHeaders
		}

		logger.WithFields(fields).Info("webhook received")
		w.WriteHeader(http.StatusAccepted)
	})
}

func serve(ctx context.Context, addr string, handler http.Handler, logger logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)

	go func() {
		logger.WithField("addr", addr).Info("webhook receiver listening")
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
