package webhook

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vitalvas/tlsigning/jwks"
	"github.com/vitalvas/tlsigning/tlsig"
)

// Verification results recorded by Metrics.
const (
	resultOK               = "ok"
	resultMissingSignature = "missing_signature"
	resultMalformed        = "malformed"
	resultKeyUnavailable   = "key_unavailable"
	resultHeaderMismatch   = "header_mismatch"
	resultBody             = "body"
	resultInvalid          = "invalid"
)

// Metrics counts webhook verifications by result.
type Metrics struct {
	verifications *prometheus.CounterVec
}

// NewMetrics creates verification metrics and registers them with reg. A
// nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tlsig",
			Subsystem: "webhook",
			Name:      "verifications_total",
			Help:      "Number of inbound signature verifications by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		if err := reg.Register(m.verifications); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observe(err error) {
	if m == nil {
		return
	}

	m.verifications.WithLabelValues(resultOf(err)).Inc()
}

// resultOf classifies a verification outcome for metrics and logs.
func resultOf(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, ErrMissingSignature):
		return resultMissingSignature
	case errors.Is(err, ErrBodyTooLarge), errors.Is(err, ErrBodyRead):
		return resultBody
	case errors.Is(err, tlsig.ErrMalformedSignature),
		errors.Is(err, tlsig.ErrUnsupportedAlgorithm),
		errors.Is(err, tlsig.ErrVersionNotAllowed):
		return resultMalformed
	case errors.Is(err, tlsig.ErrInvalidKey),
		errors.Is(err, jwks.ErrJKUMissing),
		errors.Is(err, jwks.ErrJKUNotAllowed),
		errors.Is(err, jwks.ErrFetchFailed):
		return resultKeyUnavailable
	case errors.Is(err, tlsig.ErrMissingDeclaredHeader),
		errors.Is(err, tlsig.ErrMissingRequiredHeader):
		return resultHeaderMismatch
	default:
		return resultInvalid
	}
}
