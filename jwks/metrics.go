package jwks

import "github.com/prometheus/client_golang/prometheus"

// Fetch results recorded by Metrics.
const (
	resultFetched    = "fetched"
	resultCached     = "cached"
	resultNotAllowed = "not_allowed"
	resultError      = "error"
)

// Metrics counts key set fetches by result.
type Metrics struct {
	fetches *prometheus.CounterVec
}

// NewMetrics creates fetch metrics and registers them with reg. A nil reg
// skips registration.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tlsig",
			Subsystem: "jwks",
			Name:      "fetches_total",
			Help:      "Number of JWKS lookups by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		if err := reg.Register(m.fetches); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observe(result string) {
	if m == nil {
		return
	}

	m.fetches.WithLabelValues(result).Inc()
}
