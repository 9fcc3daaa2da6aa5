// Package metrics exposes the daemon's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Registry       *prometheus.Registry
	Requests       *prometheus.CounterVec
	AuthRejections *prometheus.CounterVec
}

// New builds a dedicated registry. active reports the number of channels
// currently cooling down.
func New(active func() float64) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sblp_requests_total",
			Help: "Inbound bump requests by terminal outcome.",
		}, []string{"outcome"}),
		AuthRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sblp_auth_rejections_total",
			Help: "Rejected bump requests by authentication failure reason.",
		}, []string{"reason"}),
	}
	m.Registry.MustRegister(m.Requests, m.AuthRejections)

	if active != nil {
		m.Registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "sblp_cooldowns_active",
			Help: "Channels currently holding a cooldown entry.",
		}, active))
	}
	return m
}

// Outcome labels for Requests.
const (
	OutcomeFinished  = "finished"
	OutcomeFailed    = "failed"
	OutcomeTimeout   = "timeout"
	OutcomeCooldown  = "cooldown"
	OutcomeRejected  = "auth_rejected"
	OutcomeNotReady  = "not_ready"
	OutcomeMalformed = "malformed"
)
