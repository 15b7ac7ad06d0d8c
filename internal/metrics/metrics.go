package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the session instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	signIns         *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	sessionReads    *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		signIns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "signin_total",
			Help: "Sign-in attempts by outcome.",
		}, []string{"outcome"}),
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "session_refresh_total",
			Help: "Access token refresh attempts by outcome.",
		}, []string{"outcome"}),
		refreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "session_refresh_duration_seconds",
			Help:    "Latency of the backend refresh call.",
			Buckets: prometheus.DefBuckets,
		}),
		sessionReads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "session_read_total",
			Help: "Session reads by token phase.",
		}, []string{"phase"}),
	}
}

func (m *Metrics) SignIn(outcome string) {
	if m == nil {
		return
	}
	m.signIns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Refresh(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
	m.refreshDuration.Observe(took.Seconds())
}

func (m *Metrics) SessionRead(phase string) {
	if m == nil {
		return
	}
	m.sessionReads.WithLabelValues(phase).Inc()
}
