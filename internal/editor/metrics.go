package editor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the editor counters exported on /metrics. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	saves          *prometheus.CounterVec
	saveDuration   *prometheus.HistogramVec
	shares         *prometheus.CounterVec
	skipped        *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resumark",
			Subsystem: "editor",
			Name:      "saves_total",
			Help:      "Store persist calls by trigger and result.",
		}, []string{"trigger", "result"}),
		saveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "resumark",
			Subsystem: "editor",
			Name:      "save_duration_seconds",
			Help:      "Latency of store persist calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"trigger"}),
		shares: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resumark",
			Subsystem: "editor",
			Name:      "shares_total",
			Help:      "Store share calls by result.",
		}, []string{"result"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resumark",
			Subsystem: "editor",
			Name:      "saves_skipped_total",
			Help:      "Save requests rejected before reaching the store, by reason.",
		}, []string{"reason"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "resumark",
			Subsystem: "editor",
			Name:      "active_sessions",
			Help:      "Open editor sessions.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.saves, m.saveDuration, m.shares, m.skipped, m.activeSessions)
	}

	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) observeSave(trigger Trigger, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(string(trigger), result(err)).Inc()
	m.saveDuration.WithLabelValues(string(trigger)).Observe(took.Seconds())
}

func (m *Metrics) observeShare(err error) {
	if m == nil {
		return
	}
	m.shares.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) observeSkip(reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) sessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) sessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
