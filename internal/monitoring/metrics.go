// Package monitoring exposes Prometheus metrics for the persistence
// engine. All recording helpers are safe on a nil *Metrics so tests and
// minimal wiring can skip metric registration entirely.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Save/restore outcomes
	SessionsSaved     prometheus.Counter
	SessionsRestored  prometheus.Counter
	SaveFailures      prometheus.Counter
	RestoreFailures   prometheus.Counter
	TerminalsRestored prometheus.Counter

	// Extraction round trips
	ExtractionTimeouts prometheus.Counter

	// Record size at save time
	RecordBytes prometheus.Histogram

	// Webview bridge
	BridgeConnections prometheus.Gauge
	BridgeMessages    *prometheus.CounterVec
}

// New creates a metrics collector registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SessionsSaved: factory.NewCounter(prometheus.CounterOpts{
			Name: "termsession_saves_total",
			Help: "Total number of successful session saves",
		}),
		SessionsRestored: factory.NewCounter(prometheus.CounterOpts{
			Name: "termsession_restores_total",
			Help: "Total number of successful session restores",
		}),
		SaveFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "termsession_save_failures_total",
			Help: "Total number of failed session saves",
		}),
		RestoreFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "termsession_restore_failures_total",
			Help: "Total number of failed session restores",
		}),
		TerminalsRestored: factory.NewCounter(prometheus.CounterOpts{
			Name: "termsession_terminals_restored_total",
			Help: "Total number of terminals recreated by restores",
		}),
		ExtractionTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "termsession_extraction_timeouts_total",
			Help: "Total number of scrollback extraction requests that timed out",
		}),
		RecordBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "termsession_record_bytes",
			Help:    "Serialized session record size at save time",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}),
		BridgeConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "termsession_bridge_connections",
			Help: "Current number of terminal surface connections",
		}),
		BridgeMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "termsession_bridge_messages_total",
			Help: "Messages exchanged with the terminal surface",
		}, []string{"direction", "kind"}),
	}
}

// NewDefault creates a metrics collector on the default registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

// RecordSave registers a save outcome and record size.
func (m *Metrics) RecordSave(ok bool, sizeBytes int) {
	if m == nil {
		return
	}
	if ok {
		m.SessionsSaved.Inc()
		if sizeBytes > 0 {
			m.RecordBytes.Observe(float64(sizeBytes))
		}
	} else {
		m.SaveFailures.Inc()
	}
}

// RecordRestore registers a restore outcome and terminal count.
func (m *Metrics) RecordRestore(ok bool, terminals int) {
	if m == nil {
		return
	}
	if ok {
		m.SessionsRestored.Inc()
		m.TerminalsRestored.Add(float64(terminals))
	} else {
		m.RestoreFailures.Inc()
	}
}

// RecordExtractionTimeout registers one extraction deadline miss.
func (m *Metrics) RecordExtractionTimeout() {
	if m == nil {
		return
	}
	m.ExtractionTimeouts.Inc()
}

// RecordBridgeMessage registers one message on the surface channel.
func (m *Metrics) RecordBridgeMessage(direction, kind string) {
	if m == nil {
		return
	}
	m.BridgeMessages.WithLabelValues(direction, kind).Inc()
}

// BridgeConnected adjusts the connection gauge.
func (m *Metrics) BridgeConnected(delta float64) {
	if m == nil {
		return
	}
	m.BridgeConnections.Add(delta)
}
