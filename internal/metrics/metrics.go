// Package metrics records quote-store activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives events from the quote services. Implementations must be
// safe for concurrent use.
type Recorder interface {
	QuoteSaved(mode string)
	QuoteRejected(reason string)
	DocumentSaved(elapsed time.Duration, err error)
}

// Nop discards every event.
type Nop struct{}

func (Nop) QuoteSaved(string)                   {}
func (Nop) QuoteRejected(string)                {}
func (Nop) DocumentSaved(time.Duration, error) {}

// Prometheus exports events as Prometheus collectors.
type Prometheus struct {
	saved    *prometheus.CounterVec
	rejected *prometheus.CounterVec
	writes   *prometheus.CounterVec
	latency  prometheus.Histogram
}

// NewPrometheus builds the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		saved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quotes",
			Name:      "saved_total",
			Help:      "Quotes saved, by mode (create or update).",
		}, []string{"mode"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quotes",
			Name:      "rejected_total",
			Help:      "Quote saves rejected by validation, by reason code.",
		}, []string{"reason"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quotes",
			Name:      "document_writes_total",
			Help:      "Document writes through the persistence gateway, by result.",
		}, []string{"result"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quotes",
			Name:      "document_write_seconds",
			Help:      "Latency of document writes.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(p.saved, p.rejected, p.writes, p.latency)
	return p
}

func (p *Prometheus) QuoteSaved(mode string) {
	p.saved.WithLabelValues(mode).Inc()
}

func (p *Prometheus) QuoteRejected(reason string) {
	p.rejected.WithLabelValues(reason).Inc()
}

func (p *Prometheus) DocumentSaved(elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.writes.WithLabelValues(result).Inc()
	p.latency.Observe(elapsed.Seconds())
}
