// Package metrics holds the Prometheus collectors of the verification pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"docverify/internal/model"
)

// Pipeline records verification and notification outcomes. A nil *Pipeline is a no-op.
type Pipeline struct {
	verifications *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	notifications *prometheus.CounterVec
}

// NewPipeline registers the pipeline collectors on reg.
func NewPipeline(reg prometheus.Registerer) (*Pipeline, error) {
	p := &Pipeline{
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verifications_total",
				Help: "Verification records produced, by status and document type.",
			},
			[]string{"status", "document_type"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "verification_duration_seconds",
				Help:    "Time from upload acceptance to an assembled record.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"status"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_total",
				Help: "Email notification delivery results.",
			},
			[]string{"result"},
		),
	}

	for _, c := range []prometheus.Collector{p.verifications, p.duration, p.notifications} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ObserveVerification counts rec and its processing time.
func (p *Pipeline) ObserveVerification(rec *model.VerificationRecord, elapsed time.Duration) {
	if p == nil || rec == nil {
		return
	}
	p.verifications.WithLabelValues(string(rec.Status), string(rec.DocumentType)).Inc()
	p.duration.WithLabelValues(string(rec.Status)).Observe(elapsed.Seconds())
}

// ObserveNotification counts one delivery result (sent, retried, dead_letter).
func (p *Pipeline) ObserveNotification(result string) {
	if p == nil {
		return
	}
	p.notifications.WithLabelValues(result).Inc()
}
