package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeFire     = "fire"
	outcomeNoFire   = "no_fire"
	outcomeRejected = "rejected"
	outcomeInvalid  = "invalid"
	outcomeError    = "error"
)

// Metrics counts prediction outcomes. A nil *Metrics records nothing.
type Metrics struct {
	predictions *prometheus.CounterVec
	duration    prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "firedetect",
			Name:      "predictions_total",
			Help:      "Prediction requests by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "firedetect",
			Name:      "predict_duration_seconds",
			Help:      "Time spent shaping, validating and classifying a reading.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
	}
	reg.MustRegister(m.predictions, m.duration)
	return m
}

func (m *Metrics) count(outcome string) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observe(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

// Predictions reports the counter for one outcome label.
func (m *Metrics) Predictions(outcome string) prometheus.Counter {
	return m.predictions.WithLabelValues(outcome)
}
