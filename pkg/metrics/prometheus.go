package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ORBLab/internal/domain/models"
	domrepo "ORBLab/internal/domain/repository"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	units     *prometheus.CounterVec
	outcomes  *prometheus.CounterVec
	ambiguous *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

var _ domrepo.Metrics = (*Recorder)(nil)

// New registers the recorder on the default registry. Call it once per process.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		units: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orb_units_total",
				Help: "Evaluated (date, strategy) units by status",
			},
			[]string{"status"},
		),
		outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orb_outcomes_total",
				Help: "Outcome rows by track and classification",
			},
			[]string{"track", "outcome"},
		),
		ambiguous: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orb_ambiguous_bars_total",
				Help: "Trades where stop and target were touched by the same bar",
			},
			[]string{"instrument"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orb_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orb_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordUnit(status string) {
	r.units.WithLabelValues(status).Inc()
}

func (r *Recorder) RecordOutcome(track models.Track, status models.OutcomeStatus) {
	r.outcomes.WithLabelValues(string(track), string(status)).Inc()
}

// RecordAmbiguity counts a conservative same-bar LOSS for instrument.
func (r *Recorder) RecordAmbiguity(instrument string) {
	r.ambiguous.WithLabelValues(instrument).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything. Used by the CLI and tests.
type Nop struct{}

var _ domrepo.Metrics = Nop{}

func (Nop) RecordUnit(string)                                {}
func (Nop) RecordOutcome(models.Track, models.OutcomeStatus) {}
func (Nop) RecordAmbiguity(string)                           {}
func (Nop) RecordError(string)                               {}
func (Nop) RecordLatency(string, float64)                    {}
