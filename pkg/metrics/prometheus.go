package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	sessions       *prometheus.CounterVec
	streamEvents   *prometheus.CounterVec
	malformed      prometheus.Counter
	signalsMatched *prometheus.CounterVec
	licenseChecks  *prometheus.CounterVec
	storeSignals   prometheus.Gauge
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a recorder registered on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		sessions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scandesk_scan_sessions_total",
				Help: "Scan sessions by terminal result",
			},
			[]string{"result"},
		),
		streamEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scandesk_stream_events_total",
				Help: "Stream events handled, by kind",
			},
			[]string{"kind"},
		),
		malformed: f.NewCounter(
			prometheus.CounterOpts{
				Name: "scandesk_malformed_events_total",
				Help: "Stream frames skipped because they could not be decoded",
			},
		),
		signalsMatched: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scandesk_signals_matched_total",
				Help: "Streamed signals matching the visible tab",
			},
			[]string{"direction"},
		),
		licenseChecks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scandesk_license_checks_total",
				Help: "License validations by outcome",
			},
			[]string{"result"},
		),
		storeSignals: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "scandesk_store_signals",
				Help: "Signals currently held in the client store",
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scandesk_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scandesk_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordSession(result string) {
	r.sessions.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordStreamEvent(kind string) {
	r.streamEvents.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordMalformedEvent() {
	r.malformed.Inc()
}

func (r *Recorder) RecordSignalMatched(direction string) {
	r.signalsMatched.WithLabelValues(direction).Inc()
}

func (r *Recorder) RecordLicenseCheck(result string) {
	r.licenseChecks.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordStoreSize(n int) {
	r.storeSignals.Set(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
