package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type producerMetrics struct {
	messages *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newProducerMetrics(reg prometheus.Registerer) *producerMetrics {
	f := promauto.With(reg)
	return &producerMetrics{
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scandesk",
			Subsystem: "kafka_producer",
			Name:      "messages_total",
			Help:      "Records handed to the Kafka writer, by outcome.",
		}, []string{"topic", "result"}),
		bytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scandesk",
			Subsystem: "kafka_producer",
			Name:      "bytes_total",
			Help:      "Encoded payload bytes handed to the Kafka writer.",
		}, []string{"topic", "compression"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scandesk",
			Subsystem: "kafka_producer",
			Name:      "write_seconds",
			Help:      "WriteMessages latency per call.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"topic"}),
	}
}

// observe is a no-op on a nil receiver so producers without a registerer
// skip instrumentation.
func (m *producerMetrics) observe(topic, compression string, size int64, n int, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.messages.WithLabelValues(topic, result).Add(float64(n))
	m.bytes.WithLabelValues(topic, compression).Add(float64(size))
	m.latency.WithLabelValues(topic).Observe(d.Seconds())
}
