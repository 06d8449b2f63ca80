package middleware

import (
	"strconv"
	"time"

	applogger "ScanDesk/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type requestMetrics struct {
	total    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight prometheus.Gauge
	bytes    *prometheus.CounterVec
}

func newRequestMetrics(reg prometheus.Registerer) *requestMetrics {
	f := promauto.With(reg)
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: "scandesk", Subsystem: "http", Name: name, Help: help}
	}
	return &requestMetrics{
		total: f.NewCounterVec(
			prometheus.CounterOpts(opts("requests_total", "Dashboard API requests by route and status.")),
			[]string{"route", "method", "status"},
		),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scandesk",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Dashboard API latency by route.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"route", "method"}),
		inFlight: f.NewGauge(
			prometheus.GaugeOpts(opts("in_flight_requests", "Requests currently being served.")),
		),
		bytes: f.NewCounterVec(
			prometheus.CounterOpts(opts("response_bytes_total", "Response body bytes by route.")),
			[]string{"route"},
		),
	}
}

// Metrics instruments every request on reg, labelled by echo route template
// rather than raw path. Requests slower than slow are logged.
func Metrics(reg prometheus.Registerer, l *applogger.Logger, slow time.Duration) echo.MiddlewareFunc {
	m := newRequestMetrics(reg)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.inFlight.Inc()
			defer m.inFlight.Dec()
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			res := c.Response()
			took := time.Since(start)

			m.total.WithLabelValues(route, method, strconv.Itoa(res.Status)).Inc()
			m.latency.WithLabelValues(route, method).Observe(took.Seconds())
			m.bytes.WithLabelValues(route).Add(float64(res.Size))

			if slow > 0 && took >= slow {
				l.Warn("slow request",
					applogger.String("route", route),
					applogger.Int("status", res.Status),
					applogger.Duration("took_ms", took),
					applogger.Int64("bytes", res.Size),
				)
			}
			return nil
		}
	}
}
