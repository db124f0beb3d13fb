package transport

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what the Facade sees. A nil *Metrics records nothing.
type Metrics struct {
	requests     *prometheus.CounterVec
	authFailures prometheus.Counter
	invalidated  prometheus.Counter
	duration     *prometheus.HistogramVec
}

// NewMetrics creates the Facade collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Backend requests issued through the client facade.",
		}, []string{"method", "code"}),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "client",
			Name:      "auth_failures_total",
			Help:      "Responses with status 401.",
		}),
		invalidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "client",
			Name:      "sessions_invalidated_total",
			Help:      "Sessions cleared after the backend refused the credential.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Backend round trip latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.requests, m.authFailures, m.invalidated, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(method string, status int, seconds float64) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status/100) + "xx"
	}
	m.requests.WithLabelValues(method, code).Inc()
	m.duration.WithLabelValues(method).Observe(seconds)
}

func (m *Metrics) authFailure(cleared bool) {
	if m == nil {
		return
	}
	m.authFailures.Inc()
	if cleared {
		m.invalidated.Inc()
	}
}
