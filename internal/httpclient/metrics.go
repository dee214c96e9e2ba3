package httpclient

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsTransport records a request counter and a latency histogram for
// every request passing through it.
type MetricsTransport struct {
	Transport http.RoundTripper

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetricsTransport registers the client metrics with reg and wraps
// transport. Registering twice on the same registry reuses the collectors
// that are already there.
func NewMetricsTransport(transport http.RoundTripper, reg prometheus.Registerer) (*MetricsTransport, error) {
	if transport == nil {
		transport = http.DefaultTransport
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "caldav_client_requests_total",
		Help: "Total number of DAV requests sent, by method and response code.",
	}, []string{"method", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "caldav_client_request_duration_seconds",
		Help:    "Histogram of DAV request latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	var err error
	if requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}

	return &MetricsTransport{
		Transport: transport,
		requests:  requests,
		duration:  duration,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RoundTrip implements http.RoundTripper.
func (t *MetricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.Transport.RoundTrip(req)
	t.duration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

	code := "error"
	if err == nil && resp != nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	t.requests.WithLabelValues(req.Method, code).Inc()
	return resp, err
}
