package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/kpfaulkner/featuretables/pkg/rpc"
)

// Metrics holds the server's prometheus collectors.
type Metrics struct {
	Requests     *prometheus.CounterVec
	Latency      *prometheus.HistogramVec
	RowsAppended prometheus.Counter

	registry *prometheus.Registry
}

func NewMetrics() *Metrics {
	m := Metrics{}
	m.registry = prometheus.NewRegistry()
	m.Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "featuretables_requests_total",
		Help: "Tables requests by method and status code.",
	}, []string{"method", "code"})
	m.Latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "featuretables_request_seconds",
		Help:    "Tables request latency.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"method"})
	m.RowsAppended = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "featuretables_rows_appended_total",
		Help: "Rows appended across all tables.",
	})
	m.registry.MustRegister(m.Requests, m.Latency, m.RowsAppended)
	return &m
}

// Handler serves the metrics in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// UnaryInterceptor records request metrics.
func (m *Metrics) UnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	method := info.FullMethod[len(rpc.ServiceName)+2:]
	start := time.Now()

	resp, err := handler(ctx, req)

	m.Requests.WithLabelValues(method, status.Code(err).String()).Inc()
	m.Latency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	return resp, err
}
