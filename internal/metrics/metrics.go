// Package metrics owns the prometheus registry and the collectors the
// server, gateway and store report into.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Registry *prometheus.Registry

	RPCs        *prometheus.CounterVec
	RPCDuration *prometheus.HistogramVec
	HTTP        *prometheus.CounterVec
	StoreOps    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RPCs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skytrack_grpc_requests_total",
				Help: "gRPC requests by method and status code",
			},
			[]string{"method", "code"},
		),
		RPCDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "skytrack_grpc_request_duration_seconds",
				Help:    "gRPC request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		HTTP: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skytrack_http_requests_total",
				Help: "Gateway HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		StoreOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skytrack_store_operations_total",
				Help: "Store mutations by collection, operation and result",
			},
			[]string{"kind", "op", "result"},
		),
	}
	m.Registry.MustRegister(
		m.RPCs, m.RPCDuration, m.HTTP, m.StoreOps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// StoreOp counts one store mutation. It is shaped to plug into store.WithObserver.
func (m *Metrics) StoreOp(kind, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StoreOps.WithLabelValues(kind, op, result).Inc()
}

// WatchWorkspaces exports count as the number of open workspaces.
func (m *Metrics) WatchWorkspaces(count func() int) {
	m.Registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "skytrack_open_workspaces",
			Help: "Users whose collections are loaded in memory",
		},
		func() float64 { return float64(count()) },
	))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
