// Package metrics exposes control plane metrics for Prometheus scraping.
// Every Collector owns a private registry so tests and multiple servers in
// one process never collide on the global default registry.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cjrt007/Tornado.Ai/pkg/control"
)

// Compile-time interface check.
var _ control.Observer = (*Collector)(nil)

const namespace = "tornado"

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Collector records control surface, HTTP and MCP metrics.
type Collector struct {
	registry *prometheus.Registry

	// Counters
	updatesTotal   *prometheus.CounterVec
	patchesTotal   *prometheus.CounterVec
	requestsTotal  *prometheus.CounterVec
	toolCallsTotal *prometheus.CounterVec

	// Gauges
	records *prometheus.GaugeVec

	// Histograms
	requestDuration *prometheus.HistogramVec
}

// New creates a collector with its own registry. Go runtime and process
// collectors are registered alongside the control metrics.
func New() (*Collector, error) {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_updates_total",
			Help:      "Update batches processed by the control store",
		},
		[]string{"collection", "outcome"},
	)
	c.patchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_patches_total",
			Help:      "Individual patches submitted to the control store",
		},
		[]string{"collection"},
	)
	c.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served by the API",
		},
		[]string{"method", "route", "status"},
	)
	c.toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mcp_tool_calls_total",
			Help:      "MCP tool invocations",
		},
		[]string{"tool", "outcome"},
	)
	c.records = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "control_records",
			Help:      "Records currently held per control collection",
		},
		[]string{"collection"},
	)
	c.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"method", "route"},
	)

	all := []prometheus.Collector{
		c.updatesTotal,
		c.patchesTotal,
		c.requestsTotal,
		c.toolCallsTotal,
		c.records,
		c.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, col := range all {
		if err := c.registry.Register(col); err != nil {
			return nil, fmt.Errorf("metrics: registering collector: %w", err)
		}
	}
	return c, nil
}

// Registry exposes the private registry (tests gather from it).
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the exposition format for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveUpdate implements control.Observer.
func (c *Collector) ObserveUpdate(collection string, patches int, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeRejected
	}
	c.updatesTotal.WithLabelValues(collection, outcome).Inc()
	c.patchesTotal.WithLabelValues(collection).Add(float64(patches))
}

// ObserveSize implements control.Observer.
func (c *Collector) ObserveSize(features, roles, scanProfiles int) {
	c.records.WithLabelValues("features").Set(float64(features))
	c.records.WithLabelValues("roles").Set(float64(roles))
	c.records.WithLabelValues("scanProfiles").Set(float64(scanProfiles))
}

// ObserveRequest records one served HTTP request. Route is the mux pattern,
// never the raw path, to keep label cardinality bounded.
func (c *Collector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	c.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveToolCall records one MCP tool invocation.
func (c *Collector) ObserveToolCall(tool string, failed bool) {
	outcome := OutcomeOK
	if failed {
		outcome = OutcomeError
	}
	c.toolCallsTotal.WithLabelValues(tool, outcome).Inc()
}
