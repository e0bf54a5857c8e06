package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "corebank"

// Metrics owns a private registry so each service exposes only its own series.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	movementsPosted   *prometheus.CounterVec
	movementsRejected *prometheus.CounterVec
	customerEvents    *prometheus.CounterVec
	eventsPublished   *prometheus.CounterVec
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

func New(service string) *Metrics {
	labels := prometheus.Labels{"service": service}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		movementsPosted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "movements_posted_total",
			Help:        "Movements appended to the ledger, by kind.",
			ConstLabels: labels,
		}, []string{"kind"}),
		movementsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "movements_rejected_total",
			Help:        "Movements rejected, by reason.",
			ConstLabels: labels,
		}, []string{"reason"}),
		customerEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "customer_events_consumed_total",
			Help:        "Customer events handled by the synchronizer, by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "events_published_total",
			Help:        "Events handed to the bus, by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "http_requests_total",
			Help:        "HTTP requests, by method, route and status.",
			ConstLabels: labels,
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.movementsPosted,
		m.movementsRejected,
		m.customerEvents,
		m.eventsPublished,
		m.requestsTotal,
		m.requestDuration,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) MovementPosted(kind string) {
	if m == nil {
		return
	}
	m.movementsPosted.WithLabelValues(kind).Inc()
}

func (m *Metrics) MovementRejected(reason string) {
	if m == nil {
		return
	}
	m.movementsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) CustomerEvent(result string) {
	if m == nil {
		return
	}
	m.customerEvents.WithLabelValues(result).Inc()
}

func (m *Metrics) EventPublished(result string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(result).Inc()
}

// GinMiddleware records one counter and one latency sample per request, keyed
// by the matched route template.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
