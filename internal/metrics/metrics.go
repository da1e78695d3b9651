package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	requests               *prometheus.CounterVec
	requestDuration        *prometheus.HistogramVec
	connections            prometheus.Gauge
	notificationsCreated   *prometheus.CounterVec
	notificationsDelivered *prometheus.CounterVec
	messagesDropped        prometheus.Counter
	biddingTransitions     *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(registry, registry)
}

func NewWithRegistry(registerer prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		gatherer: gatherer,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_connections",
			Help: "Open websocket connections.",
		}),
		notificationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Notifications persisted by type.",
		}, []string{"type"}),
		notificationsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_delivered_total",
			Help: "Realtime messages queued to clients by event.",
		}, []string{"event"}),
		messagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "realtime_messages_dropped_total",
			Help: "Realtime messages dropped because a client buffer was full.",
		}),
		biddingTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bidding_status_transitions_total",
			Help: "Bidding status changes by target status and origin.",
		}, []string{"status", "origin"}),
	}
	registerer.MustRegister(
		m.requests,
		m.requestDuration,
		m.connections,
		m.notificationsCreated,
		m.notificationsDelivered,
		m.messagesDropped,
		m.biddingTransitions,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) NotificationsCreated(notificationType string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.notificationsCreated.WithLabelValues(notificationType).Add(float64(count))
}

func (m *Metrics) MessageDelivered(event string) {
	if m == nil {
		return
	}
	m.notificationsDelivered.WithLabelValues(event).Inc()
}

func (m *Metrics) MessageDropped() {
	if m == nil {
		return
	}
	m.messagesDropped.Inc()
}

func (m *Metrics) BiddingTransition(status, origin string) {
	if m == nil {
		return
	}
	m.biddingTransitions.WithLabelValues(status, origin).Inc()
}
