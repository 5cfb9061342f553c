package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total number of HTTP requests processed by the relay service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_active_connections",
			Help: "Number of active chat connections.",
		},
	)
	authTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_auth_total",
			Help: "Total number of authentication attempts.",
		},
		[]string{"outcome"},
	)
	messagesRoutedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_routed_total",
			Help: "Total number of routed messages by delivery outcome.",
		},
		[]string{"outcome"},
	)
	receiptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_delivery_receipts_total",
			Help: "Total number of delivery receipts pushed to senders.",
		},
	)
	offlineReplayedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_offline_messages_replayed_total",
			Help: "Total number of messages replayed to reconnecting users.",
		},
	)
	persistenceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_persistence_errors_total",
			Help: "Total number of persistence gateway failures by operation.",
		},
		[]string{"operation"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		authTotal,
		messagesRoutedTotal,
		receiptsTotal,
		offlineReplayedTotal,
		persistenceErrorsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncAuth(outcome string) {
	authTotal.WithLabelValues(outcome).Inc()
}

func IncMessageRouted(outcome string) {
	messagesRoutedTotal.WithLabelValues(outcome).Inc()
}

func IncReceipt() {
	receiptsTotal.Inc()
}

func AddOfflineReplayed(n int) {
	offlineReplayedTotal.Add(float64(n))
}

func IncPersistenceError(operation string) {
	persistenceErrorsTotal.WithLabelValues(operation).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
