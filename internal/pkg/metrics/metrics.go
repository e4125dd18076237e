package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 推送事件处理结果
const (
	ResultApplied   = "applied"
	ResultDuplicate = "duplicate"
	ResultIgnored   = "ignored"
	ResultMalformed = "malformed"
)

// 发布结果
const (
	PublishSent    = "sent"
	PublishDropped = "dropped"
	PublishFailed  = "failed"
)

// 乐观更新结果
const (
	MutationCommitted  = "committed"
	MutationRolledBack = "rolled_back"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibeshare_http_requests_total",
			Help: "Total number of local state API requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vibeshare_http_request_duration_seconds",
			Help:    "Local state API latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	pushEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibeshare_push_events_total",
			Help: "Total number of inbound push events by channel and result.",
		},
		[]string{"channel", "result"},
	)
	publishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibeshare_publish_total",
			Help: "Total number of outbound publishes by destination and result.",
		},
		[]string{"destination", "result"},
	)
	mutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibeshare_optimistic_mutations_total",
			Help: "Total number of optimistic mutations by action and outcome.",
		},
		[]string{"action", "result"},
	)
	restFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibeshare_rest_failures_total",
			Help: "Total number of failed backend REST calls.",
		},
		[]string{"operation"},
	)
	transportConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vibeshare_transport_connected",
			Help: "1 when the push transport is connected.",
		},
	)
	transportReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vibeshare_transport_reconnects_total",
			Help: "Total number of push transport connection attempts after the first.",
		},
	)
	eventStreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vibeshare_event_stream_clients",
			Help: "Number of connected local event stream clients.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		pushEventsTotal,
		publishTotal,
		mutationsTotal,
		restFailuresTotal,
		transportConnected,
		transportReconnectsTotal,
		eventStreamClients,
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

// Handler /metrics 暴露
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func IncPushEvent(channel, result string) {
	pushEventsTotal.WithLabelValues(channel, result).Inc()
}

func IncPublish(destination, result string) {
	publishTotal.WithLabelValues(destination, result).Inc()
}

func IncMutation(action, result string) {
	mutationsTotal.WithLabelValues(action, result).Inc()
}

func IncRestFailure(operation string) {
	restFailuresTotal.WithLabelValues(operation).Inc()
}

func SetTransportConnected(connected bool) {
	if connected {
		transportConnected.Set(1)
		return
	}
	transportConnected.Set(0)
}

func IncTransportReconnect() {
	transportReconnectsTotal.Inc()
}

func IncEventStreamClients() {
	eventStreamClients.Inc()
}

func DecEventStreamClients() {
	eventStreamClients.Dec()
}
