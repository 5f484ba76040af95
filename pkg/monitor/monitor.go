package monitor

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics API 层指标。websocket 状态流是长连接，只计入 ActiveStreams。
type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlight        prometheus.Gauge
	ActiveStreams   prometheus.Gauge
}

// HTTP 全局实例
var HTTP = newHTTPMetrics()

func newHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "HTTP request latency distributions, websocket streams excluded.",
			// 转账创建只做校验与入库，主要落在低位桶
			Buckets: []float64{0.005, 0.025, 0.1, 0.3, 1.0, 3.0},
		}, []string{"method", "path"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
		ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zerochain_status_streams_active",
			Help: "Open websocket transfer status streams.",
		}),
	}
}

func (m *HTTPMetrics) register(r prometheus.Registerer) {
	r.MustRegister(m.RequestsTotal, m.RequestDuration, m.InFlight, m.ActiveStreams)
}

var initOnce sync.Once

// Init 把 HTTP 与转账流水线指标注册到默认 registry，可以重复调用
func Init() {
	initOnce.Do(func() {
		HTTP.register(prometheus.DefaultRegisterer)
		Pipeline.register(prometheus.DefaultRegisterer)
	})
}

// PrometheusMiddleware 按路由模板 (/api/v1/transfers/:id) 统计，未匹配的路由不计
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			c.Next()
			return
		}

		if c.IsWebsocket() {
			HTTP.ActiveStreams.Inc()
			defer HTTP.ActiveStreams.Dec()
			c.Next()
			HTTP.RequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
			return
		}

		HTTP.InFlight.Inc()
		start := time.Now()
		c.Next()
		HTTP.InFlight.Dec()

		HTTP.RequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTP.RequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
