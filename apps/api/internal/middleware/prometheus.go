package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ==================== 指标定义 ====================

var (
	// httpRequestTotal HTTP 请求总数
	httpRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetserver_http_requests_total",
			Help: "HTTP 请求总数，按方法、路由、状态码统计",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration HTTP 请求耗时
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meetserver_http_request_duration_seconds",
			Help:    "HTTP 请求耗时分布",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// connectionOutcomeTotal 打招呼结果计数
	connectionOutcomeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetserver_connection_outcome_total",
			Help: "打招呼请求结果统计",
		},
		[]string{"outcome"},
	)
)

// ObserveConnectionOutcome 记录一次打招呼结果（created / already_exists / cooldown）
func ObserveConnectionOutcome(outcome string) {
	connectionOutcomeTotal.WithLabelValues(outcome).Inc()
}

// PrometheusMiddleware HTTP 监控中间件
// 使用路由模板（c.FullPath）做 path 标签，避免路径参数导致标签爆炸。
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			// 未命中任何路由（404），统一归类
			path = "unmatched"
		}

		httpRequestTotal.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		httpRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
		).Observe(time.Since(start).Seconds())
	}
}
