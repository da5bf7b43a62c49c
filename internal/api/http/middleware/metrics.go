package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const unmatchedRoute = "unmatched"

// Metrics 指标收集中间件
type Metrics struct {
	logger          *zap.Logger
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseSize    *prometheus.SummaryVec
}

// NewMetrics 创建指标中间件，指标注册到 reg
func NewMetrics(reg prometheus.Registerer, logger *zap.Logger) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		logger: logger,
		requestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "scoped",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "scoped",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),
		responseSize: factory.NewSummaryVec(
			prometheus.SummaryOpts{
				Namespace:  "scoped",
				Subsystem:  "http",
				Name:       "response_size_bytes",
				Help:       "HTTP response size in bytes",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"method", "route"},
		),
	}
}

// Middleware 返回Gin中间件
//
// 标签使用路由模板而不是原始路径，避免会话或长会话标识进入标签值。
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		duration := time.Since(start)
		status := c.Writer.Status()

		m.requestCounter.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
		if size := c.Writer.Size(); size > 0 {
			m.responseSize.WithLabelValues(method, route).Observe(float64(size))
		}

		m.logger.Debug("Request metrics collected",
			zap.String("method", method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", duration),
		)
	}
}
