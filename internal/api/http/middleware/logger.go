package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	infralog "github.com/weisyn/scoped/pkg/interfaces/infrastructure/log"
)

// Logger 日志中间件
// 记录每个请求及其所属的会话与长会话
type Logger struct {
	logger infralog.Logger
}

// NewLogger 创建日志中间件（使用统一日志接口）
func NewLogger(logger infralog.Logger) *Logger {
	return &Logger{logger: logger}
}

// Middleware 返回Gin中间件
func (m *Logger) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		requestID := GetRequestID(c)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		sessionID := c.GetString(sessionIDKey)
		conversationID := c.GetString(conversationIDKey)

		if zl := m.logger.GetZapLogger(); zl != nil {
			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("method", c.Request.Method),
				zap.String("path", path),
				zap.String("query", query),
				zap.Int("status", status),
				zap.Duration("latency", latency),
				zap.String("client_ip", c.ClientIP()),
			}
			if sessionID != "" {
				fields = append(fields, zap.String("session_id", sessionID))
			}
			if conversationID != "" {
				fields = append(fields, zap.String("conversation_id", conversationID))
			}
			if len(c.Errors) > 0 {
				fields = append(fields, zap.String("errors", c.Errors.String()))
			}
			switch {
			case status >= 500:
				zl.Error("HTTP request", fields...)
			case status >= 400:
				zl.Warn("HTTP request", fields...)
			default:
				zl.Info("HTTP request", fields...)
			}
			return
		}

		msg := fmt.Sprintf("HTTP request | id=%s method=%s path=%s?%s status=%d latency=%s session=%s conversation=%s",
			requestID, c.Request.Method, path, query, status, latency, sessionID, conversationID)
		switch {
		case status >= 500:
			m.logger.Error(msg)
		case status >= 400:
			m.logger.Warn(msg)
		default:
			m.logger.Info(msg)
		}
	}
}
