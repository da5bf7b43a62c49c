package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderRequestID 请求追踪 ID 的请求/响应头
	HeaderRequestID = "X-Request-ID"

	requestIDKey = "request_id"

	// maxRequestIDLen 客户端传入 ID 的长度上限，超出则重新生成
	maxRequestIDLen = 128
)

// RequestID 为每个请求分配追踪 ID，沿用客户端传入的合法值
type RequestID struct{}

func NewRequestID() *RequestID {
	return &RequestID{}
}

// Middleware 返回Gin中间件
func (m *RequestID) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}

		c.Set(requestIDKey, requestID)
		c.Header(HeaderRequestID, requestID)

		c.Next()
	}
}

// validRequestID 非空、不超长且只含可见 ASCII 字符
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}

// GetRequestID 当前请求的追踪 ID，中间件未运行时退回请求头
func GetRequestID(c *gin.Context) string {
	if v := c.GetString(requestIDKey); v != "" {
		return v
	}
	return c.GetHeader(HeaderRequestID)
}
