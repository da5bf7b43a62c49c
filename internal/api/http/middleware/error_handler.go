package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apitypes "github.com/weisyn/scoped/internal/api/types"
)

// ErrorHandler 错误处理中间件
//
// 处理器通过 c.Error 登记的最后一个错误被转换为 Problem Details 写出。
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		problem := ProblemFromError(err)
		if problem.Code == apitypes.CodeCommonInternalError {
			problem.Details["path"] = c.Request.URL.Path
			problem.Detail = fmt.Sprintf("Internal error: %v", err)
		}

		logger.Warn("HTTP error",
			zap.String("code", problem.Code),
			zap.String("traceId", problem.TraceID),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		problem.WriteJSON(c.Writer)
		c.Abort()
	}
}

// WriteProblemDetails 写入 Problem Details 响应
func WriteProblemDetails(c *gin.Context, problem *apitypes.ProblemDetails) {
	c.Header("Content-Type", "application/problem+json")
	c.JSON(problem.Status, problem)
	c.Abort()
}

// WriteError 写入错误响应（自动转换为 Problem Details）
func WriteError(c *gin.Context, code string, userMessage string, detail string, status int, details map[string]interface{}) {
	problem := apitypes.NewProblemDetails(
		code,
		apitypes.LayerHTTPGateway,
		userMessage,
		detail,
		status,
		details,
	)
	WriteProblemDetails(c, problem)
}
