// Package types HTTP 错误响应的 Problem Details 结构
package types

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ProblemDetails Problem Details 结构（RFC7807 + 扩展字段）
type ProblemDetails struct {
	// RFC7807 标准字段
	Type     string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	Status   int    `json:"status,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// 扩展字段（必填）
	Code        string                 `json:"code"`
	Layer       string                 `json:"layer"`
	UserMessage string                 `json:"userMessage"`
	Details     map[string]interface{} `json:"details,omitempty"`
	TraceID     string                 `json:"traceId"`
	Timestamp   string                 `json:"timestamp"`
}

// Error 实现 error 接口
func (p *ProblemDetails) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.UserMessage
}

// WriteJSON 将 Problem Details 写入 HTTP 响应
func (p *ProblemDetails) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewProblemDetails 创建 Problem Details，traceId 为新生成的 UUID
func NewProblemDetails(
	code string,
	layer string,
	userMessage string,
	detail string,
	status int,
	details map[string]interface{},
) *ProblemDetails {
	if details == nil {
		details = make(map[string]interface{})
	}
	return &ProblemDetails{
		Title:       http.StatusText(status),
		Code:        code,
		Layer:       layer,
		UserMessage: userMessage,
		Detail:      detail,
		Status:      status,
		Details:     details,
		TraceID:     uuid.New().String(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

// IsProblemDetails 检查错误是否为 Problem Details
func IsProblemDetails(err error) (*ProblemDetails, bool) {
	if pd, ok := err.(*ProblemDetails); ok {
		return pd, true
	}
	return nil, false
}

// 错误码
const (
	// 长会话
	CodeConversationBusy    = "CONVERSATION_BUSY"
	CodeConversationMissing = "CONVERSATION_MISSING"
	CodeConversationState   = "CONVERSATION_ILLEGAL_STATE"

	// 会话与作用域
	CodeSessionNotFound  = "SESSION_NOT_FOUND"
	CodeScopeUnsupported = "SCOPE_UNSUPPORTED"
	CodeScopeNotBound    = "SCOPE_NOT_BOUND"

	// 通用
	CodeCommonValidationError    = "COMMON_VALIDATION_ERROR"
	CodeCommonNotFound           = "COMMON_NOT_FOUND"
	CodeCommonInternalError      = "COMMON_INTERNAL_ERROR"
	CodeCommonServiceUnavailable = "COMMON_SERVICE_UNAVAILABLE"
)

// Layer 常量
const (
	LayerScopeService = "scope-service"
	LayerHTTPGateway  = "http-gateway"
)
