// Package types provides HTTP response type definitions.
package types

import "time"

// SuccessResponse 统一成功响应格式
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"requestId,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *SuccessResponse {
	return &SuccessResponse{
		Data: data,
	}
}

// WithRequestID 添加请求ID
func (r *SuccessResponse) WithRequestID(requestID string) *SuccessResponse {
	r.RequestID = requestID
	return r
}

// WithTimestamp 添加时间戳
func (r *SuccessResponse) WithTimestamp(t time.Time) *SuccessResponse {
	r.Timestamp = t.UTC().Format(time.RFC3339)
	return r
}

// ConversationInfo 当前请求绑定的长会话
type ConversationInfo struct {
	ID        string `json:"id,omitempty"`
	Transient bool   `json:"transient"`
	SessionID string `json:"sessionId,omitempty"`
	UseCount  int    `json:"useCount"`
}

// SessionInfo 当前请求的会话
type SessionInfo struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// AttributeResponse 作用域属性
type AttributeResponse struct {
	Scope string      `json:"scope"`
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
	Found bool        `json:"found"`
}

// ScopeStats 作用域运行统计
type ScopeStats struct {
	Sessions               int  `json:"sessions"`
	Conversations          int  `json:"conversations"`
	ConversationSupported  bool `json:"conversationSupported"`
	AutoConversationCheck  bool `json:"autoConversationCheck"`
	ApplicationInitialized bool `json:"applicationInitialized"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status     string                 `json:"status"` // healthy, unhealthy
	Liveness   string                 `json:"liveness"`
	Readiness  string                 `json:"readiness"`
	Uptime     string                 `json:"uptime"`
	Timestamp  string                 `json:"timestamp"`
	Components map[string]interface{} `json:"components"`
}
