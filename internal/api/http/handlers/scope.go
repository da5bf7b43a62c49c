// Package handlers 作用域 HTTP 端点
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/weisyn/scoped/internal/api/http/middleware"
	"github.com/weisyn/scoped/internal/api/http/types"
	apitypes "github.com/weisyn/scoped/internal/api/types"
	scopecore "github.com/weisyn/scoped/internal/core/scope"
	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

// ScopeHandler 长会话、会话与作用域属性端点
type ScopeHandler struct {
	manager       *scopecore.Manager
	conversations *scopecore.ConversationManager
	scope         *middleware.Scope
	logger        *zap.Logger
}

// NewScopeHandler 创建作用域处理器
func NewScopeHandler(
	manager *scopecore.Manager,
	conversations *scopecore.ConversationManager,
	scopeMiddleware *middleware.Scope,
	logger *zap.Logger,
) *ScopeHandler {
	return &ScopeHandler{
		manager:       manager,
		conversations: conversations,
		scope:         scopeMiddleware,
		logger:        logger,
	}
}

// RegisterRoutes 注册路由
func (h *ScopeHandler) RegisterRoutes(r *gin.RouterGroup) {
	conversation := r.Group("/conversation")
	{
		conversation.GET("", h.GetConversation)
		conversation.POST("/begin", h.BeginConversation)
		conversation.POST("/end", h.EndConversation)
	}

	sess := r.Group("/session")
	{
		sess.GET("", h.GetSession)
		sess.DELETE("", h.InvalidateSession)
		sess.POST("/rotate", h.RotateSession)
	}

	r.GET("/scopes", h.GetStats)
	attributes := r.Group("/scopes/:kind/attributes")
	{
		attributes.GET("/:name", h.GetAttribute)
		attributes.PUT("/:name", h.PutAttribute)
		attributes.DELETE("/:name", h.DeleteAttribute)
	}
}

type beginConversationRequest struct {
	ID      string `json:"id"`
	Timeout string `json:"timeout"`
}

type attributeRequest struct {
	Value interface{} `json:"value"`
}

// GetConversation GET /conversation
func (h *ScopeHandler) GetConversation(c *gin.Context) {
	u := middleware.UnitFrom(c)
	if u == nil {
		_ = c.Error(middleware.ErrScopeNotBound)
		return
	}
	if !h.manager.SupportsConversation() {
		_ = c.Error(scopecore.WrapUnsupportedScopeError(scope.ConversationScoped))
		return
	}
	ctx := u.Conversation()
	if ctx == nil {
		middleware.WriteError(c, apitypes.CodeCommonNotFound, "当前请求没有长会话。", "", http.StatusNotFound, nil)
		return
	}
	ref := ctx.Conversation()
	h.ok(c, types.ConversationInfo{
		ID:        ref.ID(),
		Transient: ref.IsTransient(),
		SessionID: ref.SessionID(),
		UseCount:  ref.UseCount(),
	})
}

// BeginConversation POST /conversation/begin
//
// 请求体可选：{"id": "...", "timeout": "10m"}
func (h *ScopeHandler) BeginConversation(c *gin.Context) {
	u := middleware.UnitFrom(c)
	if u == nil {
		_ = c.Error(middleware.ErrScopeNotBound)
		return
	}

	var body beginConversationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			middleware.WriteError(c, apitypes.CodeCommonValidationError, "请求体格式错误。", err.Error(), http.StatusBadRequest, nil)
			return
		}
	}
	var timeout time.Duration
	if body.Timeout != "" {
		d, err := time.ParseDuration(body.Timeout)
		if err != nil || d < 0 {
			middleware.WriteError(c, apitypes.CodeCommonValidationError, "timeout 必须是非负时长。", body.Timeout, http.StatusBadRequest, nil)
			return
		}
		timeout = d
	}

	id, err := h.manager.BeginConversation(u, body.ID, timeout)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.logger.Debug("conversation begun", zap.String("conversation_id", id))
	h.ok(c, types.ConversationInfo{ID: id, SessionID: h.manager.CurrentSessionID(u, false)})
}

// EndConversation POST /conversation/end
func (h *ScopeHandler) EndConversation(c *gin.Context) {
	u := middleware.UnitFrom(c)
	if u == nil {
		_ = c.Error(middleware.ErrScopeNotBound)
		return
	}
	id := h.manager.ConversationID(u)
	if err := h.manager.EndConversation(u); err != nil {
		_ = c.Error(err)
		return
	}
	h.ok(c, types.ConversationInfo{ID: id, Transient: true})
}

// GetSession GET /session
func (h *ScopeHandler) GetSession(c *gin.Context) {
	req := middleware.RequestFrom(c)
	if req == nil {
		_ = c.Error(middleware.ErrScopeNotBound)
		return
	}
	sess := req.HTTPSession(false)
	if sess == nil {
		middleware.WriteError(c, apitypes.CodeSessionNotFound, "当前请求没有会话。", "", http.StatusNotFound, nil)
		return
	}
	h.ok(c, types.SessionInfo{ID: sess.ID(), CreatedAt: sess.CreatedAt().UTC().Format(time.RFC3339)})
}

// InvalidateSession DELETE /session
func (h *ScopeHandler) InvalidateSession(c *gin.Context) {
	if err := h.scope.InvalidateSession(c); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RotateSession POST /session/rotate
func (h *ScopeHandler) RotateSession(c *gin.Context) {
	sess, err := h.scope.RotateSession(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.ok(c, types.SessionInfo{ID: sess.ID(), CreatedAt: sess.CreatedAt().UTC().Format(time.RFC3339)})
}

// GetStats GET /scopes
func (h *ScopeHandler) GetStats(c *gin.Context) {
	stats := types.ScopeStats{
		Sessions:               h.manager.Registry().Len(),
		ConversationSupported:  h.manager.SupportsConversation(),
		AutoConversationCheck:  h.manager.AutoConversationCheck(),
		ApplicationInitialized: h.manager.Application().IsInitialized(),
	}
	if h.conversations != nil && stats.ConversationSupported {
		stats.Conversations = h.conversations.Len()
	}
	h.ok(c, stats)
}

// GetAttribute GET /scopes/:kind/attributes/:name
func (h *ScopeHandler) GetAttribute(c *gin.Context) {
	kind, ctx, ok := h.resolve(c, false)
	if !ok {
		return
	}
	name := c.Param("name")
	value, found, err := ctx.Get(name)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !found {
		middleware.WriteError(c, apitypes.CodeCommonNotFound, "属性不存在。", name, http.StatusNotFound,
			map[string]interface{}{"scope": kind.String()})
		return
	}
	h.ok(c, types.AttributeResponse{Scope: kind.String(), Name: name, Value: value, Found: true})
}

// PutAttribute PUT /scopes/:kind/attributes/:name，会话作用域按需创建会话
func (h *ScopeHandler) PutAttribute(c *gin.Context) {
	var body attributeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.WriteError(c, apitypes.CodeCommonValidationError, "请求体格式错误。", err.Error(), http.StatusBadRequest, nil)
		return
	}
	kind, ctx, ok := h.resolve(c, true)
	if !ok {
		return
	}
	name := c.Param("name")
	if err := ctx.Set(name, body.Value); err != nil {
		_ = c.Error(err)
		return
	}
	h.ok(c, types.AttributeResponse{Scope: kind.String(), Name: name, Value: body.Value, Found: true})
}

// DeleteAttribute DELETE /scopes/:kind/attributes/:name
func (h *ScopeHandler) DeleteAttribute(c *gin.Context) {
	_, ctx, ok := h.resolve(c, false)
	if !ok {
		return
	}
	if err := ctx.Remove(c.Param("name")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// resolve 解析路径中的作用域类别并取当前上下文；失败时已写出响应
func (h *ScopeHandler) resolve(c *gin.Context, create bool) (scope.Kind, scope.Context, bool) {
	kind, ok := scope.ParseKind(c.Param("kind"))
	if !ok {
		middleware.WriteError(c, apitypes.CodeCommonValidationError, "未知的作用域类别。", c.Param("kind"), http.StatusBadRequest, nil)
		return 0, nil, false
	}
	u := middleware.UnitFrom(c)
	if u == nil && kind.IsUnitBound() {
		_ = c.Error(middleware.ErrScopeNotBound)
		return 0, nil, false
	}
	ctx := h.manager.CurrentContext(u, kind, create)
	if ctx == nil {
		err := errors.New("no " + kind.String() + " context for this request")
		middleware.WriteError(c, apitypes.CodeScopeNotBound, "当前请求没有该作用域的上下文。", err.Error(), http.StatusNotFound, nil)
		return 0, nil, false
	}
	return kind, ctx, true
}

func (h *ScopeHandler) ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, types.NewSuccessResponse(data).WithRequestID(middleware.GetRequestID(c)).WithTimestamp(time.Now()))
}
