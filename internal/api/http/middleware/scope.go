package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/scoped/internal/api/http/session"
	apitypes "github.com/weisyn/scoped/internal/api/types"
	scopecore "github.com/weisyn/scoped/internal/core/scope"
	"github.com/weisyn/scoped/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

const (
	unitKey           = "scope_unit"
	scopeRequestKey   = "scope_request"
	sessionIDKey      = "session_id"
	conversationIDKey = "conversation_id"
)

// ErrScopeNotBound 当前 gin 上下文没有经过 Scope 中间件
var ErrScopeNotBound = errors.New("scope middleware not installed")

// Scope 作用域中间件
//
// 每个 HTTP 请求独占一个执行单元：进入时开始 Request 作用域（随之恢复会话、
// 关联或新建长会话），返回时结束 Request 作用域并释放执行单元。
type Scope struct {
	manager    *scopecore.Manager
	store      *session.Store
	cookieName string
	guard      bool
	logger     log.Logger
}

// NewScope 创建作用域中间件；guard 为 true 时在处理器之前检查长会话状态
func NewScope(manager *scopecore.Manager, store *session.Store, cookieName string, guard bool, logger log.Logger) *Scope {
	return &Scope{
		manager:    manager,
		store:      store,
		cookieName: cookieName,
		guard:      guard,
		logger:     logger,
	}
}

// Middleware 返回Gin中间件
func (m *Scope) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := scopecore.NewUnit()
		req := session.NewRequest(c, m.store, m.cookieName)

		c.Set(unitKey, u)
		c.Set(scopeRequestKey, req)
		c.Request = c.Request.WithContext(scopecore.WithUnit(c.Request.Context(), u))

		m.manager.Start(u, scope.RequestScoped, req)
		if rc := u.Request(); rc != nil {
			_ = rc.Set(requestIDKey, GetRequestID(c))
		}

		defer func() {
			c.Set(sessionIDKey, m.manager.CurrentSessionID(u, false))
			c.Set(conversationIDKey, m.manager.ConversationID(u))
			m.manager.End(u, scope.RequestScoped, req)
			u.Release()
		}()

		if m.guard {
			if err := m.manager.CheckConversationState(u); err != nil {
				m.logger.Debugf("长会话状态检查未通过 path=%s: %v", c.Request.URL.Path, err)
				WriteProblemDetails(c, ProblemFromError(err))
				return
			}
		}

		c.Next()
	}
}

// InvalidateSession 在当前请求内失效会话
//
// 先结束 Session 作用域（销毁推迟到请求结束），再失效 HTTP 会话；
// 存储的失效监听器随后看到该会话已在排队，不会重复销毁。
func (m *Scope) InvalidateSession(c *gin.Context) error {
	u, req := UnitFrom(c), RequestFrom(c)
	if u == nil || req == nil {
		return ErrScopeNotBound
	}
	sess := req.HTTPSession(false)
	if sess == nil {
		return session.ErrSessionNotFound
	}
	m.manager.End(u, scope.SessionScoped, sess)
	return sess.Invalidate()
}

// RotateSession 轮换会话标识；注册表与长会话登记由标识变更监听器迁移
func (m *Scope) RotateSession(c *gin.Context) (*session.Session, error) {
	req := RequestFrom(c)
	if req == nil {
		return nil, ErrScopeNotBound
	}
	return req.Rotate()
}

// UnitFrom 取出当前请求的执行单元
func UnitFrom(c *gin.Context) *scopecore.Unit {
	if v, ok := c.Get(unitKey); ok {
		if u, ok := v.(*scopecore.Unit); ok {
			return u
		}
	}
	return nil
}

// RequestFrom 取出当前请求的会话感知请求句柄
func RequestFrom(c *gin.Context) *session.Request {
	if v, ok := c.Get(scopeRequestKey); ok {
		if r, ok := v.(*session.Request); ok {
			return r
		}
	}
	return nil
}

// ProblemFromError 把作用域错误映射为 Problem Details
func ProblemFromError(err error) *apitypes.ProblemDetails {
	if pd, ok := apitypes.IsProblemDetails(err); ok {
		return pd
	}

	var busy *scopecore.BusyConversationError
	switch {
	case errors.As(err, &busy):
		return apitypes.NewProblemDetails(apitypes.CodeConversationBusy, apitypes.LayerScopeService,
			"长会话正在被另一个请求使用，请稍后重试。", err.Error(), http.StatusConflict,
			map[string]interface{}{"conversationId": busy.ConversationID})
	case errors.Is(err, scopecore.ErrConversationMissing):
		return apitypes.NewProblemDetails(apitypes.CodeConversationMissing, apitypes.LayerScopeService,
			"长会话已结束或不存在。", err.Error(), http.StatusGone, nil)
	case errors.Is(err, scopecore.ErrConversationState):
		return apitypes.NewProblemDetails(apitypes.CodeConversationState, apitypes.LayerScopeService,
			"长会话状态不允许该操作。", err.Error(), http.StatusConflict, nil)
	case errors.Is(err, scopecore.ErrContextNotActive):
		return apitypes.NewProblemDetails(apitypes.CodeScopeNotBound, apitypes.LayerScopeService,
			"作用域上下文未激活。", err.Error(), http.StatusConflict, nil)
	case errors.Is(err, scopecore.ErrUnsupportedScope):
		return apitypes.NewProblemDetails(apitypes.CodeScopeUnsupported, apitypes.LayerScopeService,
			"该作用域未启用。", err.Error(), http.StatusNotImplemented, nil)
	case errors.Is(err, session.ErrSessionNotFound):
		return apitypes.NewProblemDetails(apitypes.CodeSessionNotFound, apitypes.LayerHTTPGateway,
			"会话不存在或已失效。", err.Error(), http.StatusNotFound, nil)
	case errors.Is(err, ErrScopeNotBound):
		return apitypes.NewProblemDetails(apitypes.CodeScopeNotBound, apitypes.LayerHTTPGateway,
			"请求未绑定作用域。", err.Error(), http.StatusInternalServerError, nil)
	}
	return apitypes.NewProblemDetails(apitypes.CodeCommonInternalError, apitypes.LayerScopeService,
		"服务器内部错误，请稍后重试或联系管理员。", err.Error(), http.StatusInternalServerError, nil)
}
