package scope

import (
	"strings"

	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

// 请求显式关闭长会话传播的查询信号
const (
	propagationParam = "conversationPropagation"
	propagationNone  = "none"
	noCIDParam       = "nocid"
)

// QueryToken 从原始查询串中提取 name 的取值
//
// 匹配 name= 后，取值截止于其后第一个 & 或 #，两者都不存在时到串尾。
// 只在串首或 & 之后匹配，避免 xcid= 误命中 cid=。
func QueryToken(name, query string) (string, bool) {
	if name == "" || query == "" {
		return "", false
	}
	query = strings.TrimPrefix(query, "?")
	key := name + "="

	for offset := 0; offset < len(query); {
		idx := strings.Index(query[offset:], key)
		if idx < 0 {
			return "", false
		}
		start := offset + idx
		if start == 0 || query[start-1] == '&' {
			value := query[start+len(key):]
			if end := strings.IndexAny(value, "&#"); end >= 0 {
				value = value[:end]
			}
			return value, true
		}
		offset = start + len(key)
	}
	return "", false
}

// conversationToken 请求携带的长会话令牌，空值视为不存在
func (m *Manager) conversationToken(req scope.RequestHandle) string {
	if req == nil {
		return ""
	}
	name := m.config.GetConversationTokenName()
	if m.config.UseGetParameter() {
		token, _ := req.Parameter(name)
		return token
	}
	token, _ := QueryToken(name, req.QueryString())
	return token
}

// isConversationSkipped 请求是否显式关闭了长会话传播
func isConversationSkipped(req scope.RequestHandle) bool {
	if req == nil {
		return false
	}
	query := req.QueryString()
	if v, ok := QueryToken(propagationParam, query); ok && v == propagationNone {
		return true
	}
	if v, ok := QueryToken(noCIDParam, query); ok && v == "true" {
		return true
	}
	return false
}

// associateConversation 请求开始时按令牌关联长会话，成功关联返回 true
func (m *Manager) associateConversation(u *Unit, req scope.RequestHandle) bool {
	if isConversationSkipped(req) {
		return false
	}
	sessionID := m.boundSessionID(u)
	if sessionID == "" {
		return false
	}
	token := m.conversationToken(req)
	if token == "" {
		return false
	}
	ref, ok := m.conversations.Find(token, sessionID)
	if !ok {
		m.logger.Debugf("长会话未找到 token=%s session=%s", token, sessionID)
		return false
	}
	m.attachConversation(u, ref)
	return true
}

// attachConversation 激活已登记的长会话并绑定到执行单元
func (m *Manager) attachConversation(u *Unit, ref scope.ConversationRef) {
	ctx := m.conversations.ContextOf(ref)
	ctx.SetActive(true)
	ref.Acquire()
	if err := u.Bind(scope.ConversationScoped, ctx); err != nil {
		m.logger.Warnf("绑定长会话失败: %v", err)
	}
}

// startTransientConversation 为请求创建并绑定临时长会话
func (m *Manager) startTransientConversation(u *Unit) {
	ref := m.conversations.NewTransient(m.boundSessionID(u))
	ctx := m.conversations.ContextOf(ref)
	ctx.SetActive(true)
	ref.Acquire()
	if err := u.Bind(scope.ConversationScoped, ctx); err != nil {
		m.logger.Warnf("绑定临时长会话失败: %v", err)
		return
	}
	m.fire(m.requestTarget(u, ctx), scope.ConversationScoped, scope.Initialized)
}

// CheckConversationState 检查请求携带的长会话是否可用
//
// 令牌指向仍为临时状态的长会话时返回 ErrConversationMissing；
// 占用计数大于一时返回 *BusyConversationError。
// 计数的读取与请求结束时的递减之间没有锁，两个请求同时检查可能都通过。
func (m *Manager) CheckConversationState(u *Unit) error {
	if m.conversations == nil {
		return nil
	}
	rc := u.Request()
	if rc == nil || rc.Request() == nil {
		return nil
	}
	req := rc.Request()
	sessionID := m.boundSessionID(u)
	if sessionID == "" {
		if h := req.Session(false); h != nil {
			sessionID = h.ID()
		}
	}
	if sessionID == "" {
		return nil
	}
	token := m.conversationToken(req)
	if token == "" {
		return nil
	}
	ref, ok := m.conversations.Find(token, sessionID)
	if !ok {
		return nil
	}

	if !m.AutoConversationCheck() {
		m.lazyAssociate(u, ref)
	}

	if ref.IsTransient() {
		return WrapConversationMissingError(token, sessionID)
	}
	if ref.UseCount() > 1 {
		m.metrics.observeBusy()
		return &BusyConversationError{ConversationID: ref.ID(), SessionID: sessionID}
	}
	return nil
}

// lazyAssociate 自动关联关闭时，检查阶段才把找到的长会话替换为当前绑定
func (m *Manager) lazyAssociate(u *Unit, ref scope.ConversationRef) {
	bound := u.Conversation()
	if bound != nil && bound.Conversation() == ref {
		return
	}
	if bound != nil {
		old := bound.Conversation()
		bound.SetActive(false)
		old.Release()
		if old.IsTransient() && old.ID() == "" {
			bound.Destroy()
			m.fire(m.requestTarget(u, bound), scope.ConversationScoped, scope.Destroyed)
		}
	}
	m.attachConversation(u, ref)
}

// cleanupConversation 请求结束时释放绑定的长会话
//
// 先停用并递减占用计数；临时长会话随之销毁并移除登记，长期长会话刷新超时。
func (m *Manager) cleanupConversation(u *Unit) {
	ctx := u.Conversation()
	if ctx == nil {
		return
	}
	ref := ctx.Conversation()
	ctx.SetActive(false)
	ref.Release()

	if ref.IsTransient() {
		m.endConversationScope(u, nil)
		if err := m.conversations.Remove(ref); err != nil {
			m.logger.Warnf("移除长会话失败 id=%s: %v", ref.ID(), err)
		}
	} else {
		ref.RefreshTimeout()
	}
	u.Unbind(scope.ConversationScoped)
}

// boundSessionID 当前绑定会话的标识
func (m *Manager) boundSessionID(u *Unit) string {
	if sc := u.Session(); sc != nil {
		return sc.SessionID()
	}
	return ""
}
