package scope

import "github.com/weisyn/scoped/pkg/interfaces/scope"

// State 执行单元上 Request / Session / Conversation 绑定的快照
type State struct {
	Request      scope.RequestContext
	Session      scope.SessionContext
	Conversation scope.ConversationContext
}

// SaveState 读取当前绑定
func (m *Manager) SaveState(u *Unit) State {
	if u == nil {
		return State{}
	}
	return State{
		Request:      u.Request(),
		Session:      u.Session(),
		Conversation: u.Conversation(),
	}
}

// RestoreState 用 st 替换当前绑定，返回替换前的绑定
//
// 嵌套调用按后进先出配对：
//
//	prev := m.RestoreState(u, saved)
//	defer m.RestoreState(u, prev)
func (m *Manager) RestoreState(u *Unit, st State) State {
	prev := m.SaveState(u)
	if u == nil {
		return prev
	}
	// 字段为 nil 时显式解绑，不能把带类型的 nil 交给 Bind
	if st.Request != nil {
		m.rebind(u, scope.RequestScoped, st.Request)
	} else {
		u.Unbind(scope.RequestScoped)
	}
	if st.Session != nil {
		m.rebind(u, scope.SessionScoped, st.Session)
	} else {
		u.Unbind(scope.SessionScoped)
	}
	if st.Conversation != nil {
		m.rebind(u, scope.ConversationScoped, st.Conversation)
	} else {
		u.Unbind(scope.ConversationScoped)
	}
	return prev
}

func (m *Manager) rebind(u *Unit, kind scope.Kind, ctx scope.Context) {
	if err := u.Bind(kind, ctx); err != nil {
		m.logger.Warnf("恢复 %s 绑定失败: %v", kind, err)
	}
}
