package scope

import "github.com/weisyn/scoped/pkg/interfaces/scope"

// Shutdown 停机前清理全部作用域
//
// 依次结束 Application、Singleton，销毁全部已登记长会话，再逐个失效并销毁
// 已登记会话。单个条目的失败只记录，不影响后续条目。重复调用无副作用。
func (m *Manager) Shutdown() {
	if !m.stopped.CompareAndSwap(false, true) {
		return
	}
	m.logger.Info("作用域管理器开始停机清理")

	m.guard("application", m.endApplication)
	m.guard("singleton", func() {
		m.singleton.Destroy()
		m.singleton.SetActive(true)
	})

	if m.conversations != nil {
		entries := m.conversations.Snapshot()
		for _, entry := range entries {
			m.guard("conversation "+entry.Ref.ID(), func() { m.destroyConversationEntry(entry) })
		}
		if clearer, ok := m.conversations.(conversationClearer); ok {
			clearer.Clear()
		} else {
			for _, entry := range entries {
				if err := m.conversations.Remove(entry.Ref); err != nil {
					m.logger.Warnf("停机移除长会话失败 id=%s: %v", entry.Ref.ID(), err)
				}
			}
		}
	}

	sessions := m.registry.Snapshot()
	for _, ctx := range sessions {
		m.shutdownSession(ctx)
	}
	m.registry.Clear()

	m.logger.Infof("作用域管理器停机清理完成，会话 %d 个", len(sessions))
}

// shutdownSession 失效会话句柄后直接销毁上下文
//
// 不经过 endSession：在途请求已排队的销毁不会让这里跳过，
// 该请求结束时排队的动作发现上下文已销毁而成为空操作。
func (m *Manager) shutdownSession(ctx scope.SessionContext) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Errorf("停机销毁会话失败 id=%s: %v", ctx.SessionID(), r)
		}
	}()

	handle := ctx.Session()
	if handle == nil || handle.ID() == "" {
		m.destroySession(ctx, nil)
		return
	}
	defer m.destroySession(ctx, handle)

	if err := handle.Invalidate(); err != nil {
		m.logger.Warnf("停机失效会话失败 id=%s: %v", handle.ID(), err)
	}
}

// guard 执行 fn，panic 只记录
func (m *Manager) guard(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Errorf("停机清理 %s 失败: %v", what, r)
		}
	}()
	fn()
}
