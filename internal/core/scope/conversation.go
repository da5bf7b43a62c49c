package scope

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	infraClock "github.com/weisyn/scoped/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/scoped/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

// Conversation 长会话状态
//
// 新建时为临时状态；Begin 之后成为长期长会话，拥有标识与超时。
// 占用计数记录当前有多少请求关联着它。
type Conversation struct {
	clock infraClock.Clock

	mu         sync.RWMutex
	id         string
	sessionID  string
	transient  bool
	timeout    time.Duration
	lastAccess time.Time

	useCount atomic.Int32
}

func newConversation(clock infraClock.Clock, sessionID string, timeout time.Duration) *Conversation {
	return &Conversation{
		clock:      clock,
		sessionID:  sessionID,
		transient:  true,
		timeout:    timeout,
		lastAccess: clock.Now(),
	}
}

func (c *Conversation) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

func (c *Conversation) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

func (c *Conversation) IsTransient() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transient
}

func (c *Conversation) UseCount() int { return int(c.useCount.Load()) }

// Acquire 占用计数加一
func (c *Conversation) Acquire() int { return int(c.useCount.Add(1)) }

// Release 占用计数减一，不低于零
func (c *Conversation) Release() int {
	for {
		cur := c.useCount.Load()
		if cur <= 0 {
			return 0
		}
		if c.useCount.CompareAndSwap(cur, cur-1) {
			return int(cur - 1)
		}
	}
}

// RefreshTimeout 刷新最近访问时间
func (c *Conversation) RefreshTimeout() {
	now := c.clock.Now()
	c.mu.Lock()
	c.lastAccess = now
	c.mu.Unlock()
}

// Timeout 空闲超时
func (c *Conversation) Timeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeout
}

// LastAccess 最近访问时间
func (c *Conversation) LastAccess() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastAccess
}

// expired 长期长会话空闲超过超时且无人占用
func (c *Conversation) expired(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.transient || c.timeout <= 0 {
		return false
	}
	return c.useCount.Load() == 0 && now.Sub(c.lastAccess) > c.timeout
}

type conversationKey struct {
	sessionID string
	id        string
}

// ConversationManager 内存中的长会话登记表，实现 scope.ConversationRegistry
//
// 长会话按 (会话标识, 长会话标识) 登记；不同会话之间的同名令牌互不可见。
type ConversationManager struct {
	clock          infraClock.Clock
	logger         log.Logger
	defaultTimeout time.Duration

	mu      sync.RWMutex
	entries map[conversationKey]scope.ConversationEntry
}

// NewConversationManager 创建长会话登记表
func NewConversationManager(clock infraClock.Clock, defaultTimeout time.Duration, logger log.Logger) *ConversationManager {
	return &ConversationManager{
		clock:          clock,
		logger:         logger,
		defaultTimeout: defaultTimeout,
		entries:        make(map[conversationKey]scope.ConversationEntry),
	}
}

// NewTransient 创建未登记的临时长会话
func (m *ConversationManager) NewTransient(sessionID string) scope.ConversationRef {
	return newConversation(m.clock, sessionID, m.defaultTimeout)
}

// Find 按令牌查找登记；已被 End 降级但尚未清理的长会话同样返回
func (m *ConversationManager) Find(token, sessionID string) (scope.ConversationRef, bool) {
	if token == "" {
		return nil, false
	}
	m.mu.RLock()
	entry, ok := m.entries[conversationKey{sessionID: sessionID, id: token}]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return entry.Ref, true
}

// ContextOf 返回登记的上下文；未登记时新建一个不登记的上下文
func (m *ConversationManager) ContextOf(ref scope.ConversationRef) scope.ConversationContext {
	if ref.ID() != "" {
		m.mu.RLock()
		entry, ok := m.entries[conversationKey{sessionID: ref.SessionID(), id: ref.ID()}]
		m.mu.RUnlock()
		if ok && entry.Ref == ref {
			return entry.Context
		}
	}
	return NewConversationContext(ref)
}

// Begin 把临时长会话提升为长期并登记
func (m *ConversationManager) Begin(ctx scope.ConversationContext, sessionID, id string, timeout time.Duration) (string, error) {
	conv, ok := ctx.Conversation().(*Conversation)
	if !ok {
		return "", WrapConversationStateError(ctx.Conversation().ID(), "foreign conversation implementation")
	}
	if id == "" {
		id = uuid.NewString()
	}
	if timeout <= 0 {
		timeout = m.defaultTimeout
	}

	if sessionID == "" {
		sessionID = conv.SessionID()
	}
	key := conversationKey{sessionID: sessionID, id: id}

	// 加锁顺序固定为登记表在前、长会话在后
	m.mu.Lock()
	if _, taken := m.entries[key]; taken {
		m.mu.Unlock()
		return "", WrapConversationStateError(id, "id already in use")
	}
	conv.mu.Lock()
	if !conv.transient {
		existing := conv.id
		conv.mu.Unlock()
		m.mu.Unlock()
		return "", WrapConversationStateError(existing, "already long-running")
	}
	conv.id = id
	conv.sessionID = sessionID
	conv.transient = false
	conv.timeout = timeout
	conv.lastAccess = m.clock.Now()
	conv.mu.Unlock()
	m.entries[key] = scope.ConversationEntry{Ref: conv, Context: ctx}
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Debugf("长会话开始 id=%s session=%s timeout=%s", id, key.sessionID, timeout)
	}
	return id, nil
}

// End 降级为临时；登记保留到请求结束时清理
func (m *ConversationManager) End(ref scope.ConversationRef) error {
	conv, ok := ref.(*Conversation)
	if !ok {
		return WrapConversationStateError(ref.ID(), "foreign conversation implementation")
	}
	conv.mu.Lock()
	defer conv.mu.Unlock()
	if conv.transient {
		return WrapConversationStateError(conv.id, "not long-running")
	}
	conv.transient = true
	return nil
}

// Remove 移除登记
func (m *ConversationManager) Remove(ref scope.ConversationRef) error {
	if ref.UseCount() > 1 {
		return &BusyConversationError{ConversationID: ref.ID(), SessionID: ref.SessionID()}
	}
	if ref.ID() == "" {
		return nil
	}
	key := conversationKey{sessionID: ref.SessionID(), id: ref.ID()}
	m.mu.Lock()
	if entry, ok := m.entries[key]; ok && entry.Ref == ref {
		delete(m.entries, key)
	}
	m.mu.Unlock()
	return nil
}

// Snapshot 当前全部登记
func (m *ConversationManager) Snapshot() []scope.ConversationEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]scope.ConversationEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		out = append(out, entry)
	}
	return out
}

// Len 登记数量
func (m *ConversationManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// RemoveExpired 移除并返回已过期且无人占用的长期长会话
func (m *ConversationManager) RemoveExpired() []scope.ConversationEntry {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired []scope.ConversationEntry
	for key, entry := range m.entries {
		if conv, ok := entry.Ref.(*Conversation); ok && conv.expired(now) {
			expired = append(expired, entry)
			delete(m.entries, key)
		}
	}
	return expired
}

// RemoveSession 移除某个会话下的全部登记，会话销毁时调用
func (m *ConversationManager) RemoveSession(sessionID string) []scope.ConversationEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []scope.ConversationEntry
	for key, entry := range m.entries {
		if key.sessionID == sessionID {
			removed = append(removed, entry)
			delete(m.entries, key)
		}
	}
	return removed
}

// UpdateSessionID 会话标识变更时迁移其下全部登记
func (m *ConversationManager) UpdateSessionID(oldID, newID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	moved := 0
	for key, entry := range m.entries {
		if key.sessionID != oldID {
			continue
		}
		delete(m.entries, key)
		if conv, ok := entry.Ref.(*Conversation); ok {
			conv.mu.Lock()
			conv.sessionID = newID
			conv.mu.Unlock()
		}
		m.entries[conversationKey{sessionID: newID, id: key.id}] = entry
		moved++
	}
	return moved
}

// Clear 清空全部登记
func (m *ConversationManager) Clear() {
	m.mu.Lock()
	m.entries = make(map[conversationKey]scope.ConversationEntry)
	m.mu.Unlock()
}

var (
	_ scope.ConversationRef      = (*Conversation)(nil)
	_ scope.ConversationRegistry = (*ConversationManager)(nil)
)
