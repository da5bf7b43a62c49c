package scope

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

// BaseContext 上下文公共实现：类别、激活标志与属性表
//
// 属性表带读写锁，会话与长会话上下文会被多个执行单元并发访问。
// 自定义会话上下文实现可嵌入 *BaseContext。
type BaseContext struct {
	kind   scope.Kind
	active atomic.Bool

	mu    sync.RWMutex
	attrs map[string]any
}

// NewBaseContext 创建未激活的上下文
func NewBaseContext(kind scope.Kind) *BaseContext {
	return &BaseContext{
		kind:  kind,
		attrs: make(map[string]any),
	}
}

func (c *BaseContext) Kind() scope.Kind      { return c.kind }
func (c *BaseContext) IsActive() bool        { return c.active.Load() }
func (c *BaseContext) SetActive(active bool) { c.active.Store(active) }

// Get 读取属性
func (c *BaseContext) Get(name string) (any, bool, error) {
	if !c.IsActive() {
		return nil, false, WrapContextNotActiveError(c.kind, name)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.attrs[name]
	return v, ok, nil
}

// Set 写入属性
func (c *BaseContext) Set(name string, value any) error {
	if !c.IsActive() {
		return WrapContextNotActiveError(c.kind, name)
	}
	c.mu.Lock()
	c.attrs[name] = value
	c.mu.Unlock()
	return nil
}

// Remove 删除属性
func (c *BaseContext) Remove(name string) error {
	if !c.IsActive() {
		return WrapContextNotActiveError(c.kind, name)
	}
	c.mu.Lock()
	delete(c.attrs, name)
	c.mu.Unlock()
	return nil
}

// Names 已有属性名，按字典序
func (c *BaseContext) Names() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.attrs))
	for name := range c.attrs {
		names = append(names, name)
	}
	c.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Destroy 清空属性并停用
func (c *BaseContext) Destroy() {
	c.mu.Lock()
	c.attrs = make(map[string]any)
	c.mu.Unlock()
	c.SetActive(false)
}

// ==================== 请求 ====================

type requestContext struct {
	*BaseContext
	request scope.RequestHandle
}

// NewRequestContext 创建请求上下文，req 为 nil 表示内部调用
func NewRequestContext(req scope.RequestHandle) scope.RequestContext {
	return &requestContext{
		BaseContext: NewBaseContext(scope.RequestScoped),
		request:     req,
	}
}

func (c *requestContext) Request() scope.RequestHandle { return c.request }

// ==================== 会话 ====================

// SessionAwareContext 默认会话上下文，持有会话句柄
type SessionAwareContext struct {
	*BaseContext

	idMu    sync.RWMutex
	id      string
	session scope.SessionHandle
}

// NewSessionContext 基于会话句柄创建默认会话上下文，handle 可以为 nil
func NewSessionContext(handle scope.SessionHandle) *SessionAwareContext {
	c := &SessionAwareContext{
		BaseContext: NewBaseContext(scope.SessionScoped),
		session:     handle,
	}
	if handle != nil {
		c.id = handle.ID()
	}
	return c
}

// SessionID 注册表中使用的会话标识
func (c *SessionAwareContext) SessionID() string {
	c.idMu.RLock()
	defer c.idMu.RUnlock()
	return c.id
}

// SetSessionID 更新会话标识
func (c *SessionAwareContext) SetSessionID(id string) {
	c.idMu.Lock()
	c.id = id
	c.idMu.Unlock()
}

// Session 会话句柄
func (c *SessionAwareContext) Session() scope.SessionHandle { return c.session }

// ==================== 长会话 ====================

type conversationContext struct {
	*BaseContext
	conversation scope.ConversationRef
}

// NewConversationContext 创建长会话上下文
func NewConversationContext(ref scope.ConversationRef) scope.ConversationContext {
	return &conversationContext{
		BaseContext:  NewBaseContext(scope.ConversationScoped),
		conversation: ref,
	}
}

func (c *conversationContext) Conversation() scope.ConversationRef { return c.conversation }

// ==================== 应用 ====================

// ApplicationContext 应用上下文，进程内唯一
//
// initialized 保证应用初始化事件只发布一次；target 为解析出的事件目标，
// 结束时的销毁事件复用它。
type ApplicationContext struct {
	*BaseContext

	initialized atomic.Bool
	targetMu    sync.RWMutex
	target      any
}

// NewApplicationContext 创建应用上下文
func NewApplicationContext() *ApplicationContext {
	return &ApplicationContext{BaseContext: NewBaseContext(scope.ApplicationScoped)}
}

// markInitialized 首次调用返回 true
func (c *ApplicationContext) markInitialized(target any) bool {
	if !c.initialized.CompareAndSwap(false, true) {
		return false
	}
	c.targetMu.Lock()
	c.target = target
	c.targetMu.Unlock()
	return true
}

// IsInitialized 初始化事件是否已发布
func (c *ApplicationContext) IsInitialized() bool { return c.initialized.Load() }

// EventTarget 初始化时解析出的事件目标，未初始化时为上下文本身
func (c *ApplicationContext) EventTarget() any {
	c.targetMu.RLock()
	defer c.targetMu.RUnlock()
	if c.target == nil {
		return c
	}
	return c.target
}

// ==================== 依赖 ====================

// dependentContext 始终激活，不持有实例
type dependentContext struct {
	*BaseContext
}

func newDependentContext() *dependentContext {
	c := &dependentContext{BaseContext: NewBaseContext(scope.DependentScoped)}
	c.BaseContext.SetActive(true)
	return c
}

// SetActive 依赖作用域不可停用
func (c *dependentContext) SetActive(bool) {}

// Destroy 清空属性，保持激活
func (c *dependentContext) Destroy() {
	c.BaseContext.Destroy()
	c.BaseContext.SetActive(true)
}

var (
	_ scope.RequestContext      = (*requestContext)(nil)
	_ scope.SessionContext      = (*SessionAwareContext)(nil)
	_ scope.ConversationContext = (*conversationContext)(nil)
	_ scope.Context             = (*ApplicationContext)(nil)
	_ scope.Context             = (*dependentContext)(nil)
)
