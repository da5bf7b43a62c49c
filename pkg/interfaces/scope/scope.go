// Package scope 定义作用域上下文生命周期的对外契约
//
// 📋 **作用域模型**
//
// 服务端同时处理大量并发请求，请求之间共享长期存在的会话（session）
// 与长会话（conversation）状态。本包描述：
//   - Context：某一作用域的实例存储，带激活状态
//   - RequestHandle / SessionHandle：传输层提供的请求与会话句柄
//   - ConversationRef / ConversationRegistry：长会话状态及其登记表
//   - EventSink：生命周期通知出口
//
// 具体实现见 internal/core/scope；HTTP 接入见 internal/api/http。
package scope

import "time"

// Context 作用域上下文
//
// 上下文未激活时，属性读写返回 ErrContextNotActive（定义于实现包）。
type Context interface {
	Kind() Kind
	IsActive() bool
	SetActive(active bool)

	// Get 读取属性，第二个返回值表示是否存在
	Get(name string) (any, bool, error)
	// Set 写入属性
	Set(name string, value any) error
	// Remove 删除属性
	Remove(name string) error

	// Destroy 清空全部属性并停用
	Destroy()
}

// RequestContext 请求上下文
type RequestContext interface {
	Context

	// Request 发起请求的句柄，内部调用（非传输层请求）时为 nil
	Request() RequestHandle
}

// SessionContext 会话上下文，可被多个执行单元共享
type SessionContext interface {
	Context

	SessionID() string
	// SetSessionID 仅由会话注册表在重映射时调用
	SetSessionID(id string)

	// Session 会话句柄，未基于句柄构造的实现返回 nil
	Session() SessionHandle
}

// ConversationContext 长会话上下文
type ConversationContext interface {
	Context

	Conversation() ConversationRef
}

// RequestHandle 传输层请求句柄
type RequestHandle interface {
	// QueryString 原始查询串，不含前导 ?
	QueryString() string

	// Parameter 读取具名请求参数
	Parameter(name string) (string, bool)

	// Session 返回会话句柄；force 为 true 时按需创建，否则可能返回 nil
	Session(force bool) SessionHandle
}

// SessionHandle 传输层会话句柄
type SessionHandle interface {
	ID() string

	// Invalidate 失效会话，实现方负责回调生命周期管理器结束 Session 作用域
	Invalidate() error
}

// ConversationRef 长会话状态
type ConversationRef interface {
	ID() string
	SessionID() string
	IsTransient() bool

	UseCount() int
	// Acquire 占用计数加一，返回新值
	Acquire() int
	// Release 占用计数减一，不会低于零
	Release() int

	// RefreshTimeout 刷新最近访问时间
	RefreshTimeout()
}

// ConversationRegistry 长会话登记表
//
// 状态机：transient →(Begin)→ long-running →(End)→ transient → 请求结束时移除。
type ConversationRegistry interface {
	// NewTransient 为会话创建一个未登记的临时长会话
	NewTransient(sessionID string) ConversationRef

	// Find 按令牌与会话标识查找长会话
	Find(token, sessionID string) (ConversationRef, bool)

	// ContextOf 已登记长会话的上下文；未登记时返回新建且未登记的上下文
	ContextOf(ref ConversationRef) ConversationContext

	// Begin 把临时长会话提升为长期并登记；sessionID 非空时覆盖创建时记录的会话，
	// id 为空时生成；返回最终 id
	Begin(ctx ConversationContext, sessionID, id string, timeout time.Duration) (string, error)

	// End 把长期长会话降级为临时，登记在请求结束清理时移除
	End(ref ConversationRef) error

	// Remove 移除登记；占用计数大于一时返回忙错误
	Remove(ref ConversationRef) error

	// Snapshot 当前全部已登记长会话及其上下文的快照
	Snapshot() []ConversationEntry
}

// ConversationEntry 登记表快照条目
type ConversationEntry struct {
	Ref     ConversationRef
	Context ConversationContext
}

// LifecycleEvent 生命周期通知
//
// Target 永不为 nil：无法确定目标时由发送方填入上下文本身。
type LifecycleEvent struct {
	Target any
	Kind   Kind
	Phase  Phase
}

// EventSink 生命周期通知出口
type EventSink interface {
	Fire(target any, kind Kind, phase Phase)
}

// EventSinkFunc 函数适配器
type EventSinkFunc func(target any, kind Kind, phase Phase)

func (f EventSinkFunc) Fire(target any, kind Kind, phase Phase) { f(target, kind, phase) }

// StartupObject 应用启动参数；实现后其容器句柄作为 Application 初始化事件目标
type StartupObject interface {
	ContainerHandle() any
}
