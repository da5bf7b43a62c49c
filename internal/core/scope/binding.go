package scope

import (
	"context"

	"github.com/eapache/queue"
	"github.com/google/uuid"

	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

// Operation 执行单元当前的操作类别
type Operation int

const (
	// OperationBusiness 普通业务调用
	OperationBusiness Operation = iota
	// OperationTimeout 定时器回调，此时不创建长会话
	OperationTimeout
)

func (o Operation) String() string {
	if o == OperationTimeout {
		return "timeout"
	}
	return "business"
}

// Unit 执行单元的作用域绑定表
//
// 每个执行单元（一次请求处理、一次内部调用、一次关停清理）独占一个 Unit，
// 最多各绑定一个 Request / Session / Conversation 上下文，并持有请求结束时
// 按 FIFO 执行的延迟动作队列。Unit 不做并发保护，不得跨 goroutine 共享。
type Unit struct {
	id string

	request      scope.RequestContext
	session      scope.SessionContext
	conversation scope.ConversationContext

	releasables *queue.Queue
	operation   Operation
}

// NewUnit 创建空的执行单元
func NewUnit() *Unit {
	return &Unit{
		id:          uuid.NewString(),
		releasables: queue.New(),
	}
}

// ID 执行单元标识，仅用于日志关联
func (u *Unit) ID() string { return u.id }

// Bind 绑定上下文，替换同类别的已有绑定；ctx 为 nil 等价于 Unbind
func (u *Unit) Bind(kind scope.Kind, ctx scope.Context) error {
	if !kind.IsUnitBound() {
		return WrapUnsupportedScopeError(kind)
	}
	if ctx == nil {
		u.Unbind(kind)
		return nil
	}
	if ctx.Kind() != kind {
		return WrapContextKindMismatchError(kind, ctx)
	}

	switch kind {
	case scope.RequestScoped:
		rc, ok := ctx.(scope.RequestContext)
		if !ok {
			return WrapContextKindMismatchError(kind, ctx)
		}
		u.request = rc
	case scope.SessionScoped:
		sc, ok := ctx.(scope.SessionContext)
		if !ok {
			return WrapContextKindMismatchError(kind, ctx)
		}
		u.session = sc
	case scope.ConversationScoped:
		cc, ok := ctx.(scope.ConversationContext)
		if !ok {
			return WrapContextKindMismatchError(kind, ctx)
		}
		u.conversation = cc
	}
	return nil
}

// Current 当前绑定的上下文，不存在时返回 nil
func (u *Unit) Current(kind scope.Kind) scope.Context {
	switch kind {
	case scope.RequestScoped:
		if u.request != nil {
			return u.request
		}
	case scope.SessionScoped:
		if u.session != nil {
			return u.session
		}
	case scope.ConversationScoped:
		if u.conversation != nil {
			return u.conversation
		}
	}
	return nil
}

// Request 当前请求上下文
func (u *Unit) Request() scope.RequestContext { return u.request }

// Session 当前会话上下文
func (u *Unit) Session() scope.SessionContext { return u.session }

// Conversation 当前长会话上下文
func (u *Unit) Conversation() scope.ConversationContext { return u.conversation }

// Unbind 解除绑定，重复调用无副作用
func (u *Unit) Unbind(kind scope.Kind) {
	switch kind {
	case scope.RequestScoped:
		u.request = nil
	case scope.SessionScoped:
		u.session = nil
	case scope.ConversationScoped:
		u.conversation = nil
	}
}

// releasable 延迟动作；onDiscard 非 nil 时，Release 丢弃队列前会调用它
type releasable struct {
	run       func() error
	onDiscard func()
}

// PushReleasable 追加一个请求结束时执行的延迟动作
func (u *Unit) PushReleasable(fn func() error) {
	if fn != nil {
		u.releasables.Add(releasable{run: fn})
	}
}

// pushOwnedReleasable 追加不允许被静默丢弃的延迟动作
func (u *Unit) pushOwnedReleasable(fn func() error, onDiscard func()) {
	if fn != nil {
		u.releasables.Add(releasable{run: fn, onDiscard: onDiscard})
	}
}

// PendingReleasables 尚未执行的延迟动作数量
func (u *Unit) PendingReleasables() int {
	return u.releasables.Length()
}

// drainReleasables 按入队顺序逐个取出并交给 run；run 中新入队的动作同样会被执行
func (u *Unit) drainReleasables(run func(index int, fn func() error)) {
	for i := 0; u.releasables.Length() > 0; i++ {
		r := u.releasables.Remove().(releasable)
		run(i, r.run)
	}
}

// SetOperation 设置当前操作类别
func (u *Unit) SetOperation(op Operation) { u.operation = op }

// Operation 当前操作类别
func (u *Unit) Operation() Operation { return u.operation }

// Release 清空全部绑定与未执行的延迟动作，执行单元结束时调用
//
// 普通延迟动作直接丢弃；带 onDiscard 的动作在丢弃前按入队顺序回调。
func (u *Unit) Release() {
	pending := u.releasables
	u.request = nil
	u.session = nil
	u.conversation = nil
	u.releasables = queue.New()
	u.operation = OperationBusiness

	for pending.Length() > 0 {
		if r := pending.Remove().(releasable); r.onDiscard != nil {
			r.onDiscard()
		}
	}
}

type unitKey struct{}

// WithUnit 把执行单元放入 context.Context
func WithUnit(ctx context.Context, u *Unit) context.Context {
	return context.WithValue(ctx, unitKey{}, u)
}

// UnitFromContext 取出执行单元
func UnitFromContext(ctx context.Context) (*Unit, bool) {
	if ctx == nil {
		return nil, false
	}
	u, ok := ctx.Value(unitKey{}).(*Unit)
	return u, ok && u != nil
}
