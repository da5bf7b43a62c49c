package scope

import (
	"errors"
	"sort"
	"sync"

	"github.com/weisyn/scoped/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

// DefaultSessionContextType 默认会话上下文实现名称
const DefaultSessionContextType = "session-aware"

// SessionContextConstructor 一种会话上下文实现的构造方式
//
// 优先使用 WithHandle；失败或未提供时尝试 Bare；两者都不可用时由工厂
// 回落到默认实现。
type SessionContextConstructor struct {
	WithHandle func(handle scope.SessionHandle) (scope.SessionContext, error)
	Bare       func() (scope.SessionContext, error)
}

// SessionContextFactory 按名称登记的会话上下文构造器
type SessionContextFactory struct {
	mu           sync.RWMutex
	constructors map[string]SessionContextConstructor
	logger       log.Logger
}

// NewSessionContextFactory 创建工厂，默认实现已登记
func NewSessionContextFactory(logger log.Logger) *SessionContextFactory {
	f := &SessionContextFactory{
		constructors: make(map[string]SessionContextConstructor),
		logger:       logger,
	}
	f.constructors[DefaultSessionContextType] = SessionContextConstructor{
		WithHandle: func(h scope.SessionHandle) (scope.SessionContext, error) { return NewSessionContext(h), nil },
		Bare:       func() (scope.SessionContext, error) { return NewSessionContext(nil), nil },
	}
	return f
}

// Register 登记实现，同名覆盖
func (f *SessionContextFactory) Register(name string, ctor SessionContextConstructor) error {
	if name == "" {
		return errors.New("session context type name is empty")
	}
	if ctor.WithHandle == nil && ctor.Bare == nil {
		return WrapSessionContextConstructionError(name, errors.New("no constructor provided"))
	}
	f.mu.Lock()
	f.constructors[name] = ctor
	f.mu.Unlock()
	return nil
}

// Types 已登记的实现名称
func (f *SessionContextFactory) Types() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.constructors))
	for name := range f.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create 构造会话上下文，永不返回 nil
//
// 回落链：指定实现的 WithHandle → 指定实现的 Bare → 默认实现。
// 每次回落都记录警告。
func (f *SessionContextFactory) Create(typeName string, handle scope.SessionHandle) scope.SessionContext {
	if typeName == "" || typeName == DefaultSessionContextType {
		return NewSessionContext(handle)
	}

	f.mu.RLock()
	ctor, ok := f.constructors[typeName]
	f.mu.RUnlock()
	if !ok {
		f.warnf("未登记的会话上下文实现 %q，使用默认实现", typeName)
		return NewSessionContext(handle)
	}

	if ctor.WithHandle != nil && handle != nil {
		ctx, err := safeConstruct(func() (scope.SessionContext, error) { return ctor.WithHandle(handle) })
		if err == nil {
			return ctx
		}
		f.warnf("%v，尝试无参构造", WrapSessionContextConstructionError(typeName, err))
	}

	if ctor.Bare != nil {
		ctx, err := safeConstruct(ctor.Bare)
		if err == nil {
			return ctx
		}
		f.warnf("%v，使用默认实现", WrapSessionContextConstructionError(typeName, err))
	}

	return NewSessionContext(handle)
}

// safeConstruct 把构造器的 panic 与 nil 结果都转成错误
func safeConstruct(fn func() (scope.SessionContext, error)) (ctx scope.SessionContext, err error) {
	defer func() {
		if r := recover(); r != nil {
			ctx, err = nil, errors.New("constructor panicked")
		}
	}()
	ctx, err = fn()
	if err == nil && ctx == nil {
		err = errors.New("constructor returned nil")
	}
	if err == nil && ctx.Kind() != scope.SessionScoped {
		err = WrapContextKindMismatchError(scope.SessionScoped, ctx)
		ctx = nil
	}
	return ctx, err
}

func (f *SessionContextFactory) warnf(format string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Warnf(format, args...)
	}
}
