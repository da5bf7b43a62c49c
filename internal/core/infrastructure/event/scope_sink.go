package event

import (
	"github.com/weisyn/scoped/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

// ScopeSink 把作用域生命周期通知转发到事件总线
//
// 每次通知发布两次：具体主题 <prefix>:<kind>:<phase> 与汇总主题
// <prefix>:lifecycle，载荷均为 scope.LifecycleEvent。
type ScopeSink struct {
	bus    event.EventBus
	prefix string
}

// NewScopeSink 创建通知出口，prefix 为空时使用 "scope"
func NewScopeSink(bus event.EventBus, prefix string) *ScopeSink {
	if prefix == "" {
		prefix = "scope"
	}
	return &ScopeSink{bus: bus, prefix: prefix}
}

// Fire 发布生命周期通知；target 为 nil 时不发布
func (s *ScopeSink) Fire(target any, kind scope.Kind, phase scope.Phase) {
	if target == nil {
		return
	}
	ev := scope.LifecycleEvent{Target: target, Kind: kind, Phase: phase}
	s.bus.Publish(ScopeTopic(s.prefix, kind, phase), ev)
	s.bus.Publish(LifecycleTopic(s.prefix), ev)
}

// SubscribeLifecycle 订阅全部生命周期通知
func (s *ScopeSink) SubscribeLifecycle(handler func(scope.LifecycleEvent)) error {
	return s.bus.Subscribe(LifecycleTopic(s.prefix), handler)
}

// Subscribe 订阅指定作用域与阶段
func (s *ScopeSink) Subscribe(kind scope.Kind, phase scope.Phase, handler func(scope.LifecycleEvent)) error {
	return s.bus.Subscribe(ScopeTopic(s.prefix, kind, phase), handler)
}

var _ scope.EventSink = (*ScopeSink)(nil)
