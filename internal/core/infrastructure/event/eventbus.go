// Package event 基于 asaskevich/EventBus 的事件总线
package event

import (
	"sync/atomic"

	evbus "github.com/asaskevich/EventBus"
	eventconfig "github.com/weisyn/scoped/internal/config/event"
	"github.com/weisyn/scoped/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/scoped/pkg/interfaces/infrastructure/log"
)

// EventBus 事件总线实现
type EventBus struct {
	bus    evbus.Bus
	config *eventconfig.Config
	logger log.Logger

	published atomic.Uint64
	dropped   atomic.Uint64
}

// New 创建事件总线
func New(config *eventconfig.Config, logger log.Logger) *EventBus {
	return &EventBus{
		bus:    evbus.New(),
		config: config,
		logger: logger,
	}
}

// Subscribe 同步订阅
func (eb *EventBus) Subscribe(eventType event.EventType, handler interface{}) error {
	if !eb.config.IsEnabled() {
		return nil
	}
	return eb.bus.Subscribe(string(eventType), handler)
}

// SubscribeAsync 异步订阅
func (eb *EventBus) SubscribeAsync(eventType event.EventType, handler interface{}, transactional bool) error {
	if !eb.config.IsEnabled() {
		return nil
	}
	return eb.bus.SubscribeAsync(string(eventType), handler, transactional)
}

// SubscribeOnce 一次性订阅
func (eb *EventBus) SubscribeOnce(eventType event.EventType, handler interface{}) error {
	if !eb.config.IsEnabled() {
		return nil
	}
	return eb.bus.SubscribeOnce(string(eventType), handler)
}

// Unsubscribe 取消订阅
func (eb *EventBus) Unsubscribe(eventType event.EventType, handler interface{}) error {
	if !eb.config.IsEnabled() {
		return nil
	}
	return eb.bus.Unsubscribe(string(eventType), handler)
}

// Publish 发布事件
//
// 底层库通过反射调用处理器，nil 参数会导致 panic，因此含 nil 的发布被丢弃。
func (eb *EventBus) Publish(eventType event.EventType, args ...interface{}) {
	if !eb.config.IsEnabled() {
		return
	}
	for _, arg := range args {
		if arg == nil {
			eb.dropped.Add(1)
			if eb.logger != nil {
				eb.logger.Warnf("丢弃含 nil 参数的事件: %s", eventType)
			}
			return
		}
	}
	eb.published.Add(1)
	eb.bus.Publish(string(eventType), args...)
}

// HasCallback 主题是否有订阅者
func (eb *EventBus) HasCallback(eventType event.EventType) bool {
	if !eb.config.IsEnabled() {
		return false
	}
	return eb.bus.HasCallback(string(eventType))
}

// WaitAsync 等待异步处理器完成
func (eb *EventBus) WaitAsync() {
	if !eb.config.IsEnabled() {
		return
	}
	eb.bus.WaitAsync()
}

// Stats 已发布与被丢弃的事件数
func (eb *EventBus) Stats() (published, dropped uint64) {
	return eb.published.Load(), eb.dropped.Load()
}

var _ event.EventBus = (*EventBus)(nil)
