// Package event 事件总线接口
package event

// EventType 事件主题
type EventType string

// EventBus 事件总线
//
// 生命周期由 DI 容器管理；事件系统关闭时所有方法静默成功。
type EventBus interface {
	Subscribe(eventType EventType, handler interface{}) error
	// SubscribeAsync 异步订阅；transactional 为 true 时同一处理器串行执行
	SubscribeAsync(eventType EventType, handler interface{}, transactional bool) error
	SubscribeOnce(eventType EventType, handler interface{}) error
	Unsubscribe(eventType EventType, handler interface{}) error

	// Publish 发布事件，参数不得为 nil 接口值
	Publish(eventType EventType, args ...interface{})

	HasCallback(eventType EventType) bool

	// WaitAsync 等待全部异步处理器完成
	WaitAsync()
}
