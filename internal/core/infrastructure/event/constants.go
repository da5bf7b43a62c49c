package event

import (
	"fmt"

	"github.com/weisyn/scoped/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

// 系统事件
const (
	SystemStarted event.EventType = "system:started"
	SystemStopped event.EventType = "system:stopped"
)

// lifecycleAll 汇总主题后缀，每次通知都会额外发布到 <prefix>:lifecycle
const lifecycleAll = "lifecycle"

// ScopeTopic 具体作用域与阶段的主题，形如 scope:session:destroyed
func ScopeTopic(prefix string, kind scope.Kind, phase scope.Phase) event.EventType {
	return event.EventType(fmt.Sprintf("%s:%s:%s", prefix, kind, phase))
}

// LifecycleTopic 汇总主题
func LifecycleTopic(prefix string) event.EventType {
	return event.EventType(prefix + ":" + lifecycleAll)
}
