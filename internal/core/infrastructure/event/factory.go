package event

import (
	eventconfig "github.com/weisyn/scoped/internal/config/event"
	"github.com/weisyn/scoped/pkg/interfaces/config"
	eventInterface "github.com/weisyn/scoped/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/scoped/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

// ServiceInput 事件服务工厂输入
type ServiceInput struct {
	Provider config.Provider
	Logger   log.Logger // 可选
}

// ServiceOutput 事件服务工厂输出
type ServiceOutput struct {
	EventBus  eventInterface.EventBus
	ScopeSink scope.EventSink
	Sink      *ScopeSink
}

// CreateEventServices 创建事件总线与作用域通知出口
func CreateEventServices(input ServiceInput) (ServiceOutput, error) {
	cfg := eventconfig.NewFromOptions(input.Provider.GetEvent())

	var logger log.Logger
	if input.Logger != nil {
		logger = input.Logger.With("module", "event")
	}

	bus := New(cfg, logger)
	sink := NewScopeSink(bus, cfg.GetTopicPrefix())

	if logger != nil {
		logger.Infof("事件总线已初始化 enabled=%v prefix=%s", cfg.IsEnabled(), cfg.GetTopicPrefix())
	}

	return ServiceOutput{
		EventBus:  bus,
		ScopeSink: sink,
		Sink:      sink,
	}, nil
}
