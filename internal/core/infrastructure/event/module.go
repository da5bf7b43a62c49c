package event

import (
	"go.uber.org/fx"

	"github.com/weisyn/scoped/pkg/interfaces/config"
	eventInterface "github.com/weisyn/scoped/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/scoped/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

// ModuleInput 事件模块依赖
type ModuleInput struct {
	fx.In

	Provider  config.Provider
	Logger    log.Logger `optional:"true"`
	Lifecycle fx.Lifecycle
}

// ModuleOutput 事件模块输出
type ModuleOutput struct {
	fx.Out

	EventBus  eventInterface.EventBus
	ScopeSink scope.EventSink
	Sink      *ScopeSink
}

// Module 返回事件模块
func Module() fx.Option {
	return fx.Module("event",
		fx.Provide(
			func(input ModuleInput) (ModuleOutput, error) {
				out, err := CreateEventServices(ServiceInput{
					Provider: input.Provider,
					Logger:   input.Logger,
				})
				if err != nil {
					return ModuleOutput{}, err
				}

				bus := out.EventBus
				input.Lifecycle.Append(fx.StartStopHook(
					func() { bus.Publish(SystemStarted, "started") },
					func() {
						bus.Publish(SystemStopped, "stopped")
						bus.WaitAsync()
					},
				))

				return ModuleOutput{
					EventBus:  out.EventBus,
					ScopeSink: out.ScopeSink,
					Sink:      out.Sink,
				}, nil
			},
		),
	)
}
