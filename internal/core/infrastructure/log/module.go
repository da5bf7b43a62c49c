package log

import (
	"fmt"

	logconfig "github.com/weisyn/scoped/internal/config/log"
	"github.com/weisyn/scoped/pkg/interfaces/config"
	logInterface "github.com/weisyn/scoped/pkg/interfaces/infrastructure/log"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ModuleParams 日志模块依赖
type ModuleParams struct {
	fx.In

	Provider  config.Provider
	Lifecycle fx.Lifecycle `optional:"true"`
}

// ModuleOutput 日志模块输出
type ModuleOutput struct {
	fx.Out

	Logger    logInterface.Logger
	ZapLogger *zap.Logger
}

// Module 返回日志模块
func Module() fx.Option {
	return fx.Module("log",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 按配置创建日志器并替换全局日志器
func ProvideServices(params ModuleParams) (ModuleOutput, error) {
	logger, err := New(logconfig.NewFromOptions(params.Provider.GetLog()))
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("根据用户配置创建日志记录器失败: %w", err)
	}

	SetLogger(logger)

	if params.Lifecycle != nil {
		params.Lifecycle.Append(fx.StopHook(func() {
			// stdout 上的 Sync 在部分平台返回 EINVAL，忽略
			_ = logger.Sync()
		}))
	}

	return ModuleOutput{
		Logger:    logger,
		ZapLogger: logger.GetZapLogger(),
	}, nil
}

// NewModuleLogger 派生带 module 字段的日志器，base 为 nil 时返回 nil
func NewModuleLogger(baseLogger logInterface.Logger, module string) logInterface.Logger {
	if baseLogger == nil {
		return nil
	}
	return baseLogger.With("module", module)
}
