package app

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/weisyn/scoped/internal/api"
	config "github.com/weisyn/scoped/internal/config"
	"github.com/weisyn/scoped/internal/core/infrastructure/clock"
	"github.com/weisyn/scoped/internal/core/infrastructure/event"
	log "github.com/weisyn/scoped/internal/core/infrastructure/log"
	"github.com/weisyn/scoped/internal/core/scope"
	configiface "github.com/weisyn/scoped/pkg/interfaces/config"
)

// Framework layers
const (
	// 基础设施层
	LayerInfrastructure = "infrastructure"
	// 业务逻辑层
	LayerBusiness = "business"
	// 应用层
	LayerApplication = "application"
)

// Bootstrap 应用引导程序
type Bootstrap struct {
	opts  *options
	fxApp *fx.App
}

// NewBootstrap 创建引导程序
func NewBootstrap(opts *options) *Bootstrap {
	return &Bootstrap{opts: opts}
}

// SetupInfrastructureLayer 配置、日志、时钟与事件
func (b *Bootstrap) SetupInfrastructureLayer() []fx.Option {
	return []fx.Option{
		fx.Provide(func() configiface.AppOptions { return b.opts }),
		config.Module(),
		log.Module(),
		clock.Module(),
		event.Module(),
	}
}

// SetupBusinessLayer 作用域生命周期管理
func (b *Bootstrap) SetupBusinessLayer() []fx.Option {
	return []fx.Option{
		scope.Module(),
	}
}

// SetupApplicationLayer HTTP 接入（可关闭）
func (b *Bootstrap) SetupApplicationLayer() []fx.Option {
	if !b.opts.enableAPI {
		return nil
	}
	return []fx.Option{api.Module()}
}

// SetupModules 按层次顺序组装全部模块
func (b *Bootstrap) SetupModules() []fx.Option {
	var modules []fx.Option
	modules = append(modules, b.SetupInfrastructureLayer()...)
	modules = append(modules, b.SetupBusinessLayer()...)
	modules = append(modules, b.SetupApplicationLayer()...)
	return modules
}

// CreateFxApp 创建fx应用
func (b *Bootstrap) CreateFxApp(extra ...fx.Option) error {
	appConfig, err := loadAppConfig(b.opts)
	if err != nil {
		return err
	}
	b.opts.appConfig = appConfig

	appOptions := []fx.Option{
		fx.Options(b.SetupModules()...),
		fx.NopLogger,
	}
	appOptions = append(appOptions, extra...)

	b.fxApp = fx.New(appOptions...)
	return b.fxApp.Err()
}

// StartApp 启动应用程序
func (b *Bootstrap) StartApp(ctx context.Context) error {
	if err := b.fxApp.Start(ctx); err != nil {
		return fmt.Errorf("启动应用失败: %w", err)
	}
	return nil
}

// StopApp 停止应用程序
func (b *Bootstrap) StopApp(ctx context.Context) error {
	if err := b.fxApp.Stop(ctx); err != nil {
		return fmt.Errorf("停止应用失败: %w", err)
	}
	return nil
}
