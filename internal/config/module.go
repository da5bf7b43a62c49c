package config

import (
	"go.uber.org/fx"

	"github.com/weisyn/scoped/internal/config/scope"
	"github.com/weisyn/scoped/pkg/interfaces/config"
	"github.com/weisyn/scoped/pkg/types"
)

// ConfigParams 配置模块依赖
type ConfigParams struct {
	fx.In

	AppOptions config.AppOptions `optional:"true"`
}

// ConfigOutput 配置模块输出
type ConfigOutput struct {
	fx.Out

	Provider config.Provider
}

// Module 返回配置模块
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			ProvideConfigServices,
			func(provider config.Provider) *scope.ScopeOptions {
				return provider.GetScope()
			},
		),
	)
}

// ProvideConfigServices 校验用户配置并创建提供者
func ProvideConfigServices(params ConfigParams) (ConfigOutput, error) {
	var appConfig *types.AppConfig
	if params.AppOptions != nil {
		appConfig = params.AppOptions.GetAppConfig()
	}

	if err := ValidateAppConfig(appConfig); err != nil {
		return ConfigOutput{}, err
	}

	return ConfigOutput{Provider: NewProvider(appConfig)}, nil
}
