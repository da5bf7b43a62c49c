package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weisyn/scoped/internal/app"
	"github.com/weisyn/scoped/internal/config"
	"github.com/weisyn/scoped/pkg/types"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "配置文件工具",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "校验配置文件",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := config.ValidateAppConfig(cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "配置有效")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "输出合并默认值后的有效配置",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			provider := config.NewProvider(cfg)
			effective := map[string]interface{}{
				"app_name":    provider.GetAppName(),
				"environment": provider.GetEnvironment(),
				"log":         provider.GetLog(),
				"event":       provider.GetEvent(),
				"scope":       provider.GetScope(),
				"api":         provider.GetAPI(),
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(effective)
		},
	})
	return cmd
}

func loadConfig() (*types.AppConfig, error) {
	if globalFlags.ConfigPath == "" {
		return nil, errors.New("需要通过 --config 指定配置文件")
	}
	return app.LoadConfigFile(globalFlags.ConfigPath)
}
