package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weisyn/scoped/internal/app"
)

func newServeCmd() *cobra.Command {
	var withoutAPI bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动作用域管理器与 HTTP 服务，直到收到退出信号",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []app.Option{app.WithConfigFile(globalFlags.ConfigPath)}
			if withoutAPI {
				opts = append(opts, app.WithoutAPI())
			}

			running, err := app.Start(opts...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "scoped 已启动，按 Ctrl+C 停止")
			return running.Wait()
		},
	}
	cmd.Flags().BoolVar(&withoutAPI, "no-api", false, "不启动 HTTP 服务")
	return cmd
}
