package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	ConfigPath string // 配置文件路径
}

var globalFlags GlobalFlags

// newRootCmd 根命令
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "scoped",
		Short: "作用域上下文生命周期服务",
		Long: `scoped 管理 request / session / conversation / application / singleton / dependent
六种作用域上下文的生命周期，并通过 HTTP 提供会话与长会话（conversation）接入。

配置文件支持 JSON 与 YAML，也可以通过环境变量 SCOPED_CONFIG_PATH 指定。`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&globalFlags.ConfigPath, "config", "c", "", "配置文件路径 (.json/.yaml)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute 执行根命令
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
