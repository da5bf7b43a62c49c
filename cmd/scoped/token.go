package main

import (
	"fmt"

	"github.com/spf13/cobra"

	scopecore "github.com/weisyn/scoped/internal/core/scope"
)

func newTokenCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "token <query>",
		Short: "按服务端规则从查询串中提取长会话令牌",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, ok := scopecore.QueryToken(name, args[0])
			if !ok {
				return fmt.Errorf("查询串中没有 %s 参数", name)
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "cid", "令牌参数名")
	return cmd
}
