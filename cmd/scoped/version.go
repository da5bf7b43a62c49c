package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weisyn/scoped/internal/app/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetBuildInfo().String())
		},
	}
}
