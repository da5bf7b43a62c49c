// Package version 构建版本信息
package version

import (
	"fmt"
	"runtime"
)

// 构建时通过 -ldflags "-X" 注入
var (
	Version   = "v0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// BuildInfo 完整构建信息
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetBuildInfo 获取完整构建信息
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (commit %s, built %s, %s %s)", b.Version, b.GitCommit, b.BuildTime, b.GoVersion, b.Platform)
}
