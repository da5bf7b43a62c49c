package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/weisyn/scoped/pkg/types"
)

// EnvConfigPath 指定配置文件路径的环境变量，优先于命令行参数
const EnvConfigPath = "SCOPED_CONFIG_PATH"

// resolveConfigPath 环境变量优先，其次为显式路径
func resolveConfigPath(explicit string) string {
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return explicit
}

// LoadConfigFile 按扩展名解析配置文件；.json 走 encoding/json，其余按 YAML
func LoadConfigFile(path string) (*types.AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败 %s: %w", path, err)
	}
	cfg, err := parseConfig(data, strings.ToLower(filepath.Ext(path)) == ".json")
	if err != nil {
		return nil, fmt.Errorf("解析配置文件失败 %s: %w", path, err)
	}
	return cfg, nil
}

func parseConfig(data []byte, isJSON bool) (*types.AppConfig, error) {
	var cfg types.AppConfig
	if isJSON {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadAppConfig 按 嵌入内容 > 已有配置 > 配置文件 的顺序确定用户配置
//
// 没有任何来源时返回 nil，由各配置区使用默认值。
func loadAppConfig(o *options) (*types.AppConfig, error) {
	if len(o.embeddedConfig) > 0 {
		return parseConfig(o.embeddedConfig, false)
	}
	if o.appConfig != nil {
		return o.appConfig, nil
	}
	path := resolveConfigPath(o.configFilePath)
	if path == "" {
		return nil, nil
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	if err := ensureLogDirectory(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ensureLogDirectory 日志写入文件时预先创建目录
func ensureLogDirectory(cfg *types.AppConfig) error {
	if cfg == nil || cfg.Log == nil || cfg.Log.FilePath == nil || *cfg.Log.FilePath == "" {
		return nil
	}
	dir := filepath.Dir(*cfg.Log.FilePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建日志目录 %s 失败: %w", dir, err)
	}
	return nil
}
