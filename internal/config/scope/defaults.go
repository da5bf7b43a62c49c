package scope

import "time"

const (
	// 默认解析原始查询串，避免读取参数时触发请求体解析
	defaultUseGetParameter       = false
	defaultConversationTokenName = "cid"
	defaultAutoConversationCheck = true
	defaultSupportsConversation  = true

	defaultConversationTimeout = 30 * time.Minute
	defaultReaperInterval      = time.Minute

	defaultSessionContextType = ""
	defaultRegistryShards     = 16

	defaultEnableMetrics = true
)
