package api

import "time"

const (
	defaultHTTPHost        = "127.0.0.1"
	defaultHTTPPort        = 8080
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultShutdownTimeout = 10 * time.Second

	defaultConversationGuard = false

	defaultSessionCookieName  = "SCOPEDSESSIONID"
	defaultSessionMaxInactive = 30 * time.Minute
	defaultSessionShards      = 64
)
