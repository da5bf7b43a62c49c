package scope

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	scopeconfig "github.com/weisyn/scoped/internal/config/scope"
	logmod "github.com/weisyn/scoped/internal/core/infrastructure/log"
	"github.com/weisyn/scoped/pkg/interfaces/config"
	infraClock "github.com/weisyn/scoped/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/scoped/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

// ModuleInput 作用域模块依赖
type ModuleInput struct {
	fx.In

	Provider  config.Provider
	Clock     infraClock.Clock
	Logger    log.Logger
	Sink      scope.EventSink `optional:"true"`
	Lifecycle fx.Lifecycle
}

// ModuleOutput 作用域模块输出
type ModuleOutput struct {
	fx.Out

	Manager       *Manager
	Registry      *SessionRegistry
	Conversations *ConversationManager
	Factory       *SessionContextFactory
	Gatherer      *prometheus.Registry
}

// Module 返回作用域模块
func Module() fx.Option {
	return fx.Module("scope",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 创建管理器及其协作者，并挂载长会话清理与停机钩子
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	cfg := scopeconfig.NewFromOptions(input.Provider.GetScope())

	logger := logmod.NewModuleLogger(input.Logger, "scope")

	registry := NewSessionRegistry(cfg.GetRegistryShards())
	conversations := NewConversationManager(input.Clock, cfg.GetConversationTimeout(), logger)
	factory := NewSessionContextFactory(logger)

	promRegistry := prometheus.NewRegistry()
	var metrics *Metrics
	if cfg.IsMetricsEnabled() {
		metrics = NewMetrics(promRegistry,
			func() float64 { return float64(registry.Len()) },
			func() float64 { return float64(conversations.Len()) },
		)
	}

	manager, err := NewManager(ManagerOptions{
		Config:        cfg,
		Logger:        logger,
		Sink:          input.Sink,
		Registry:      registry,
		Factory:       factory,
		Conversations: conversations,
		Metrics:       metrics,
	})
	if err != nil {
		return ModuleOutput{}, err
	}

	reaper := newReaper(manager, cfg.GetReaperInterval())
	input.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			manager.Init(nil)
			if cfg.SupportsConversation() {
				reaper.start()
			}
			return nil
		},
		OnStop: func(context.Context) error {
			reaper.stop()
			manager.Shutdown()
			return nil
		},
	})

	return ModuleOutput{
		Manager:       manager,
		Registry:      registry,
		Conversations: conversations,
		Factory:       factory,
		Gatherer:      promRegistry,
	}, nil
}

// reaper 周期性清理过期长会话
type reaper struct {
	manager  *Manager
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newReaper(manager *Manager, interval time.Duration) *reaper {
	return &reaper{manager: manager, interval: interval}
}

func (r *reaper) start() {
	if r.interval <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(ctx, r.done)
}

func (r *reaper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.manager.ReapExpiredConversations()
		}
	}
}

func (r *reaper) stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
