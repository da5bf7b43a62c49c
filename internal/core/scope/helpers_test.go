package scope

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	scopeconfig "github.com/weisyn/scoped/internal/config/scope"
	"github.com/weisyn/scoped/internal/core/infrastructure/clock"
	"github.com/weisyn/scoped/internal/core/scope/testutil"
	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

type testEnv struct {
	manager       *Manager
	sink          *testutil.RecordingSink
	logger        *testutil.BehavioralMockLogger
	conversations *ConversationManager
	clock         *clock.MockClock
}

func newTestEnv(t *testing.T, mutate func(o *scopeconfig.ScopeOptions)) *testEnv {
	t.Helper()
	cfg := testutil.NewTestScopeConfig(mutate)
	clk := clock.NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	logger := testutil.NewTestBehavioralLogger()
	sink := &testutil.RecordingSink{}
	conversations := NewConversationManager(clk, cfg.GetConversationTimeout(), logger)

	m, err := NewManager(ManagerOptions{
		Config:        cfg,
		Logger:        logger,
		Sink:          sink,
		Conversations: conversations,
	})
	require.NoError(t, err)

	return &testEnv{
		manager:       m,
		sink:          sink,
		logger:        logger,
		conversations: conversations,
		clock:         clk,
	}
}

// startRequest 在新执行单元上开始一次请求
func (e *testEnv) startRequest(req scope.RequestHandle) *Unit {
	u := NewUnit()
	e.manager.Start(u, scope.RequestScoped, req)
	return u
}

func (e *testEnv) endRequest(u *Unit, req scope.RequestHandle) {
	e.manager.End(u, scope.RequestScoped, req)
}

// targets 指定类别与阶段事件的目标列表
func (e *testEnv) targets(kind scope.Kind, phase scope.Phase) []any {
	var out []any
	for _, ev := range e.sink.Filter(kind, phase) {
		out = append(out, ev.Target)
	}
	return out
}
