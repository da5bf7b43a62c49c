package scope

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/weisyn/scoped/internal/config"
	"github.com/weisyn/scoped/internal/core/infrastructure/clock"
	"github.com/weisyn/scoped/internal/core/scope/testutil"
	configInterface "github.com/weisyn/scoped/pkg/interfaces/config"
	infraClock "github.com/weisyn/scoped/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/scoped/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/scoped/pkg/interfaces/scope"
	"github.com/weisyn/scoped/pkg/types"
)

func TestModule_WiresManagerAndLifecycle(t *testing.T) {
	sink := &testutil.RecordingSink{}
	var (
		manager  *Manager
		gatherer *prometheus.Registry
	)

	app := fxtest.New(t,
		fx.Provide(
			func() configInterface.Provider {
				return config.NewProvider(&types.AppConfig{
					Scope: &types.UserScopeConfig{EnableMetrics: types.BoolPtr(true)},
				})
			},
			func() infraClock.Clock { return clock.NewSystemClock() },
			func() log.Logger { return testutil.NewTestLogger() },
			func() scope.EventSink { return sink },
		),
		Module(),
		fx.Populate(&manager, &gatherer),
	)
	app.RequireStart()
	require.NotNil(t, manager)
	assert.True(t, manager.Application().IsInitialized())
	assert.True(t, manager.SupportsConversation())

	u := NewUnit()
	sess := testutil.NewFakeSession("s1")
	manager.Start(u, scope.SessionScoped, sess)
	require.NotNil(t, u.Session())

	families, err := gatherer.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	app.RequireStop()
	assert.False(t, u.Session().IsActive())
	assert.Equal(t, 1, sess.Invalidated())
	assert.Equal(t, 1, sink.Count(scope.ApplicationScoped, scope.Destroyed))
}
