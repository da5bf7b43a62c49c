package scope

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/scoped/internal/core/scope/testutil"
	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

func TestMetrics_ObserveLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	registry := NewSessionRegistry(4)
	conversations, _ := newTestConversationManager()
	metrics := NewMetrics(reg,
		func() float64 { return float64(registry.Len()) },
		func() float64 { return float64(conversations.Len()) },
	)

	m, err := NewManager(ManagerOptions{
		Config:        testutil.NewTestScopeConfig(nil),
		Logger:        testutil.NewTestLogger(),
		Registry:      registry,
		Conversations: conversations,
		Metrics:       metrics,
	})
	require.NoError(t, err)

	sess := testutil.NewFakeSession("s1")
	req := testutil.NewFakeRequest("", sess)
	u := NewUnit()
	m.Start(u, scope.RequestScoped, req)
	_, err = m.BeginConversation(u, "c1", 0)
	require.NoError(t, err)
	u.PushReleasable(func() error { panic("x") })
	m.End(u, scope.RequestScoped, req)
	m.Start(u, scope.Kind(9), nil)

	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.transitions.WithLabelValues("request", "initialized")))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.transitions.WithLabelValues("session", "initialized")))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.deferredFailures))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.unsupported.WithLabelValues("kind(9)")))

	families, err := reg.Gather()
	require.NoError(t, err)
	gauges := map[string]float64{}
	for _, mf := range families {
		if mf.GetType().String() == "GAUGE" {
			gauges[mf.GetName()] = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, 1.0, gauges["scoped_session_registered"])
	assert.Equal(t, 1.0, gauges["scoped_conversation_long_running"])
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeTransition(scope.RequestScoped, scope.Initialized)
		m.observeBusy()
		m.observeDeferredFailure()
		m.observeUnsupported(scope.Kind(9))
	})
}
