package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eventconfig "github.com/weisyn/scoped/internal/config/event"
	"github.com/weisyn/scoped/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/scoped/pkg/interfaces/scope"
	"github.com/weisyn/scoped/pkg/types"
)

func TestEventBus_SyncAndAsync(t *testing.T) {
	bus := New(eventconfig.New(nil), nil)

	var got string
	require.NoError(t, bus.Subscribe("test-event", func(data string) { got = data }))
	bus.Publish("test-event", "hello")
	assert.Equal(t, "hello", got)

	var wg sync.WaitGroup
	wg.Add(1)
	var asyncGot string
	require.NoError(t, bus.SubscribeAsync("async-event", func(data string) {
		asyncGot = data
		wg.Done()
	}, false))
	bus.Publish("async-event", "world")
	wg.Wait()
	bus.WaitAsync()
	assert.Equal(t, "world", asyncGot)
}

func TestEventBus_DropsNilArguments(t *testing.T) {
	bus := New(eventconfig.New(nil), nil)

	called := false
	require.NoError(t, bus.Subscribe("nil-event", func(v any) { called = true }))

	assert.NotPanics(t, func() { bus.Publish("nil-event", nil) })
	assert.False(t, called)

	published, dropped := bus.Stats()
	assert.Equal(t, uint64(0), published)
	assert.Equal(t, uint64(1), dropped)
}

func TestEventBus_DisabledIsSilent(t *testing.T) {
	bus := New(eventconfig.New(&types.UserEventConfig{Enabled: types.BoolPtr(false)}), nil)

	called := false
	require.NoError(t, bus.Subscribe("x", func(string) { called = true }))
	bus.Publish("x", "y")

	assert.False(t, called)
	assert.False(t, bus.HasCallback("x"))
}

func TestScopeSink_PublishesSpecificAndAggregateTopics(t *testing.T) {
	bus := New(eventconfig.New(nil), nil)
	sink := NewScopeSink(bus, "")

	var specific, all []scope.LifecycleEvent
	require.NoError(t, sink.Subscribe(scope.SessionScoped, scope.Initialized, func(e scope.LifecycleEvent) {
		specific = append(specific, e)
	}))
	require.NoError(t, sink.SubscribeLifecycle(func(e scope.LifecycleEvent) {
		all = append(all, e)
	}))

	sink.Fire("session-1", scope.SessionScoped, scope.Initialized)
	sink.Fire("req", scope.RequestScoped, scope.Destroyed)
	sink.Fire(nil, scope.RequestScoped, scope.Destroyed)

	require.Len(t, specific, 1)
	assert.Equal(t, "session-1", specific[0].Target)
	require.Len(t, all, 2)
	assert.Equal(t, scope.RequestScoped, all[1].Kind)
	assert.Equal(t, scope.Destroyed, all[1].Phase)
}

func TestScopeTopic(t *testing.T) {
	assert.Equal(t, event.EventType("scope:conversation:destroyed"),
		ScopeTopic("scope", scope.ConversationScoped, scope.Destroyed))
	assert.Equal(t, event.EventType("x:lifecycle"), LifecycleTopic("x"))
}
