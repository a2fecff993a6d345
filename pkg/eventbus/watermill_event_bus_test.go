package eventbus_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvelasco/fasegate/pkg/channels/gochannel"
	"github.com/nvelasco/fasegate/pkg/eventbus"
	"github.com/nvelasco/fasegate/pkg/events"
)

func newBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(slog.Default()))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestGenerateID_Unique(t *testing.T) {
	bus := newBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestPublishSubscribe_Roundtrip(t *testing.T) {
	bus := newBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.TaskToggled, 1)

	err := bus.Handle(events.TaskToggledEvent, func(_ context.Context, event any) error {
		toggled, ok := event.(*events.TaskToggled)
		require.True(t, ok)
		received <- toggled

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	sent := events.TaskToggled{
		BaseEvent: events.BaseEvent{
			ID:        bus.GenerateID(),
			Type:      events.TaskToggledEvent,
			Timestamp: time.Now().UTC(),
			SessionID: "sess-1",
			ProductID: 42,
		},
		PhaseID:   1,
		TaskID:    100,
		Completed: true,
		UserID:    7,
	}
	require.NoError(t, bus.Publish(ctx, "42", sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.TaskID, got.TaskID)
		assert.Equal(t, sent.ProductID, got.ProductID)
		assert.True(t, got.Completed)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSubscribe_UnhandledTypeIsSkipped(t *testing.T) {
	bus := newBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.PhaseAdvanced, 1)

	err := bus.Handle(events.PhaseAdvancedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.PhaseAdvanced)

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered for this one; it must not block the stream.
	toggle := events.TaskToggled{
		BaseEvent: events.BaseEvent{ID: bus.GenerateID(), Type: events.TaskToggledEvent},
	}
	require.NoError(t, bus.Publish(ctx, "42", toggle))

	advanced := events.PhaseAdvanced{
		BaseEvent:   events.BaseEvent{ID: bus.GenerateID(), Type: events.PhaseAdvancedEvent},
		FromPhaseID: 1,
		ToPhaseID:   2,
	}
	require.NoError(t, bus.Publish(ctx, "42", advanced))

	select {
	case got := <-received:
		assert.Equal(t, 2, got.ToPhaseID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}
