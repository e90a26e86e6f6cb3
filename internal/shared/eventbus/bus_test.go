package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// DummyEvent implements Event for testing
type DummyEvent struct {
	typeStr   string
	data      interface{}
	timestamp time.Time
	source    string
}

func (e *DummyEvent) Type() string         { return e.typeStr }
func (e *DummyEvent) Data() interface{}    { return e.data }
func (e *DummyEvent) Timestamp() time.Time { return e.timestamp }
func (e *DummyEvent) Source() string       { return e.source }

func TestEventBus_SubscribePublish(t *testing.T) {
	bus := NewEventBus(nil)
	var called bool
	bus.Subscribe("test", func(ctx context.Context, event Event) error {
		called = true
		assert.Equal(t, "test", event.Type())
		return nil
	})
	err := bus.Publish(context.Background(), &DummyEvent{typeStr: "test", timestamp: time.Now()})
	assert.NoError(t, err)
	assert.True(t, called)
}

func TestEventBus_AsyncPublish(t *testing.T) {
	bus := NewEventBusWithConfig(nil, BusConfig{AsyncProcessing: true})
	ch := make(chan struct{}, 1)
	bus.Subscribe("async", func(ctx context.Context, event Event) error {
		ch <- struct{}{}
		return nil
	})
	_ = bus.Publish(context.Background(), &DummyEvent{typeStr: "async", timestamp: time.Now()})
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for async event")
	}
}

func TestEventBus_UnsubscribeRemovesOnlyThatHandler(t *testing.T) {
	bus := NewEventBus(nil)
	var first, second int32
	id := bus.Subscribe("ev", func(ctx context.Context, event Event) error {
		atomic.AddInt32(&first, 1)
		return nil
	})
	bus.Subscribe("ev", func(ctx context.Context, event Event) error {
		atomic.AddInt32(&second, 1)
		return nil
	})
	assert.Equal(t, 2, bus.GetSubscriberCount("ev"))

	bus.Unsubscribe(id)
	assert.Equal(t, 1, bus.GetSubscriberCount("ev"))

	_ = bus.Publish(context.Background(), NewBasicEvent("ev", nil))
	assert.Equal(t, int32(0), atomic.LoadInt32(&first))
	assert.Equal(t, int32(1), atomic.LoadInt32(&second))
}

func TestEventBus_FailingHandlerDoesNotStopOthers(t *testing.T) {
	bus := NewEventBus(nil)
	var delivered bool
	bus.Subscribe("ev", func(ctx context.Context, event Event) error {
		return errors.New("boom")
	})
	bus.Subscribe("ev", func(ctx context.Context, event Event) error {
		delivered = true
		return nil
	})

	err := bus.Publish(context.Background(), NewBasicEvent("ev", nil))
	assert.Error(t, err)
	assert.True(t, delivered)
}

func TestBasicEvent(t *testing.T) {
	ev := NewBasicEventWithSource(EventTypeAlert, "payload", "fetchstate")
	assert.Equal(t, EventTypeAlert, ev.Type())
	assert.Equal(t, "payload", ev.Data())
	assert.Equal(t, "fetchstate", ev.Source())
	assert.False(t, ev.Timestamp().IsZero())
}
