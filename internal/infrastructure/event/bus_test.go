package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wms/returns/internal/domain/shared"
)

type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	events []shared.DomainEvent
	err    error
	panics bool
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("handler exploded")
	}
	h.mu.Lock()
	h.events = append(h.events, event)
	h.mu.Unlock()
	return h.err
}

func (h *recordingHandler) received() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]shared.DomainEvent, len(h.events))
	copy(out, h.events)
	return out
}

func newTestEvent(eventType string) shared.DomainEvent {
	base := shared.NewBaseDomainEvent(eventType, "Return", uuid.New(), uuid.New())
	return &base
}

func TestInMemoryEventBus_DeliversToMatchingHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	completed := &recordingHandler{types: []string{"return.completed"}}
	cancelled := &recordingHandler{types: []string{"return.cancelled"}}
	bus.Subscribe(completed)
	bus.Subscribe(cancelled)

	event := newTestEvent("return.completed")
	require.NoError(t, bus.Publish(context.Background(), event))

	require.Len(t, completed.received(), 1)
	assert.Equal(t, event.EventID(), completed.received()[0].EventID())
	assert.Empty(t, cancelled.received())
}

func TestInMemoryEventBus_WildcardHandlerReceivesEverything(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	audit := &recordingHandler{}
	bus.Subscribe(audit)

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent("return.completed"),
		newTestEvent("damage.recorded"),
	))

	assert.Len(t, audit.received(), 2)
}

func TestInMemoryEventBus_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := &recordingHandler{types: []string{"return.completed"}, err: errors.New("boom")}
	healthy := &recordingHandler{types: []string{"return.completed"}}
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("return.completed"))

	// the healthy handler still runs, and the failure reaches the
	// caller so the outbox schedules a redelivery
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Len(t, healthy.received(), 1)
}

func TestInMemoryEventBus_HandlerPanicIsContained(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	panicking := &recordingHandler{types: []string{"return.completed"}, panics: true}
	healthy := &recordingHandler{types: []string{"return.completed"}}
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	var err error
	require.NotPanics(t, func() {
		err = bus.Publish(context.Background(), newTestEvent("return.completed"))
	})
	assert.ErrorContains(t, err, "handler exploded")
	assert.Len(t, healthy.received(), 1)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{types: []string{"return.completed"}}
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("return.completed")))

	assert.Empty(t, handler.received())
}
