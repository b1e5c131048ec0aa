package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/wms/returns/internal/domain/damage"
	"github.com/wms/returns/internal/domain/returns"
	"github.com/wms/returns/internal/domain/shared"
)

// EventSerializer converts domain events to and from their outbox JSON
// payloads. Deserialization needs the concrete type, so every event type
// that travels through the outbox must be registered.
type EventSerializer struct {
	mu       sync.RWMutex
	registry map[string]reflect.Type
}

// NewEventSerializer creates an empty serializer
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{
		registry: make(map[string]reflect.Type),
	}
}

// NewDomainEventSerializer creates a serializer with every event type of
// this module registered
func NewDomainEventSerializer() *EventSerializer {
	s := NewEventSerializer()

	s.Register(returns.EventTypeReturnInitiated, &returns.ReturnInitiatedEvent{})
	s.Register(returns.EventTypeReturnProcessed, &returns.ReturnProcessedEvent{})
	s.Register(returns.EventTypeReturnLocationAssigned, &returns.ReturnLocationAssignedEvent{})
	s.Register(returns.EventTypeReturnCompleted, &returns.ReturnCompletedEvent{})
	s.Register(returns.EventTypeReturnReconciled, &returns.ReturnReconciledEvent{})
	s.Register(returns.EventTypeReturnCancelled, &returns.ReturnCancelledEvent{})

	s.Register(damage.EventTypeDamageRecorded, &damage.DamageRecordedEvent{})
	s.Register(damage.EventTypeDamageSubmitted, &damage.DamageSubmittedEvent{})
	s.Register(damage.EventTypeDamageAssessmentCompleted, &damage.DamageAssessmentCompletedEvent{})

	return s
}

// Register maps an event type name to its concrete Go type
func (s *EventSerializer) Register(eventType string, eventInstance shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := reflect.TypeOf(eventInstance)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.registry[eventType] = t
}

// Serialize serializes a domain event to JSON bytes
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

// Deserialize reconstructs a domain event from its JSON payload
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.registry[eventType]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	eventPtr := reflect.New(t).Interface()
	if err := json.Unmarshal(data, eventPtr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	event, ok := eventPtr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("deserialized object does not implement DomainEvent")
	}
	return event, nil
}

// IsRegistered checks if an event type is registered
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registry[eventType]
	return ok
}

// RegisteredTypes returns all registered event type names
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.registry))
	for t := range s.registry {
		types = append(types, t)
	}
	return types
}
