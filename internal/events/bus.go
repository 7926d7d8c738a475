package events

import (
	"sync"
	"time"
)

// Handler receives an emitted event
type Handler func(event *Event)

// Bus is an in-process publish/subscribe bus.
// Emit delivers synchronously, in subscription order, on the caller's goroutine,
// so every listener has run before the emitting operation returns.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates an empty event bus
func NewBus() *Bus {
	return &Bus{handlers: make(map[EventType][]Handler)}
}

// Subscribe registers a handler for one event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll registers the same handler for several event types
func (b *Bus) SubscribeAll(eventTypes []EventType, handler Handler) {
	for _, t := range eventTypes {
		b.Subscribe(t, handler)
	}
}

// Emit publishes an event to every handler subscribed to its type
func (b *Bus) Emit(eventType EventType, module string, data EventData) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[eventType]))
	copy(handlers, b.handlers[eventType])
	b.mu.RUnlock()

	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Module:    module,
		Data:      data,
	}
	for _, h := range handlers {
		h(event)
	}
}
