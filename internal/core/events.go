package core

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// EventType names an event published by a controller
type EventType string

const (
	EventDeductionCompleted EventType = "deduction-completed"
	EventDeductionFailed    EventType = "deduction-failed"
	EventShutdown           EventType = "shutdown"
	// EventAssignmentChanged is published when a user choice is stored for a recipient group
	EventAssignmentChanged EventType = "changed-recipient-language-assignment"
)

// Event carries the payload of a published event.
// Recipients and languages are only set for EventAssignmentChanged.
type Event struct {
	Type              EventType
	Recipients        Recipients
	RecipientsKey     string
	PreviousLanguages LanguageSet
	Languages         LanguageSet
}

// Handler reacts to an event
type Handler func(ctx context.Context, event Event) error

type subscription struct {
	id      uint64
	handler Handler
}

// EventBus delivers events synchronously, in subscription order
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]subscription
	nextID   uint64
	logger   *zap.Logger
}

// NewEventBus creates an empty event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]subscription),
		logger:   logger,
	}
}

// Subscribe registers a handler and returns the function that removes it
func (b *EventBus) Subscribe(eventType EventType, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(eventType, id) })
	}
}

func (b *EventBus) unsubscribe(eventType EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[eventType]
	for i, sub := range subs {
		if sub.id == id {
			b.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish calls every handler for the event type. All handlers run even if
// some fail; their errors are combined.
func (b *EventBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := make([]subscription, len(b.handlers[event.Type]))
	copy(subs, b.handlers[event.Type])
	b.mu.RUnlock()

	var errs error
	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			b.logger.Warn("Event handler failed",
				zap.String("event", string(event.Type)),
				zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s handler: %w", event.Type, err))
		}
	}
	return errs
}
