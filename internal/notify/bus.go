package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Subscriber consumes lifecycle events. Subscribers must not block for long;
// publishing is synchronous on the pipeline goroutine.
type Subscriber func(Event)

// Bus is a typed observer registry for lifecycle notifications. Consumers
// are added without coupling the orchestrator to any transport.
type Bus struct {
	mu     sync.RWMutex
	subs   []Subscriber
	logger *slog.Logger
}

// NewBus constructs an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers a consumer for all subsequent events.
func (b *Bus) Subscribe(sub Subscriber) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, sub)
}

// Publish fans the event out to every subscriber. A panicking subscriber is
// isolated so it cannot abort the pipeline run that emitted the event.
func (b *Bus) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	b.mu.RLock()
	subs := make([]Subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(sub, event)
	}
}

func (b *Bus) deliver(sub Subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("notification subscriber panicked",
				slog.String("event", string(event.Type)), slog.Any("panic", r))
		}
	}()
	sub(event)
}
