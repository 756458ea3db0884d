package events

import (
	"sync"
	"time"

	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
// Subscribers get events asynchronously; observers are called inline by Publish.
type Bus struct {
	dispatcher *event.Dispatcher

	mu        sync.RWMutex
	observers map[int]func(Event)
	nextID    int
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
		observers:  make(map[int]func(Event)),
	}
}

// Observe registers fn to be called synchronously, on the publishing
// goroutine, before Publish returns. fn must be fast and must not publish.
// Returns a function that removes the observer.
func (b *Bus) Observe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.observers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.observers, id)
		b.mu.Unlock()
	}
}

// Publish publishes an event to all observers and subscribers
// Usage: bus.Publish(ServerOutputEvent{...})
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	for _, fn := range b.observers {
		fn(ev)
	}
	b.mu.RUnlock()

	switch e := ev.(type) {
	case ServerStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case ServerOutputEvent:
		event.Publish(b.dispatcher, e)
	case HealthCheckedEvent:
		event.Publish(b.dispatcher, e)
	case ShutdownRequestedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler type determines which events it receives.
// Returns an unsubscribe function; unknown handler types get a no-op.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ServerStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ServerOutputEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(HealthCheckedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ShutdownRequestedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// SubscribeToChannel bridges callback subscriptions to a channel.
// Events are dropped when the channel is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- T) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}

// OutputPublisher publishes backend output lines on the bus.
// It satisfies process.OutputHandler.
type OutputPublisher struct {
	Bus *Bus
}

// HandleLine publishes a ServerOutputEvent.
func (p OutputPublisher) HandleLine(source, line string) {
	p.Bus.Publish(ServerOutputEvent{
		Source:    source,
		Line:      line,
		Timestamp: Now(),
	})
}

// Now formats the current time the way events carry it.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
