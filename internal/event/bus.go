package event

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/Iron-Ham/arena/internal/logging"
)

// AllTypes subscribes a handler to every event type.
const AllTypes = "*"

// Handler is a function that handles an event.
type Handler func(Event)

// subscription is a registered handler together with its filters. An empty
// channel matches every channel.
type subscription struct {
	id        string
	eventType string
	channel   string
	handler   Handler
}

func (s subscription) matches(e Event) bool {
	if s.eventType != AllTypes && s.eventType != e.EventType() {
		return false
	}
	return s.channel == "" || s.channel == e.Channel()
}

// Bus is a synchronous pub-sub event bus. The orchestrator publishes
// session notices on it and transports subscribe to the channels they
// serve.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID atomic.Uint64
	logger *logging.Logger
}

// NewBus creates an event bus. Handler panics are logged to logger; a nil
// logger discards them.
func NewBus(logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Bus{logger: logger.WithComponent("event-bus")}
}

// Subscribe registers a handler for one event type, or for every type when
// eventType is AllTypes. It returns an ID for Unsubscribe.
func (b *Bus) Subscribe(eventType string, handler Handler) string {
	return b.add(subscription{eventType: eventType, handler: handler})
}

// SubscribeAll registers a handler for all event types on all channels.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.add(subscription{eventType: AllTypes, handler: handler})
}

// SubscribeChannel registers a handler for every event published for one
// channel.
func (b *Bus) SubscribeChannel(channelID string, handler Handler) string {
	return b.add(subscription{eventType: AllTypes, channel: channelID, handler: handler})
}

func (b *Bus) add(sub subscription) string {
	sub.id = fmt.Sprintf("sub-%d", b.nextID.Add(1))

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, sub)
	return sub.id
}

// Unsubscribe removes a subscription by ID and reports whether it existed.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish delivers an event to every matching handler in registration
// order. Handlers run on the publisher's goroutine; a panicking handler is
// logged and skipped.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	matched := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.matches(e) {
			matched = append(matched, sub.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range matched {
		b.safeCall(h, e)
	}
}

func (b *Bus) safeCall(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", e.EventType(),
				"channel_id", e.Channel(),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	h(e)
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = nil
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
