// Package eventbus is an in-memory publish/subscribe bus used to tell every session
// gate in the process about authentication changes observed by any request gateway.
// Topics are dot-separated; a subscription pattern may use "*" for one component or
// be "*" alone to receive everything.
package eventbus

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// Session topics.
const (
	TopicUnauthenticated = "session.unauthenticated"
	TopicAuthenticated   = "session.authenticated"
	TopicSessionAll      = "session.*"
)

// Event is a single published message.
type Event struct {
	Topic string
	Data  any
}

type subscriber struct {
	id      string
	pattern string
	ch      chan Event

	mu     sync.Mutex
	closed bool
}

// trySend delivers without blocking; a full buffer drops the event.
func (s *subscriber) trySend(e Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- e:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// EventBus routes events to subscribers by topic pattern. Safe for concurrent use.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	counter     uint64
}

// New creates an empty bus.
func New() *EventBus {
	return &EventBus{
		subscribers: make(map[string]*subscriber),
	}
}

// Subscribe registers for events matching pattern. The returned function
// unsubscribes and closes the channel; it is safe to call more than once.
func (bus *EventBus) Subscribe(pattern string, bufferSize int) (<-chan Event, func()) {
	if bufferSize < 1 {
		bufferSize = 1
	}
	sub := &subscriber{
		id:      fmt.Sprintf("sub-%d", atomic.AddUint64(&bus.counter, 1)),
		pattern: pattern,
		ch:      make(chan Event, bufferSize),
	}

	bus.mu.Lock()
	bus.subscribers[sub.id] = sub
	bus.mu.Unlock()

	unsubscribe := func() {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		if s, ok := bus.subscribers[sub.id]; ok {
			s.close()
			delete(bus.subscribers, sub.id)
		}
	}
	return sub.ch, unsubscribe
}

// Publish sends an event to every matching subscriber and returns how many
// received it. Never blocks.
func (bus *EventBus) Publish(topic string, data any) int {
	event := Event{Topic: topic, Data: data}

	bus.mu.RLock()
	defer bus.mu.RUnlock()

	delivered := 0
	for _, sub := range bus.subscribers {
		if matchTopic(sub.pattern, topic) && sub.trySend(event) {
			delivered++
		}
	}
	return delivered
}

// Shutdown closes every subscriber.
func (bus *EventBus) Shutdown() {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for id, sub := range bus.subscribers {
		sub.close()
		delete(bus.subscribers, id)
	}
}

func matchTopic(pattern, topic string) bool {
	if pattern == "" || topic == "" {
		return false
	}
	if pattern == "*" || pattern == topic {
		return true
	}
	patternParts := strings.Split(pattern, ".")
	topicParts := strings.Split(topic, ".")
	if len(patternParts) != len(topicParts) {
		return false
	}
	for i := range patternParts {
		if patternParts[i] != "*" && patternParts[i] != topicParts[i] {
			return false
		}
	}
	return true
}
