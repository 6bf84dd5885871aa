// Package pubsub is a small in-process publish/subscribe bus keyed by topic
// name. It is goroutine-safe; listeners are invoked outside of the bus lock
// so they may subscribe or unsubscribe while being called.
package pubsub

import (
	"strings"
	"sync"
)

// Listener receives payloads published on a topic.
type Listener func(payload interface{})

// Subscription identifies one registered listener. It is the only handle
// that can remove that listener again, since Go funcs are not comparable.
type Subscription struct {
	topic    string
	listener Listener
}

// Topic returns the topic the subscription is registered on.
func (s *Subscription) Topic() string {
	return s.topic
}

// Bus is a topic-keyed listener table. The zero value is ready to use.
type Bus struct {
	mu     sync.Mutex
	topics map[string][]*Subscription
}

// Subscribe adds fn to the topic. Listeners on a topic are invoked in
// subscription order.
func (b *Bus) Subscribe(topic string, fn Listener) *Subscription {
	sub := &Subscription{topic: topic, listener: fn}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.topics == nil {
		b.topics = map[string][]*Subscription{}
	}
	b.topics[topic] = append(b.topics[topic], sub)
	return sub
}

// Unsubscribe removes exactly this subscription. It returns false if the
// subscription was already removed (or the bus was cleared), which callers
// use to detect that another goroutine got there first.
func (b *Bus) Unsubscribe(sub *Subscription) bool {
	if sub == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[sub.topic]
	for i, s := range subs {
		if s != sub {
			continue
		}
		if len(subs) == 1 {
			delete(b.topics, sub.topic)
			return true
		}
		rest := make([]*Subscription, 0, len(subs)-1)
		rest = append(rest, subs[:i]...)
		b.topics[sub.topic] = append(rest, subs[i+1:]...)
		return true
	}
	return false
}

// Publish invokes every listener currently subscribed to topic with
// payload, and returns how many were invoked.
func (b *Bus) Publish(topic string, payload interface{}) int {
	b.mu.Lock()
	subs := b.topics[topic]
	b.mu.Unlock()

	// subs is never mutated in place (Unsubscribe copies), so it's safe to
	// range over without the lock.
	for _, s := range subs {
		s.listener(payload)
	}
	return len(subs)
}

// Count returns the number of listeners subscribed to topic.
func (b *Bus) Count(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}

// CountPrefix returns the number of listeners across all topics starting
// with prefix.
func (b *Bus) CountPrefix(prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for topic, subs := range b.topics {
		if strings.HasPrefix(topic, prefix) {
			n += len(subs)
		}
	}
	return n
}

// Len returns the total number of subscriptions across all topics.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, subs := range b.topics {
		n += len(subs)
	}
	return n
}

// Clear removes every subscription on every topic.
func (b *Bus) Clear() {
	b.mu.Lock()
	b.topics = nil
	b.mu.Unlock()
}
