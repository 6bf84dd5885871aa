package commutator

import "sync"

// AnyOrigin as a target origin delivers to the remote endpoint regardless
// of its origin.
const AnyOrigin = "*"

// Event is one inbound message delivered by a Channel.
type Event struct {
	// Data is the raw payload. It may belong to another consumer of the
	// channel.
	Data string
	// Origin identifies the sender, when the transport knows it.
	Origin string
}

// Listener handles inbound events. A returned error, such as a *DecodeError
// for a malformed payload, ends the channel's serve loop, so delivery stops
// for every listener sharing the channel.
type Listener func(Event) error

// Channel is a duplex string transport shared by any number of listeners.
type Channel interface {
	// Send posts msg to the remote endpoint. If targetOrigin is neither
	// empty nor AnyOrigin and does not match the remote's origin, the message
	// is silently dropped.
	Send(msg string, targetOrigin string) error
	// Listen registers fn for every inbound event and returns a func that
	// removes it again.
	Listen(fn Listener) (remove func())
}

// OriginAllowed reports whether a message posted for targetOrigin may be
// delivered to an endpoint whose origin is origin.
func OriginAllowed(targetOrigin string, origin string) bool {
	return targetOrigin == "" || targetOrigin == AnyOrigin || targetOrigin == origin
}

type listenerEntry struct {
	fn Listener
}

// ListenerSet is a goroutine-safe set of listeners, embedded by channel
// implementations to provide Listen. The zero value is ready to use.
type ListenerSet struct {
	mu      sync.Mutex
	entries []*listenerEntry
}

// Listen adds fn to the set.
func (s *ListenerSet) Listen(fn Listener) (remove func()) {
	entry := &listenerEntry{fn: fn}
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(entry) })
	}
}

func (s *ListenerSet) remove(entry *listenerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e != entry {
			continue
		}
		rest := make([]*listenerEntry, 0, len(s.entries)-1)
		rest = append(rest, s.entries[:i]...)
		s.entries = append(rest, s.entries[i+1:]...)
		return
	}
}

// Emit delivers ev to every listener, even if some fail, and returns the
// first error.
func (s *ListenerSet) Emit(ev Event) error {
	s.mu.Lock()
	entries := s.entries
	s.mu.Unlock()

	var first error
	for _, e := range entries {
		if err := e.fn(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Len returns the number of registered listeners.
func (s *ListenerSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
