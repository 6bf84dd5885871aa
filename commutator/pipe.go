package commutator

import (
	"sync"

	"github.com/vipnode/commutator/internal/pretty"
)

// pipeBuffer is how many undelivered messages an endpoint queues before
// Send blocks.
const pipeBuffer = 64

// Pipe returns two connected in-memory channel endpoints with the given
// origins, similar to a pair of windows exchanging posted messages.
// Messages are queued and delivered by each endpoint's Serve loop, which
// must be running. Useful for testing and for in-process endpoints.
func Pipe(originA string, originB string) (*PipeEnd, *PipeEnd) {
	shared := &pipeState{done: make(chan struct{})}
	a := &PipeEnd{origin: originA, inbox: make(chan Event, pipeBuffer), state: shared}
	b := &PipeEnd{origin: originB, inbox: make(chan Event, pipeBuffer), state: shared}
	a.peer, b.peer = b, a
	return a, b
}

type pipeState struct {
	once sync.Once
	done chan struct{}
}

var _ Channel = &PipeEnd{}

// PipeEnd is one side of a Pipe.
type PipeEnd struct {
	ListenerSet

	origin string
	peer   *PipeEnd
	inbox  chan Event
	state  *pipeState
}

// Origin returns the origin this endpoint was created with.
func (p *PipeEnd) Origin() string {
	return p.origin
}

// Send queues msg for the peer endpoint.
func (p *PipeEnd) Send(msg string, targetOrigin string) error {
	if !OriginAllowed(targetOrigin, p.peer.origin) {
		logger.Printf("PipeEnd.Send(): target origin %q does not match %q, dropping: %s", targetOrigin, p.peer.origin, pretty.Abbrev(msg, 64))
		return nil
	}
	select {
	case <-p.state.done:
		return ErrChannelClosed
	default:
	}
	select {
	case p.peer.inbox <- Event{Data: msg, Origin: p.origin}:
		return nil
	case <-p.state.done:
		return ErrChannelClosed
	}
}

// Serve delivers queued messages to the listeners in order until the pipe
// is closed or a listener fails.
func (p *PipeEnd) Serve() error {
	for {
		select {
		case ev := <-p.inbox:
			if err := p.Emit(ev); err != nil {
				return err
			}
		case <-p.state.done:
			return ErrChannelClosed
		}
	}
}

// Close closes both ends of the pipe.
func (p *PipeEnd) Close() error {
	p.state.once.Do(func() {
		close(p.state.done)
	})
	return nil
}
