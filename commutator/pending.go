package commutator

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/vipnode/commutator/pubsub"
)

const (
	requestTopicPrefix  = "req_"
	responseTopicPrefix = "res_"
)

func requestTopic(funcName string) string {
	return requestTopicPrefix + funcName
}

func responseTopic(id string) string {
	return responseTopicPrefix + id
}

// Pending is an outstanding call. It settles at most once, when the first
// response with its id arrives. There is no built-in timeout: without a
// response it stays pending until released.
type Pending struct {
	id  string
	bus *pubsub.Bus

	mu   sync.Mutex
	sub  *pubsub.Subscription
	done chan struct{}

	result json.RawMessage
	err    error
}

// registerPending subscribes a one-shot settler on the response topic of id.
func registerPending(bus *pubsub.Bus, id string) *Pending {
	p := &Pending{
		id:   id,
		bus:  bus,
		done: make(chan struct{}),
	}
	p.mu.Lock()
	p.sub = bus.Subscribe(responseTopic(id), p.settle)
	p.mu.Unlock()
	return p
}

func (p *Pending) settle(payload interface{}) {
	p.mu.Lock()
	sub := p.sub
	p.mu.Unlock()

	// Unsubscribing first makes settling exactly-once: a duplicate response
	// racing this one loses here and is dropped.
	if !p.bus.Unsubscribe(sub) {
		logger.Printf("Pending.settle(): dropping duplicate response for %s", p.id)
		return
	}

	msg, ok := payload.(*Message)
	if !ok {
		p.err = errUnexpectedPayload
		close(p.done)
		return
	}
	if msg.Error != nil {
		p.err = errorFromPayload(msg.Error)
	} else {
		p.result = msg.Result
	}
	close(p.done)
}

// ID returns the correlation id of the call.
func (p *Pending) ID() string {
	return p.id
}

// Done is closed once the call has settled.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Result returns the raw result or the *RemoteError of a settled call. It
// must only be called after Done is closed.
func (p *Pending) Result() (json.RawMessage, error) {
	return p.result, p.err
}

// Wait blocks until the call settles or ctx is done. A done ctx does not
// release the call; see Release.
func (p *Pending) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-p.done:
		return p.result, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Decode waits for the call and decodes its result into v. A nil v or a
// null result leaves v untouched.
func (p *Pending) Decode(ctx context.Context, v interface{}) error {
	raw, err := p.Wait(ctx)
	if err != nil {
		return err
	}
	if v == nil || isNull(raw) {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// Release abandons the call: a response arriving later is ignored and the
// call never settles. It returns false if the call already settled or was
// released.
func (p *Pending) Release() bool {
	p.mu.Lock()
	sub := p.sub
	p.mu.Unlock()
	return p.bus.Unsubscribe(sub)
}
