package commutator

import (
	"context"
	"fmt"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/vipnode/commutator/pubsub"
)

// Options configures one endpoint.
type Options struct {
	// ServiceID namespaces this protocol's traffic on the channel. Both
	// endpoints must use the same value. Required.
	ServiceID string
	// Target is the channel messages are sent on and received from.
	// Required.
	Target Channel
	// Origin scopes outgoing messages to a remote origin. Defaults to
	// AnyOrigin.
	Origin string
}

type contextKey string

const (
	ctxCommutator contextKey = "commutator"
	ctxFuncName   contextKey = "funcName"
)

// CtxCommutator returns the Commutator that delivered the request being
// served, from the context passed to a Handler. Use it to call back into the
// remote endpoint.
func CtxCommutator(ctx context.Context) (*Commutator, error) {
	c, ok := ctx.Value(ctxCommutator).(*Commutator)
	if !ok {
		return nil, ErrContextMissingValue{ctxCommutator}
	}
	return c, nil
}

// CtxFuncName returns the function name of the request being served.
func CtxFuncName(ctx context.Context) string {
	name, _ := ctx.Value(ctxFuncName).(string)
	return name
}

// Commutator is one endpoint of the RPC channel. It can call functions
// exposed by the remote endpoint and expose its own, at the same time.
type Commutator struct {
	options Options

	bus      pubsub.Bus
	handlers handlerRegistry

	removeListener func()

	// ctx is passed to handlers and canceled by Destroy.
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// New creates an endpoint and starts listening on opts.Target.
func New(opts Options) (*Commutator, error) {
	if opts.ServiceID == "" {
		return nil, ErrMissingServiceID
	}
	if opts.Target == nil {
		return nil, ErrMissingTarget
	}
	if opts.Origin == "" {
		opts.Origin = AnyOrigin
	}

	c := &Commutator{
		options: opts,
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.removeListener = opts.Target.Listen(c.dispatch)
	return c, nil
}

// ServiceID returns the namespace of this endpoint.
func (c *Commutator) ServiceID() string {
	return c.options.ServiceID
}

func (c *Commutator) destroyed() bool {
	return c.ctx.Err() != nil
}

func (c *Commutator) send(msg *Message) error {
	encoded, err := Encode(c.options.ServiceID, msg)
	if err != nil {
		return err
	}
	return c.options.Target.Send(encoded, c.options.Origin)
}

// Go sends a call to funcName and returns it without waiting. The call is
// registered before the request is sent, so an immediate response cannot
// be missed.
func (c *Commutator) Go(funcName string, params interface{}) (*Pending, error) {
	if c.destroyed() {
		return nil, ErrDestroyed
	}
	msg, err := newRequest(MakeID(DefaultIDLength), funcName, params)
	if err != nil {
		return nil, err
	}
	encoded, err := Encode(c.options.ServiceID, msg)
	if err != nil {
		return nil, err
	}

	pending := registerPending(&c.bus, msg.ID)
	if err := c.options.Target.Send(encoded, c.options.Origin); err != nil {
		pending.Release()
		return nil, err
	}
	return pending, nil
}

// Call sends a call to funcName and waits for its response, decoding the
// result into result (which may be nil). A remote failure is returned as a
// *RemoteError. If ctx is done first, the call is released and ctx.Err() is
// returned; with a ctx that is never done, Call waits for as long as it
// takes.
func (c *Commutator) Call(ctx context.Context, result interface{}, funcName string, params interface{}) error {
	pending, err := c.Go(funcName, params)
	if err != nil {
		return err
	}
	err = pending.Decode(ctx, result)
	if err != nil && ctx.Err() != nil && err == ctx.Err() {
		pending.Release()
	}
	return err
}

// Pending returns the number of calls waiting for a response.
func (c *Commutator) Pending() int {
	return c.bus.CountPrefix(responseTopicPrefix)
}

// Expose registers handler under funcName. Several handlers may share a
// name; every one of them serves each request. The returned Handle removes
// this binding via Unexpose. After Destroy nothing is registered and the
// returned Handle is nil.
func (c *Commutator) Expose(funcName string, handler Handler) *Handle {
	if c.destroyed() {
		return nil
	}
	h := &Handle{funcName: funcName}
	h.sub = c.bus.Subscribe(requestTopic(funcName), func(payload interface{}) {
		msg, ok := payload.(*Message)
		if !ok {
			return
		}
		go c.serveRequest(handler, msg)
	})
	c.handlers.add(h)
	if c.destroyed() {
		// Lost a race with Destroy.
		c.Unexpose(h)
		return nil
	}
	return h
}

// ExposeFunc adapts fn with Func and exposes it under funcName.
func (c *Commutator) ExposeFunc(funcName string, fn interface{}) (*Handle, error) {
	handler, err := Func(fn)
	if err != nil {
		return nil, fmt.Errorf("%s: %s", funcName, err)
	}
	h := c.Expose(funcName, handler)
	if h == nil {
		return nil, ErrDestroyed
	}
	return h, nil
}

// ExposeReceiver exposes every valid exported method of receiver, named
// with the given prefix and a lowercased first letter: Add becomes
// prefix+"add". Each method is wrapped with the middlewares.
func (c *Commutator) ExposeReceiver(prefix string, receiver interface{}, middlewares ...Middleware) ([]*Handle, error) {
	methods, err := Methods(receiver)
	if err != nil {
		return nil, err
	}
	handles := make([]*Handle, 0, len(methods))
	for name, m := range methods {
		h := c.Expose(prefix+lowerFirst(name), Wrap(m, middlewares...))
		if h == nil {
			return nil, ErrDestroyed
		}
		handles = append(handles, h)
	}
	return handles, nil
}

func lowerFirst(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToLower(r)) + name[size:]
}

// Unexpose removes the binding identified by h. It returns false if the
// binding was already removed.
func (c *Commutator) Unexpose(h *Handle) bool {
	if h == nil || !c.handlers.remove(h) {
		return false
	}
	c.bus.Unsubscribe(h.sub)
	return true
}

// Handlers returns the number of bindings exposed under funcName.
func (c *Commutator) Handlers(funcName string) int {
	return c.handlers.count(funcName)
}

// serveRequest runs one handler for one request and sends its response.
func (c *Commutator) serveRequest(handler Handler, msg *Message) {
	ctx := context.WithValue(c.ctx, ctxCommutator, c)
	ctx = context.WithValue(ctx, ctxFuncName, msg.FuncName)

	resp := respond(ctx, handler, msg)
	if c.destroyed() {
		logger.Printf("Commutator.serveRequest(): destroyed, dropping response to %s (%s)", msg.FuncName, msg.ID)
		return
	}
	if err := c.send(resp); err != nil {
		logger.Printf("Commutator.serveRequest(): failed to send response to %s (%s): %s", msg.FuncName, msg.ID, err)
	}
}

// Destroy stops listening on the channel and drops every subscription.
// Pending calls never settle, handlers still running are canceled through
// their context and their responses are not sent. Destroy is idempotent.
func (c *Commutator) Destroy() {
	c.once.Do(func() {
		c.removeListener()
		c.cancel()
		c.bus.Clear()
		c.handlers.clear()
	})
}
