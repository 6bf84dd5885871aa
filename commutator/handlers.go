package commutator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vipnode/commutator/pubsub"
)

// Handler serves calls to an exposed function.
type Handler interface {
	ServeCall(ctx context.Context, params json.RawMessage) (interface{}, error)
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (interface{}, error)

func (f HandlerFunc) ServeCall(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return f(ctx, params)
}

// Handle identifies one binding created by Expose. Pass it to Unexpose to
// remove exactly that binding.
type Handle struct {
	funcName string
	sub      *pubsub.Subscription
}

// FuncName returns the name the binding is exposed under.
func (h *Handle) FuncName() string {
	return h.funcName
}

// handlerRegistry keeps, per function name, the bindings in the order they
// were exposed.
type handlerRegistry struct {
	mu       sync.Mutex
	bindings map[string][]*Handle
}

func (r *handlerRegistry) add(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bindings == nil {
		r.bindings = map[string][]*Handle{}
	}
	r.bindings[h.funcName] = append(r.bindings[h.funcName], h)
}

// remove drops h and reports whether it was registered.
func (r *handlerRegistry) remove(h *Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	handles := r.bindings[h.funcName]
	for i, other := range handles {
		if other != h {
			continue
		}
		if len(handles) == 1 {
			delete(r.bindings, h.funcName)
			return true
		}
		rest := make([]*Handle, 0, len(handles)-1)
		rest = append(rest, handles[:i]...)
		r.bindings[h.funcName] = append(rest, handles[i+1:]...)
		return true
	}
	return false
}

func (r *handlerRegistry) count(funcName string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bindings[funcName])
}

func (r *handlerRegistry) clear() {
	r.mu.Lock()
	r.bindings = nil
	r.mu.Unlock()
}

// callHandler runs the handler, turning a panic into a PanicError.
func callHandler(ctx context.Context, handler Handler, params json.RawMessage) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, PanicError{Value: fmt.Sprint(r)}
		}
	}()
	return handler.ServeCall(ctx, params)
}

// respond runs the handler for a request and builds its response. A panic
// while encoding the outcome is answered with a PanicError too.
func respond(ctx context.Context, handler Handler, req *Message) (resp *Message) {
	defer func() {
		if r := recover(); r != nil {
			logger.Printf("respond(): encoding response to %s (%s) panicked: %v", req.FuncName, req.ID, r)
			resp = newResponse(req.ID, nil, PanicError{Value: fmt.Sprint(r)})
		}
	}()
	result, err := callHandler(ctx, handler, req.Params)
	return newResponse(req.ID, result, err)
}
