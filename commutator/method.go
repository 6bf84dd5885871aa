package commutator

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
)

var typeOfError = reflect.TypeOf((*error)(nil)).Elem()
var typeOfContext = reflect.TypeOf((*context.Context)(nil)).Elem()

// InvalidParamsError is returned to the caller when the params of a request
// do not decode into the handler's parameter type.
type InvalidParamsError struct {
	Reason string `json:"reason"`
}

func (err InvalidParamsError) Error() string {
	return fmt.Sprintf("invalid params: %s", err.Reason)
}

// funcParamType returns the params type (nil if the func takes none) and
// whether the func takes a leading context. Supported layouts:
// (), (ctx), (P), (ctx, P)
func funcParamType(fnType reflect.Type) (paramType reflect.Type, hasCtx bool, ok bool) {
	pos := 0
	if fnType.NumIn() > 0 && fnType.In(0) == typeOfContext {
		hasCtx = true
		pos++
	}
	switch fnType.NumIn() - pos {
	case 0:
		return nil, hasCtx, true
	case 1:
		paramType = fnType.In(pos)
		if !isExportedOrBuiltin(paramType) {
			return nil, hasCtx, false
		}
		return paramType, hasCtx, true
	}
	return nil, hasCtx, false
}

// funcErrPos returns the return value index position of an error type for
// supported return layouts: (), (interface{}), (error), (interface{}, error)
func funcErrPos(fnType reflect.Type) (int, bool) {
	switch fnType.NumOut() {
	case 0:
		return -1, true
	case 1:
		if fnType.Out(0) == typeOfError {
			// Single error return value
			return 0, true
		}
		// Single non-error return value
		return -1, true
	case 2:
		if fnType.Out(1) == typeOfError {
			// Two return values, one error type
			return 1, true
		}
		// Two return values, no error type, unsupported.
		return -1, false
	}
	return -1, false
}

// Method is a typed Go function adapted into a Handler.
type Method struct {
	Func      reflect.Value
	ParamType reflect.Type
	ErrPos    int
	HasCtx    bool
}

func newMethod(fn reflect.Value) (*Method, error) {
	fnType := fn.Type()
	paramType, hasCtx, ok := funcParamType(fnType)
	if !ok {
		return nil, fmt.Errorf("unsupported arguments: %s", fnType)
	}
	errPos, ok := funcErrPos(fnType)
	if !ok {
		return nil, fmt.Errorf("unsupported return values: %s", fnType)
	}
	return &Method{
		Func:      fn,
		ParamType: paramType,
		ErrPos:    errPos,
		HasCtx:    hasCtx,
	}, nil
}

// Func adapts fn into a HandlerFunc. fn takes an optional leading
// context.Context and at most one params value decoded from JSON, and
// returns any of (), (result), (error), (result, error).
func Func(fn interface{}) (HandlerFunc, error) {
	val := reflect.ValueOf(fn)
	if val.Kind() != reflect.Func {
		return nil, fmt.Errorf("handler must be a func, got %T", fn)
	}
	m, err := newMethod(val)
	if err != nil {
		return nil, err
	}
	return m.ServeCall, nil
}

// MustFunc is like Func but panics on unsupported signatures.
func MustFunc(fn interface{}) HandlerFunc {
	h, err := Func(fn)
	if err != nil {
		panic(err)
	}
	return h
}

// Methods returns a mapping of method names to Method definitions for the
// exported methods of a receiver. Methods whose signature Func does not
// support are skipped.
func Methods(receiver interface{}) (map[string]*Method, error) {
	kind := reflect.TypeOf(receiver)
	val := reflect.ValueOf(receiver)
	if name := reflect.Indirect(val).Type().Name(); !isExported(name) {
		return nil, fmt.Errorf("receiver must be exported: %s", name)
	}

	methods := map[string]*Method{}
	for i := 0; i < kind.NumMethod(); i++ {
		method := kind.Method(i)
		if method.PkgPath != "" {
			// Skip unexported methods
			continue
		}

		// Bound method value, the receiver is no longer an argument.
		m, err := newMethod(val.Method(i))
		if err != nil {
			logger.Printf("Methods(): skipping %s.%s: %s", kind, method.Name, err)
			continue
		}
		methods[method.Name] = m
	}

	return methods, nil
}

// ServeCall decodes params, calls the function and unpacks its results.
func (m *Method) ServeCall(ctx context.Context, params json.RawMessage) (interface{}, error) {
	args := make([]reflect.Value, 0, 2)
	if m.HasCtx {
		args = append(args, reflect.ValueOf(&ctx).Elem())
	}
	if m.ParamType != nil {
		arg := reflect.New(m.ParamType)
		if !isNull(params) {
			if err := json.Unmarshal(params, arg.Interface()); err != nil {
				return nil, InvalidParamsError{Reason: err.Error()}
			}
		}
		args = append(args, arg.Elem())
	}

	reply := m.Func.Call(args)

	// Are there any return values?
	if len(reply) == 0 {
		return nil, nil
	}
	// Is there an error return value?
	if m.ErrPos >= 0 && !reply[m.ErrPos].IsNil() {
		return nil, reply[m.ErrPos].Interface().(error)
	}
	if m.ErrPos == 0 {
		return nil, nil
	}

	// All is good, assume the first result is what we want to return
	// This supports (res), (res, err)
	return reply[0].Interface(), nil
}
