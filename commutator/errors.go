package commutator

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
)

var (
	// ErrMissingServiceID is returned by New when Options.ServiceID is empty.
	ErrMissingServiceID = errors.New("commutator: missing service id")
	// ErrMissingTarget is returned by New when Options.Target is nil.
	ErrMissingTarget = errors.New("commutator: missing target channel")
	// ErrDestroyed is returned when calling through a destroyed Commutator.
	ErrDestroyed = errors.New("commutator: destroyed")
	// ErrChannelClosed is returned when sending on a closed channel.
	ErrChannelClosed = errors.New("commutator: channel closed")

	errUnexpectedPayload = errors.New("commutator: unexpected payload on response topic")
)

// DecodeError is returned when a payload carries our service prefix but is
// not a valid message. It means one of the endpoints is broken.
type DecodeError struct {
	ServiceID string
	Raw       string
	cause     error
}

func (err *DecodeError) Error() string {
	return fmt.Sprintf("malformed %q message: %s", err.ServiceID, err.cause)
}

func (err *DecodeError) Cause() error {
	return err.cause
}

func (err *DecodeError) Unwrap() error {
	return err.cause
}

// ErrContextMissingValue is returned when a context is missing an expected value.
type ErrContextMissingValue struct {
	Key contextKey
}

func (err ErrContextMissingValue) Error() string {
	return fmt.Sprintf("context missing value: %s", string(err.Key))
}

// PanicError is reported to the caller when a handler panics.
type PanicError struct {
	Value string `json:"value"`
}

func (err PanicError) Error() string {
	return fmt.Sprintf("handler panic: %s", err.Value)
}

// ErrorPayload is the wire form of a handler failure: every field of the
// error keyed by name. It always carries "name" and "message".
type ErrorPayload map[string]json.RawMessage

// Set encodes value under key.
func (p ErrorPayload) Set(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	p[key] = raw
	return nil
}

// Get decodes the value under key into v. It returns false if the key is
// missing.
func (p ErrorPayload) Get(key string, v interface{}) (bool, error) {
	raw, ok := p[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

// String returns the value under key if it is a JSON string.
func (p ErrorPayload) String(key string) string {
	var s string
	if ok, err := p.Get(key, &s); !ok || err != nil {
		return ""
	}
	return s
}

// Keys returns the payload keys in sorted order.
func (p ErrorPayload) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ErrorNamer lets an error choose the name it is reported under. Errors
// without it are named after their exported Go type, or "Error".
type ErrorNamer interface {
	ErrorName() string
}

// ErrorFielder lets an error contribute extra payload fields beyond its
// exported struct fields.
type ErrorFielder interface {
	ErrorFields() map[string]interface{}
}

// NewErrorPayload captures err for the wire. Exported fields of the error
// value (as encoded by encoding/json) are kept, ErrorFields are merged in,
// then "name" and "message" are set. A *RemoteError keeps all of its
// fields, so errors relayed from another endpoint survive unchanged.
func NewErrorPayload(err error) ErrorPayload {
	payload := ErrorPayload{}
	if remote, ok := err.(*RemoteError); ok {
		for k, v := range remote.Fields {
			payload[k] = v
		}
		payload.Set("name", remote.Name)
		payload.Set("message", remote.Message)
		return payload
	}

	if raw, jsonErr := json.Marshal(err); jsonErr == nil && isObject(raw) {
		fields := map[string]json.RawMessage{}
		if json.Unmarshal(raw, &fields) == nil {
			for k, v := range fields {
				payload[k] = v
			}
		}
	}
	if fielder, ok := err.(ErrorFielder); ok {
		for k, v := range fielder.ErrorFields() {
			if setErr := payload.Set(k, v); setErr != nil {
				logger.Printf("dropping unencodable error field %q: %s", k, setErr)
			}
		}
	}

	payload.Set("name", errorName(err))
	payload.Set("message", err.Error())
	return payload
}

func errorName(err error) string {
	if namer, ok := err.(ErrorNamer); ok {
		if name := namer.ErrorName(); name != "" {
			return name
		}
	}
	if name := exportedTypeName(reflect.TypeOf(err)); name != "" {
		return name
	}
	return "Error"
}

// RemoteError is a handler failure reconstructed on the calling side.
type RemoteError struct {
	Name    string
	Message string

	// Fields holds every field of the payload, including name and message.
	Fields ErrorPayload
}

// NewError returns an error that crosses the boundary with the given name
// and message. Use With to attach more fields.
func NewError(name string, message string) *RemoteError {
	err := &RemoteError{
		Name:    name,
		Message: message,
		Fields:  ErrorPayload{},
	}
	err.Fields.Set("name", name)
	err.Fields.Set("message", message)
	return err
}

// With sets an extra field on the error and returns it.
func (err *RemoteError) With(key string, value interface{}) *RemoteError {
	if setErr := err.Fields.Set(key, value); setErr != nil {
		logger.Printf("dropping unencodable error field %q: %s", key, setErr)
	}
	return err
}

// Field decodes the field key into v, returning false if it is missing.
func (err *RemoteError) Field(key string, v interface{}) (bool, error) {
	return err.Fields.Get(key, v)
}

func (err *RemoteError) Error() string {
	if err.Name == "" {
		return err.Message
	}
	return fmt.Sprintf("%s: %s", err.Name, err.Message)
}

// ErrorName reports the remote name, so relayed errors keep it.
func (err *RemoteError) ErrorName() string {
	return err.Name
}

func errorFromPayload(p ErrorPayload) *RemoteError {
	err := &RemoteError{
		Name:    p.String("name"),
		Message: p.String("message"),
		Fields:  p,
	}
	if err.Name == "" {
		err.Name = "Error"
	}
	return err
}
