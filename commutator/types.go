package commutator

import (
	"encoding/json"
	"fmt"
)

// Message types carried in the "type" field of every envelope.
const (
	TypeRequest  = "req"
	TypeResponse = "res"
)

// Message is a decoded envelope payload, either a request or a response.
//
// Requests use FuncName and Params; responses use Result and Error, which
// are mutually exclusive. Params and Result stay as raw JSON so they are
// forwarded without a decode/encode cycle.
type Message struct {
	Type string
	ID   string

	FuncName string
	Params   json.RawMessage

	Result json.RawMessage
	Error  ErrorPayload
}

// IsRequest reports whether the message is a request.
func (m *Message) IsRequest() bool {
	return m.Type == TypeRequest
}

// IsResponse reports whether the message is a response.
func (m *Message) IsResponse() bool {
	return m.Type == TypeResponse
}

func (m *Message) String() string {
	out, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprintf("<invalid message: %s>", err)
	}
	return string(out)
}

type wireRequest struct {
	Type     string          `json:"type"`
	FuncName string          `json:"funcName"`
	Params   json.RawMessage `json:"params"`
	ID       string          `json:"id"`
}

type wireResponse struct {
	Type   string          `json:"type"`
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  ErrorPayload    `json:"error"`
}

// wireMessage is the union of both shapes, used for decoding.
type wireMessage struct {
	Type     string          `json:"type"`
	ID       string          `json:"id"`
	FuncName string          `json:"funcName"`
	Params   json.RawMessage `json:"params"`
	Result   json.RawMessage `json:"result"`
	Error    ErrorPayload    `json:"error"`
}

// MarshalJSON encodes the message in its wire shape. A missing Params or
// Result encodes as null, and so does a missing Error on a response.
func (m Message) MarshalJSON() ([]byte, error) {
	switch m.Type {
	case TypeRequest:
		return json.Marshal(wireRequest{
			Type:     m.Type,
			FuncName: m.FuncName,
			Params:   m.Params,
			ID:       m.ID,
		})
	case TypeResponse:
		result := m.Result
		if m.Error != nil {
			result = nil
		}
		return json.Marshal(wireResponse{
			Type:   m.Type,
			ID:     m.ID,
			Result: result,
			Error:  m.Error,
		})
	}
	return nil, fmt.Errorf("unsupported message type: %q", m.Type)
}

// UnmarshalJSON decodes either wire shape. Unknown types decode without
// error so the dispatcher can decide to drop them.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = Message{
		Type: w.Type,
		ID:   w.ID,
	}
	switch w.Type {
	case TypeRequest:
		m.FuncName = w.FuncName
		m.Params = nullToNil(w.Params)
	case TypeResponse:
		m.Result = nullToNil(w.Result)
		m.Error = w.Error
	}
	return nil
}

func newRequest(id string, funcName string, params interface{}) (*Message, error) {
	raw, err := marshalValue(params)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:     TypeRequest,
		ID:       id,
		FuncName: funcName,
		Params:   raw,
	}, nil
}

// newResponse builds the response for request id from a handler outcome.
func newResponse(id string, result interface{}, err error) *Message {
	msg := &Message{
		Type: TypeResponse,
		ID:   id,
	}
	if err != nil {
		msg.Error = NewErrorPayload(err)
		return msg
	}
	raw, err := marshalValue(result)
	if err != nil {
		msg.Error = NewErrorPayload(fmt.Errorf("failed to encode result: %s", err))
		return msg
	}
	msg.Result = raw
	return msg
}

// marshalValue encodes v, passing raw JSON through untouched.
func marshalValue(v interface{}) (json.RawMessage, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return nullToNil(v), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return nullToNil(raw), nil
}
