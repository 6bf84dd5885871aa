package commutator

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestEncode(t *testing.T) {
	failure := NewError("RangeError", "bad")

	testcases := []struct {
		msg  *Message
		want string
	}{
		{
			msg:  &Message{Type: TypeRequest, ID: "abc", FuncName: "add", Params: json.RawMessage(`{"a":2,"b":3}`)},
			want: `app::{"type":"req","funcName":"add","params":{"a":2,"b":3},"id":"abc"}`,
		},
		{
			msg:  &Message{Type: TypeRequest, ID: "abc", FuncName: "ping"},
			want: `app::{"type":"req","funcName":"ping","params":null,"id":"abc"}`,
		},
		{
			msg:  &Message{Type: TypeResponse, ID: "abc", Result: json.RawMessage(`5`)},
			want: `app::{"type":"res","id":"abc","result":5,"error":null}`,
		},
		{
			msg:  &Message{Type: TypeResponse, ID: "abc", Result: json.RawMessage(`5`), Error: failure.Fields},
			want: `app::{"type":"res","id":"abc","result":null,"error":{"message":"bad","name":"RangeError"}}`,
		},
	}

	for i, tc := range testcases {
		got, err := Encode("app", tc.msg)
		if err != nil {
			t.Errorf("[case %d] unexpected error: %s", i, err)
			continue
		}
		if got != tc.want {
			t.Errorf("[case %d]\n  got: %s;\n want: %s", i, got, tc.want)
		}
	}

	if _, err := Encode("app", &Message{Type: "evt"}); err == nil {
		t.Error("expected an error for an unknown message type")
	}
}

func TestEncodeDecode(t *testing.T) {
	messages := []*Message{
		{Type: TypeRequest, ID: "a1", FuncName: "add", Params: json.RawMessage(`{"a":2,"b":3}`)},
		{Type: TypeRequest, ID: "a2", FuncName: "ping"},
		{Type: TypeRequest, ID: "a3", FuncName: "list", Params: json.RawMessage(`[1,"two",{"three":3}]`)},
		{Type: TypeResponse, ID: "b1", Result: json.RawMessage(`"done"`)},
		{Type: TypeResponse, ID: "b2"},
		{Type: TypeResponse, ID: "b3", Error: NewError("TypeError", "nope").With("code", 7).Fields},
	}

	for _, msg := range messages {
		raw, err := Encode("svc", msg)
		if err != nil {
			t.Fatal(err)
		}
		got, err := Decode("svc", raw)
		if err != nil {
			t.Fatalf("failed to decode %s: %s", raw, err)
		}
		if !reflect.DeepEqual(got, msg) {
			t.Errorf("round trip mismatch:\n  got: %#v;\n want: %#v", got, msg)
		}
	}
}

func TestDecodeForeign(t *testing.T) {
	for _, raw := range []string{
		`other-service::{"type":"req","funcName":"add","params":{"a":2,"b":3},"id":"abc"}`,
		`application::{"type":"res","id":"abc","result":1,"error":null}`,
		`app:{"type":"res","id":"abc","result":1,"error":null}`,
		`app:`,
		``,
		`{"type":"req"}`,
	} {
		msg, err := Decode("app", raw)
		if msg != nil || err != nil {
			t.Errorf("%q: got: %v, %v; want nil, nil", raw, msg, err)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, raw := range []string{
		`app::`,
		`app::{not json`,
		`app::{"type":"req","funcName":42}`,
	} {
		msg, err := Decode("app", raw)
		if msg != nil {
			t.Errorf("%q: got message %s; want nil", raw, msg)
		}
		decodeErr, ok := err.(*DecodeError)
		if !ok {
			t.Errorf("%q: got: %T %v; want *DecodeError", raw, err, err)
			continue
		}
		if decodeErr.ServiceID != "app" || decodeErr.Raw != raw || decodeErr.Unwrap() == nil {
			t.Errorf("%q: incomplete error: %+v", raw, decodeErr)
		}
	}
}

func TestDecodeUnknownType(t *testing.T) {
	msg, err := Decode("app", `app::{"type":"evt","id":"abc"}`)
	if err != nil {
		t.Fatal(err)
	}
	if msg.IsRequest() || msg.IsResponse() {
		t.Errorf("got: %s; want neither request nor response", msg)
	}
	if msg.Type != "evt" {
		t.Errorf("got: %q; want %q", msg.Type, "evt")
	}
}

func TestNewResponse(t *testing.T) {
	msg := newResponse("abc", func() {}, nil)
	if msg.Error == nil {
		t.Fatal("expected an error for an unencodable result")
	}
	if got := msg.Error.String("message"); got == "" {
		t.Error("missing error message")
	}

	msg = newResponse("abc", json.RawMessage(`null`), nil)
	if msg.Result != nil || msg.Error != nil {
		t.Errorf("got: %s; want null result", msg)
	}
}

func TestMakeID(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 1000; i++ {
		id := MakeID(DefaultIDLength)
		if len(id) != DefaultIDLength {
			t.Fatalf("got: %q; want %d characters", id, DefaultIDLength)
		}
		for _, c := range id {
			if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
				t.Fatalf("got: %q; want alphanumeric", id)
			}
		}
		seen[id] = struct{}{}
	}
	if len(seen) != 1000 {
		t.Errorf("got: %d unique ids; want 1000", len(seen))
	}

	if got := MakeID(3); len(got) != 3 {
		t.Errorf("got: %q; want 3 characters", got)
	}
	if got := MakeID(0); len(got) != DefaultIDLength {
		t.Errorf("got: %q; want %d characters", got, DefaultIDLength)
	}
}
