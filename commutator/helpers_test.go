package commutator

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

const testTimeout = 5 * time.Second

// pipePair returns two endpoints connected over a served in-memory Pipe.
func pipePair(t *testing.T, serviceID string) (*Commutator, *Commutator) {
	t.Helper()

	endA, endB := Pipe("https://a.test", "https://b.test")
	go endA.Serve()
	go endB.Serve()

	a, err := New(Options{ServiceID: serviceID, Target: endA})
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(Options{ServiceID: serviceID, Target: endB})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		a.Destroy()
		b.Destroy()
		endA.Close()
	})
	return a, b
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}

// expectNoSignal fails if ch fires within a short grace period.
func expectNoSignal(t *testing.T, ch <-chan struct{}, format string, args ...interface{}) {
	t.Helper()
	select {
	case <-ch:
		t.Errorf(format, args...)
	case <-time.After(50 * time.Millisecond):
	}
}

// expectSignal fails if ch does not fire in time.
func expectSignal(t *testing.T, ch <-chan struct{}, format string, args ...interface{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(testTimeout):
		t.Errorf(format, args...)
	}
}

// assertEqualJSON compares the JSON encodings of got and want.
func assertEqualJSON(t *testing.T, got interface{}, want interface{}, format string, args ...interface{}) {
	t.Helper()
	gotJSON, err := json.Marshal(got)
	if err != nil {
		t.Fatal(err)
	}
	wantJSON, err := json.Marshal(want)
	if err != nil {
		t.Fatal(err)
	}
	if string(gotJSON) != string(wantJSON) {
		t.Errorf(format, args...)
		t.Errorf("got: %s; want %s", gotJSON, wantJSON)
	}
}

type AddParams struct {
	A int `json:"a"`
	B int `json:"b"`
}

type Adder struct{}

func (a *Adder) Add(p AddParams) int {
	return p.A + p.B
}

// RangeError is a typed error with a custom exported field.
type RangeError struct {
	Limit int `json:"limit"`
	msg   string
}

func (err *RangeError) Error() string {
	return err.msg
}

type Fib struct{}

type FibParams struct {
	A     int `json:"a"`
	B     int `json:"b"`
	Steps int `json:"steps"`
}

func (f *Fib) Fibonacci(ctx context.Context, p FibParams) (int, error) {
	remote, err := CtxCommutator(ctx)
	if err != nil {
		return 0, err
	}
	a, b := p.B, p.A+p.B
	if p.Steps <= 0 {
		return b, nil
	}
	if err := remote.Call(ctx, &b, "fibonacci", FibParams{a, b, p.Steps - 1}); err != nil {
		return 0, err
	}
	return b, nil
}
