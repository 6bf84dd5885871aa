package commutator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestChain(t *testing.T) {
	var trace []string
	mark := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, params json.RawMessage) (interface{}, error) {
				trace = append(trace, name)
				return next(ctx, params)
			}
		}
	}
	handler := HandlerFunc(func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		trace = append(trace, "handler")
		return "ok", nil
	})

	got, err := Wrap(handler, mark("outer"), mark("inner"))(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "ok" {
		t.Errorf("got: %v; want ok", got)
	}
	if got, want := strings.Join(trace, ","), "outer,inner,handler"; got != want {
		t.Errorf("got: %s; want %s", got, want)
	}
}

func TestRateLimit(t *testing.T) {
	a, b := pipePair(t, "app")

	limited := Wrap(MustFunc(func() string { return "ok" }), RateLimit(rate.NewLimiter(0, 1)))
	b.Expose("limited", limited)

	ctx := testContext(t)
	if err := a.Call(ctx, nil, "limited", nil); err != nil {
		t.Fatal(err)
	}
	err := a.Call(ctx, nil, "limited", nil)
	remote, ok := err.(*RemoteError)
	if !ok {
		t.Fatalf("got: %T %v; want *RemoteError", err, err)
	}
	var funcName string
	remote.Field("funcName", &funcName)
	if remote.Name != "RateLimitError" || funcName != "limited" {
		t.Errorf("got: %s (funcName %q)", remote, funcName)
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	slow := HandlerFunc(func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		<-release
		return "late", nil
	})
	fast := MustFunc(func() string { return "quick" })

	ctx := context.WithValue(context.Background(), ctxFuncName, "slow")
	_, err := Wrap(slow, Timeout(10*time.Millisecond))(ctx, nil)
	timeoutErr, ok := err.(TimeoutError)
	if !ok {
		t.Fatalf("got: %T %v; want TimeoutError", err, err)
	}
	if timeoutErr.FuncName != "slow" || timeoutErr.Timeout != "10ms" {
		t.Errorf("got: %+v", timeoutErr)
	}

	got, err := Wrap(fast, Timeout(time.Second))(ctx, nil)
	if err != nil || got != "quick" {
		t.Errorf("got: %v, %v; want quick", got, err)
	}
}

func TestLogging(t *testing.T) {
	var lines []string
	logf := func(format string, args ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}
	ok := MustFunc(func() int { return 1 })
	fail := MustFunc(func() error { return NewError("RangeError", "bad") })

	ctx := context.WithValue(context.Background(), ctxFuncName, "add")
	Wrap(ok, Logging(logf))(ctx, nil)
	Wrap(fail, Logging(logf))(ctx, nil)

	if len(lines) != 2 {
		t.Fatalf("got: %d lines; want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "call add served in") {
		t.Errorf("got: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "call add failed after") || !strings.HasSuffix(lines[1], "RangeError: bad") {
		t.Errorf("got: %q", lines[1])
	}
}
