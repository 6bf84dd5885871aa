package commutator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Middleware wraps a handler with extra behavior.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares so the first one is the outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// Wrap applies the middlewares to handler.
func Wrap(handler Handler, middlewares ...Middleware) HandlerFunc {
	return Chain(middlewares...)(handler.ServeCall)
}

// Logging logs the function name, duration and failure of every call.
func Logging(logf func(format string, args ...interface{})) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, params json.RawMessage) (interface{}, error) {
			start := time.Now()
			result, err := next(ctx, params)
			duration := time.Since(start)
			if err != nil {
				logf("call %s failed after %s: %s", CtxFuncName(ctx), duration, err)
			} else {
				logf("call %s served in %s", CtxFuncName(ctx), duration)
			}
			return result, err
		}
	}
}

// RateLimitError is returned to the caller when a rate limited handler is
// called too often.
type RateLimitError struct {
	FuncName string `json:"funcName"`
}

func (err RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %s", err.FuncName)
}

// RateLimit rejects calls once limiter runs out of tokens. Share one limiter
// between handlers to limit them together.
func RateLimit(limiter *rate.Limiter) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, params json.RawMessage) (interface{}, error) {
			if !limiter.Allow() {
				return nil, RateLimitError{FuncName: CtxFuncName(ctx)}
			}
			return next(ctx, params)
		}
	}
}

// TimeoutError is returned to the caller when a handler with a Timeout
// runs too long.
type TimeoutError struct {
	FuncName string `json:"funcName"`
	Timeout  string `json:"timeout"`
}

func (err TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", err.FuncName, err.Timeout)
}

// Timeout fails calls that take longer than timeout. The handler's context
// is canceled when the timeout expires; its eventual result is discarded.
func Timeout(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, params json.RawMessage) (interface{}, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			type outcome struct {
				result interface{}
				err    error
			}
			done := make(chan outcome, 1)
			go func() {
				result, err := callHandler(ctx, next, params)
				done <- outcome{result, err}
			}()

			select {
			case out := <-done:
				return out.result, out.err
			case <-ctx.Done():
				return nil, TimeoutError{
					FuncName: CtxFuncName(ctx),
					Timeout:  timeout.String(),
				}
			}
		}
	}
}
