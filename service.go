package main

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/vipnode/commutator/commutator"
	"github.com/vipnode/commutator/store"
	"golang.org/x/time/rate"
)

// demo is the service exposed by the serve command on every connection.
type demo struct {
	store     store.Store
	rateLimit float64
}

// Expose registers the demo functions on c. Each connection gets its own
// rate limiter shared by all of its functions.
func (d *demo) Expose(c *commutator.Commutator) error {
	middlewares := []commutator.Middleware{
		commutator.Logging(logger.Debugf),
	}
	if d.rateLimit > 0 {
		burst := int(d.rateLimit)
		if burst < 1 {
			burst = 1
		}
		middlewares = append(middlewares, commutator.RateLimit(rate.NewLimiter(rate.Limit(d.rateLimit), burst)))
	}

	if _, err := c.ExposeReceiver("", &DemoService{}, middlewares...); err != nil {
		return err
	}
	if _, err := c.ExposeReceiver("kv.", &KVService{Store: d.store}, middlewares...); err != nil {
		return err
	}
	return nil
}

// DemoService holds the stateless demo functions.
type DemoService struct{}

// Echo returns its params unchanged.
func (s *DemoService) Echo(params json.RawMessage) json.RawMessage {
	return params
}

type AddParams struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

func (s *DemoService) Add(p AddParams) float64 {
	return p.A + p.B
}

type CallbackParams struct {
	FuncName string          `json:"funcName"`
	Params   json.RawMessage `json:"params"`
}

// Callback calls FuncName on the caller's side of the connection and
// returns the result.
func (s *DemoService) Callback(ctx context.Context, p CallbackParams) (json.RawMessage, error) {
	if p.FuncName == "" {
		return nil, commutator.InvalidParamsError{Reason: "missing funcName"}
	}
	remote, err := commutator.CtxCommutator(ctx)
	if err != nil {
		return nil, err
	}
	var result json.RawMessage
	if err := remote.Call(ctx, &result, p.FuncName, p.Params); err != nil {
		return nil, err
	}
	return result, nil
}

// KVService exposes a store.Store.
type KVService struct {
	Store store.Store
}

type KeyParams struct {
	Key string `json:"key"`
}

type SetParams struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type KeysParams struct {
	Prefix string `json:"prefix"`
}

// storeError gives store failures names that make sense to the caller.
func storeError(err error, key string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return commutator.NewError("NotFoundError", err.Error()).With("key", key)
	case errors.Is(err, store.ErrMalformedKey):
		return commutator.InvalidParamsError{Reason: err.Error()}
	}
	return err
}

func (kv *KVService) Get(p KeyParams) (json.RawMessage, error) {
	value, err := kv.Store.Get(p.Key)
	if err != nil {
		return nil, storeError(err, p.Key)
	}
	return json.RawMessage(value), nil
}

func (kv *KVService) Set(p SetParams) error {
	if len(p.Value) == 0 {
		return commutator.InvalidParamsError{Reason: "missing value"}
	}
	return storeError(kv.Store.Set(p.Key, p.Value), p.Key)
}

func (kv *KVService) Delete(p KeyParams) error {
	return storeError(kv.Store.Delete(p.Key), p.Key)
}

func (kv *KVService) Keys(p KeysParams) ([]string, error) {
	keys, err := kv.Store.Keys(p.Prefix)
	if err != nil {
		return nil, err
	}
	return keys, nil
}
