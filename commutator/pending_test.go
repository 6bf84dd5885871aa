package commutator

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/vipnode/commutator/pubsub"
)

func TestPendingSettlesOnce(t *testing.T) {
	var bus pubsub.Bus
	p := registerPending(&bus, "abc")
	if got := bus.Count(responseTopic("abc")); got != 1 {
		t.Fatalf("got: %d subscriptions; want 1", got)
	}

	bus.Publish(responseTopic("abc"), &Message{Type: TypeResponse, ID: "abc", Result: json.RawMessage(`1`)})
	// Duplicate and late responses have nothing to settle.
	if n := bus.Publish(responseTopic("abc"), &Message{Type: TypeResponse, ID: "abc", Result: json.RawMessage(`2`)}); n != 0 {
		t.Errorf("got: %d listeners for a settled call; want 0", n)
	}

	select {
	case <-p.Done():
	default:
		t.Fatal("call did not settle")
	}
	result, err := p.Result()
	if err != nil {
		t.Fatal(err)
	}
	if string(result) != "1" {
		t.Errorf("got: %s; want 1", result)
	}
	if p.Release() {
		t.Error("release of a settled call should be a no-op")
	}
}

func TestPendingConcurrentDuplicates(t *testing.T) {
	var bus pubsub.Bus
	p := registerPending(&bus, "abc")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			raw, _ := json.Marshal(i)
			bus.Publish(responseTopic("abc"), &Message{Type: TypeResponse, ID: "abc", Result: raw})
		}(i)
	}
	wg.Wait()

	var got int
	if err := p.Decode(context.Background(), &got); err != nil {
		t.Fatal(err)
	}
	if got < 0 || got >= 10 {
		t.Errorf("got: %d; want one of the published results", got)
	}
	if n := bus.Len(); n != 0 {
		t.Errorf("got: %d subscriptions; want 0", n)
	}
}

func TestPendingError(t *testing.T) {
	var bus pubsub.Bus
	p := registerPending(&bus, "abc")
	bus.Publish(responseTopic("abc"), &Message{Type: TypeResponse, ID: "abc", Error: NewError("RangeError", "bad").Fields})

	var got int
	err := p.Decode(context.Background(), &got)
	remote, ok := err.(*RemoteError)
	if !ok {
		t.Fatalf("got: %T %v; want *RemoteError", err, err)
	}
	if remote.Name != "RangeError" || remote.Message != "bad" {
		t.Errorf("got: %s", remote)
	}
}

func TestPendingRelease(t *testing.T) {
	var bus pubsub.Bus
	p := registerPending(&bus, "abc")
	other := registerPending(&bus, "def")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Wait(ctx); err != context.Canceled {
		t.Errorf("got: %v; want %v", err, context.Canceled)
	}
	// A done context does not release on its own.
	if got := bus.CountPrefix(responseTopicPrefix); got != 2 {
		t.Errorf("got: %d pending; want 2", got)
	}

	if !p.Release() {
		t.Error("release of a live call should succeed")
	}
	if p.Release() {
		t.Error("second release should be a no-op")
	}
	bus.Publish(responseTopic("abc"), &Message{Type: TypeResponse, ID: "abc"})
	select {
	case <-p.Done():
		t.Error("released call settled")
	default:
	}

	// Other calls are unaffected.
	if got := bus.CountPrefix(responseTopicPrefix); got != 1 {
		t.Errorf("got: %d pending; want 1", got)
	}
	bus.Publish(responseTopic("def"), &Message{Type: TypeResponse, ID: "def"})
	select {
	case <-other.Done():
	default:
		t.Error("unrelated call did not settle")
	}
}
