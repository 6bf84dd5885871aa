package gobwas

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/vipnode/commutator/commutator"
)

type AddParams struct {
	A int `json:"a"`
	B int `json:"b"`
}

func pipeChannels() (*Channel, *Channel) {
	c1, c2 := net.Pipe()
	client := newChannel(c1, c1, ws.StateClientSide, "http://server.test")
	server := newChannel(c2, c2, ws.StateServerSide, "http://client.test")
	return client, server
}

func TestChannelCall(t *testing.T) {
	client, server := pipeChannels()
	defer client.Close()
	defer server.Close()
	go client.Serve()
	go server.Serve()

	caller, err := commutator.New(commutator.Options{ServiceID: "app", Target: client})
	if err != nil {
		t.Fatal(err)
	}
	defer caller.Destroy()
	callee, err := commutator.New(commutator.Options{ServiceID: "app", Target: server})
	if err != nil {
		t.Fatal(err)
	}
	defer callee.Destroy()

	if _, err := callee.ExposeFunc("add", func(p AddParams) int { return p.A + p.B }); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got int
	if err := caller.Call(ctx, &got, "add", AddParams{A: 2, B: 3}); err != nil {
		t.Fatal(err)
	}
	if want := 5; got != want {
		t.Errorf("got: %d; want %d", got, want)
	}
}

func TestChannelTargetOrigin(t *testing.T) {
	client, server := pipeChannels()
	defer client.Close()
	defer server.Close()
	go client.Serve()
	go server.Serve()

	received := make(chan commutator.Event, 2)
	server.Listen(func(ev commutator.Event) error {
		received <- ev
		return nil
	})

	if err := client.Send("dropped", "http://elsewhere.test"); err != nil {
		t.Fatal(err)
	}
	if err := client.Send("delivered", "http://server.test"); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-received:
		if ev.Data != "delivered" {
			t.Errorf("got: %q; want %q", ev.Data, "delivered")
		}
		if ev.Origin != "http://client.test" {
			t.Errorf("got origin: %q; want %q", ev.Origin, "http://client.test")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}
