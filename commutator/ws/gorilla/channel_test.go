package gorilla

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vipnode/commutator/commutator"
)

type Fruits struct{}

func (f *Fruits) Apple() string {
	return "Apple"
}

func (f *Fruits) Durian() error {
	return commutator.NewError("SmellError", "durian failure").With("stink", 9)
}

func serveFruits(t *testing.T, upgrader *Upgrader) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(r, w, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		c, err := commutator.New(commutator.Options{ServiceID: "fruit", Target: conn})
		if err != nil {
			t.Error(err)
			return
		}
		defer c.Destroy()
		if _, err := c.ExposeReceiver("fruit_", &Fruits{}); err != nil {
			t.Error(err)
			return
		}
		conn.Serve()
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialCall(t *testing.T) {
	srv := serveFruits(t, &Upgrader{AllowOrigin: "https://app.test"})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, wsURL(srv), "https://app.test")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	go conn.Serve()

	if got, want := conn.PeerOrigin(), srv.URL; got != want {
		t.Errorf("got peer origin: %q; want %q", got, want)
	}

	c, err := commutator.New(commutator.Options{ServiceID: "fruit", Target: conn})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Destroy()

	var got string
	if err := c.Call(ctx, &got, "fruit_apple", nil); err != nil {
		t.Fatal(err)
	}
	if want := "Apple"; got != want {
		t.Errorf("got: %q; want %q", got, want)
	}

	err = c.Call(ctx, nil, "fruit_durian", nil)
	var remote *commutator.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected a remote error, got: %v", err)
	}
	var stink int
	if ok, err := remote.Field("stink", &stink); !ok || err != nil || stink != 9 {
		t.Errorf("missing custom field: %v %v %d", ok, err, stink)
	}
	if remote.Name != "SmellError" || remote.Message != "durian failure" {
		t.Errorf("wrong remote error: %s", remote)
	}
}

func TestUpgraderRejectsOrigin(t *testing.T) {
	srv := serveFruits(t, &Upgrader{AllowOrigin: "https://app.test"})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := Dial(ctx, wsURL(srv), "https://evil.test"); err == nil {
		t.Error("expected dial from a foreign origin to fail")
	}
}
