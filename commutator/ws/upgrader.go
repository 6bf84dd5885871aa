// Package ws holds what the websocket channel implementations share. The
// gorilla and gobwas subpackages provide the implementations.
package ws

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/vipnode/commutator/commutator"
)

// Conn is a websocket connection usable as a commutator.Channel. Serve must
// be running for inbound messages to reach the listeners.
type Conn interface {
	commutator.Channel
	Serve() error
	Close() error
}

// Upgrader takes an HTTP request, upgrades it to a websocket server and
// returns a Conn. This allows switching between different websocket
// implementations.
type Upgrader interface {
	Upgrade(*http.Request, http.ResponseWriter, http.Header) (Conn, error)
}

// URLOrigin returns the web origin of a websocket URL, with ws mapped to
// http and wss to https: "wss://example.com/rpc" has the origin
// "https://example.com".
func URLOrigin(rawurl string) (string, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return "", err
	}
	scheme := u.Scheme
	switch scheme {
	case "ws":
		scheme = "http"
	case "wss":
		scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported websocket url scheme: %q", u.Scheme)
	}
	return scheme + "://" + u.Host, nil
}

// RequestOrigin returns the Origin header of an upgrade request, falling
// back to the remote address when the client sent none.
func RequestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	return r.RemoteAddr
}

// CheckOrigin reports whether an upgrade request may proceed when only
// allowOrigin is accepted. An empty allowOrigin or AnyOrigin accepts all, and
// requests without an Origin header (non-browser clients) are accepted.
func CheckOrigin(r *http.Request, allowOrigin string) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || commutator.OriginAllowed(allowOrigin, origin)
}
