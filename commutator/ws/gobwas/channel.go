// Websocket channel implementation using gobwas/ws
package gobwas

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/vipnode/commutator/commutator"
	wsconn "github.com/vipnode/commutator/commutator/ws"
)

// Dial connects to a websocket server. origin is sent as the Origin header
// and may be empty.
func Dial(ctx context.Context, url string, origin string) (*Channel, error) {
	peerOrigin, err := wsconn.URLOrigin(url)
	if err != nil {
		return nil, err
	}
	dialer := ws.Dialer{}
	if origin != "" {
		dialer.Header = ws.HandshakeHeaderHTTP(http.Header{"Origin": []string{origin}})
	}
	conn, br, _, err := dialer.Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	var r io.Reader = conn
	if br != nil {
		// The server may have sent frames along with the handshake.
		r = br
	}
	return newChannel(conn, r, ws.StateClientSide, peerOrigin), nil
}

var _ wsconn.Conn = &Channel{}

// Channel is a commutator.Channel over a gobwas websocket connection. Each
// message is one text frame.
type Channel struct {
	commutator.ListenerSet

	muWrite    sync.Mutex
	conn       net.Conn
	rw         io.ReadWriter
	state      ws.State
	peerOrigin string
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (lw lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

func newChannel(conn net.Conn, r io.Reader, state ws.State, peerOrigin string) *Channel {
	c := &Channel{
		conn:       conn,
		state:      state,
		peerOrigin: peerOrigin,
	}
	// Control frame replies are written by the reader, so they share the
	// write lock with Send.
	c.rw = struct {
		io.Reader
		io.Writer
	}{r, lockedWriter{&c.muWrite, conn}}
	return c
}

// PeerOrigin returns the origin of the remote endpoint.
func (c *Channel) PeerOrigin() string {
	return c.peerOrigin
}

func (c *Channel) Send(msg string, targetOrigin string) error {
	if !commutator.OriginAllowed(targetOrigin, c.peerOrigin) {
		return nil
	}
	c.muWrite.Lock()
	defer c.muWrite.Unlock()
	if c.state == ws.StateServerSide {
		return wsutil.WriteServerMessage(c.conn, ws.OpText, []byte(msg))
	}
	return wsutil.WriteClientMessage(c.conn, ws.OpText, []byte(msg))
}

func (c *Channel) read() ([]byte, error) {
	if c.state == ws.StateServerSide {
		data, _, err := wsutil.ReadClientData(c.rw)
		return data, err
	}
	data, _, err := wsutil.ReadServerData(c.rw)
	return data, err
}

// Serve reads messages until the connection fails or a listener returns an
// error.
func (c *Channel) Serve() error {
	for {
		data, err := c.read()
		if err != nil {
			return err
		}
		if err := c.Emit(commutator.Event{Data: string(data), Origin: c.peerOrigin}); err != nil {
			return err
		}
	}
}

func (c *Channel) Close() error {
	return c.conn.Close()
}

var errOriginNotAllowed = errors.New("websocket upgrade: origin not allowed")

var _ wsconn.Upgrader = &Upgrader{}

// Upgrader upgrades HTTP requests to websocket channels, rejecting browser
// requests from origins other than AllowOrigin.
type Upgrader struct {
	AllowOrigin string
	Upgrader    ws.HTTPUpgrader
}

func (u *Upgrader) Upgrade(r *http.Request, w http.ResponseWriter, h http.Header) (wsconn.Conn, error) {
	if !wsconn.CheckOrigin(r, u.AllowOrigin) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return nil, errOriginNotAllowed
	}
	upgrader := u.Upgrader
	if h != nil {
		upgrader.Header = h
	}
	conn, rw, _, err := upgrader.Upgrade(r, w)
	if err != nil {
		return nil, err
	}
	var reader io.Reader = conn
	if rw != nil && rw.Reader != nil {
		reader = rw.Reader
	}
	return newChannel(conn, reader, ws.StateServerSide, wsconn.RequestOrigin(r)), nil
}
