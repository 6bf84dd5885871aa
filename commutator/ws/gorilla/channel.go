// Websocket channel implementation using Gorilla's Websocket library
package gorilla

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/vipnode/commutator/commutator"
	"github.com/vipnode/commutator/commutator/ws"
)

// Dial connects to a websocket server. origin is sent as the Origin header
// and may be empty.
func Dial(ctx context.Context, url string, origin string) (*Channel, error) {
	peerOrigin, err := ws.URLOrigin(url)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return newChannel(conn, peerOrigin), nil
}

var _ ws.Conn = &Channel{}

// Channel is a commutator.Channel over a gorilla websocket connection. Each
// message is one text frame.
type Channel struct {
	commutator.ListenerSet

	muWrite    sync.Mutex
	conn       *websocket.Conn
	peerOrigin string
}

func newChannel(conn *websocket.Conn, peerOrigin string) *Channel {
	return &Channel{
		conn:       conn,
		peerOrigin: peerOrigin,
	}
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
	return c.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// Serve reads messages until the connection fails or a listener returns an
// error.
func (c *Channel) Serve() error {
	for {
		_, data, err := c.conn.ReadMessage()
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

var _ ws.Upgrader = &Upgrader{}

// Upgrader upgrades HTTP requests to websocket channels, rejecting browser
// requests from origins other than AllowOrigin.
type Upgrader struct {
	AllowOrigin string

	once     sync.Once
	upgrader websocket.Upgrader
}

func (u *Upgrader) Upgrade(r *http.Request, w http.ResponseWriter, h http.Header) (ws.Conn, error) {
	u.once.Do(func() {
		u.upgrader.CheckOrigin = func(r *http.Request) bool {
			return ws.CheckOrigin(r, u.AllowOrigin)
		}
	})
	conn, err := u.upgrader.Upgrade(w, r, h)
	if err != nil {
		return nil, err
	}
	return newChannel(conn, ws.RequestOrigin(r)), nil
}
