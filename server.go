package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/vipnode/commutator/commutator"
	"github.com/vipnode/commutator/commutator/ws"
)

// exposer registers functions on each new connection.
type exposer interface {
	Expose(c *commutator.Commutator) error
}

// server upgrades websocket requests and gives every connection its own
// Commutator endpoint.
type server struct {
	ws        ws.Upgrader
	header    http.Header
	serviceID string
	service   exposer
}

func isUpgrade(r *http.Request) bool {
	for _, v := range strings.Split(r.Header.Get("Connection"), ",") {
		if strings.EqualFold(strings.TrimSpace(v), "upgrade") {
			return true
		}
	}
	return false
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !isUpgrade(r) {
			http.Error(w, "incorrect commutator handshake, expected a websocket upgrade", http.StatusBadRequest)
			return
		}
		conn, err := s.ws.Upgrade(r, w, s.header)
		if err != nil {
			logger.Debugf("websocket upgrade error from %s: %s", r.RemoteAddr, err)
			return
		}
		defer conn.Close()
		s.serveConn(conn, r.RemoteAddr)
	default:
		http.Error(w, "unsupported method", http.StatusMethodNotAllowed)
	}
}

func (s *server) serveConn(conn ws.Conn, remoteAddr string) {
	c, err := commutator.New(commutator.Options{
		ServiceID: s.serviceID,
		Target:    conn,
	})
	if err != nil {
		logger.Errorf("failed to start endpoint for %s: %s", remoteAddr, err)
		return
	}
	defer c.Destroy()

	if err := s.service.Expose(c); err != nil {
		logger.Errorf("failed to expose service to %s: %s", remoteAddr, err)
		return
	}

	logger.Debugf("connected: %s", remoteAddr)
	err = conn.Serve()
	var decodeErr *commutator.DecodeError
	if errors.As(err, &decodeErr) {
		logger.Warningf("dropping %s: %s", remoteAddr, err)
		return
	}
	logger.Debugf("disconnected: %s (%v)", remoteAddr, err)
}
