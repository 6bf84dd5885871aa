package commutator

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/vipnode/commutator/internal/pretty"
)

var _ Channel = &Stream{}

// StreamChannel returns a Channel over a byte stream such as a net.Conn or
// a process's stdio. Each message is framed as one JSON string per line.
// peerOrigin is the origin reported for inbound events and matched against
// the target origin on Send.
func StreamChannel(rwc io.ReadWriteCloser, peerOrigin string) *Stream {
	return &Stream{
		encoder:    json.NewEncoder(rwc),
		decoder:    json.NewDecoder(rwc),
		closer:     rwc,
		peerOrigin: peerOrigin,
	}
}

// Stream is a line-framed Channel, see StreamChannel.
type Stream struct {
	ListenerSet

	muWrite    sync.Mutex
	encoder    *json.Encoder
	decoder    *json.Decoder
	closer     io.Closer
	peerOrigin string
}

// Send writes one frame.
func (s *Stream) Send(msg string, targetOrigin string) error {
	if !OriginAllowed(targetOrigin, s.peerOrigin) {
		logger.Printf("Stream.Send(): target origin %q does not match %q, dropping: %s", targetOrigin, s.peerOrigin, pretty.Abbrev(msg, 64))
		return nil
	}
	s.muWrite.Lock()
	defer s.muWrite.Unlock()
	return s.encoder.Encode(msg)
}

// Serve reads frames and delivers them to the listeners until the stream
// fails or a listener returns an error.
func (s *Stream) Serve() error {
	for {
		var msg string
		if err := s.decoder.Decode(&msg); err != nil {
			return err
		}
		if err := s.Emit(Event{Data: msg, Origin: s.peerOrigin}); err != nil {
			return err
		}
	}
}

func (s *Stream) Close() error {
	return s.closer.Close()
}
