package commutator

import "github.com/vipnode/commutator/internal/pretty"

// dispatch is the channel listener. It routes responses to the pending call
// with the same id and requests to the handlers of the named function. It
// never waits for handlers.
func (c *Commutator) dispatch(ev Event) error {
	msg, err := Decode(c.options.ServiceID, ev.Data)
	if err != nil {
		return err
	}
	if msg == nil {
		// Someone else's traffic.
		return nil
	}

	switch msg.Type {
	case TypeResponse:
		if c.bus.Publish(responseTopic(msg.ID), msg) == 0 {
			logger.Printf("Commutator.dispatch(): no pending call for response %s", msg.ID)
		}
	case TypeRequest:
		if c.bus.Publish(requestTopic(msg.FuncName), msg) == 0 {
			logger.Printf("Commutator.dispatch(): nothing exposed as %q, dropping request %s", msg.FuncName, msg.ID)
		}
	default:
		logger.Printf("Commutator.dispatch(): dropping message of unknown type %q: %s", msg.Type, pretty.Abbrev(ev.Data, 64))
	}
	return nil
}
