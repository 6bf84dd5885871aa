package commutator

import (
	"encoding/json"
	"strings"
)

// Separator joins the service id and the JSON payload of an envelope.
const Separator = "::"

// Encode wraps msg into an envelope for serviceID: "<serviceID>::<json>".
func Encode(serviceID string, msg *Message) (string, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	return serviceID + Separator + string(body), nil
}

// Decode unwraps an envelope. It returns a nil message and a nil error when
// raw does not carry the serviceID prefix: that traffic belongs to another
// consumer of the channel. A prefixed payload that fails to parse returns a
// *DecodeError.
func Decode(serviceID string, raw string) (*Message, error) {
	prefix := serviceID + Separator
	if !strings.HasPrefix(raw, prefix) {
		return nil, nil
	}
	var msg Message
	if err := json.Unmarshal([]byte(raw[len(prefix):]), &msg); err != nil {
		return nil, &DecodeError{
			ServiceID: serviceID,
			Raw:       raw,
			cause:     err,
		}
	}
	return &msg, nil
}
