package commutator

import "encoding/json"

// Helpers for JSON parsing

// isObject returns true if the message is a JSON object (starts
// with '{', spaces skipped).
func isObject(raw json.RawMessage) bool {
	for _, b := range raw {
		if isSpace(b) {
			continue
		}
		return b == '{'
	}
	return false
}

// isNull returns true if the message is empty or the JSON literal null.
func isNull(raw json.RawMessage) bool {
	for i, b := range raw {
		if isSpace(b) {
			continue
		}
		rest := raw[i:]
		for len(rest) > 0 && isSpace(rest[len(rest)-1]) {
			rest = rest[:len(rest)-1]
		}
		return string(rest) == "null"
	}
	return true
}

// nullToNil normalizes null and empty values to a nil RawMessage, so decoded
// messages compare equal to the ones that were encoded.
func nullToNil(raw json.RawMessage) json.RawMessage {
	if isNull(raw) {
		return nil
	}
	return raw
}

// isSpace returns true if the byte is considered a space in JSON syntax.
func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
