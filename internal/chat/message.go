// Package chat defines the wire-level message shape exchanged between relay
// clients and the server, and the parser for the slash-command protocol.
package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedMessage wraps every failure to decode a client frame.
var ErrMalformedMessage = errors.New("malformed message")

// Kind tags the payload carried by a Message.
type Kind string

// Message kinds understood by the server.
const (
	KindGlobal     Kind = "GLOBAL"
	KindCommand    Kind = "COMMAND"
	KindPrivate    Kind = "PRIVATE"
	KindConnection Kind = "CONNECTION"
)

// DuplicateSentinel is the out-of-band frame a server sends instead of a chat
// line when the requested username is already taken.
const DuplicateSentinel = "DUPLICATE"

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindGlobal, KindCommand, KindPrivate, KindConnection:
		return true
	}
	return false
}

// UnmarshalJSON accepts kind names case-insensitively and rejects unknown ones.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed := Kind(strings.ToUpper(strings.TrimSpace(raw)))
	if !parsed.Valid() {
		return fmt.Errorf("unknown message type %q", raw)
	}
	*k = parsed
	return nil
}

// Message is one frame sent by a client after the username handshake.
type Message struct {
	Kind      Kind   `json:"type"`
	Body      string `json:"message,omitempty"`
	Recipient string `json:"recipient,omitempty"`
}

// IsChat reports whether the message carries text meant for other users.
func (m Message) IsChat() bool {
	return (m.Kind == KindGlobal || m.Kind == KindPrivate) && m.Body != ""
}

// FromInput turns a line typed by a user into a Message: anything starting
// with '/' is a command, everything else is global chat.
func FromInput(line string) Message {
	if strings.HasPrefix(line, "/") {
		return Message{Kind: KindCommand, Body: line}
	}
	return Message{Kind: KindGlobal, Body: line}
}

// Decode parses a JSON frame into a Message.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.Kind == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	return msg, nil
}

// Encode renders a Message as a JSON frame.
func Encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
