package sandbox

import (
	"encoding/json"
	"fmt"
)

// MessageType is the kind of a sandbox message.
type MessageType string

const (
	// TypeReady is sent once the entry component has committed its first
	// render.
	TypeReady MessageType = "ready"
	// TypeError is sent for compile errors, render errors, uncaught
	// exceptions and unhandled rejections.
	TypeError MessageType = "error"
)

// Message is what a sandbox document posts to its host page.
type Message struct {
	Type       MessageType `json:"type"`
	Generation uint64      `json:"generation"`
	Message    string      `json:"message,omitempty"`
	Line       int         `json:"line,omitempty"`
	Column     int         `json:"column,omitempty"`
	Stack      string      `json:"stack,omitempty"`
}

// MessageError reports a message that does not follow the wire format.
type MessageError struct {
	Reason string
	Err    error
}

func (e *MessageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid sandbox message: %s: %v", e.Reason, e.Err)
	}
	return "invalid sandbox message: " + e.Reason
}

func (e *MessageError) Unwrap() error {
	return e.Err
}

// DecodeMessage parses and validates a message received from a sandbox.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, &MessageError{Reason: "malformed JSON", Err: err}
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Validate checks the fields required by the message type.
func (m Message) Validate() error {
	switch m.Type {
	case TypeReady:
	case TypeError:
		if m.Message == "" {
			return &MessageError{Reason: "error message without text"}
		}
	case "":
		return &MessageError{Reason: "missing type"}
	default:
		return &MessageError{Reason: fmt.Sprintf("unknown type %q", m.Type)}
	}
	if m.Generation == 0 {
		return &MessageError{Reason: "missing generation"}
	}
	if m.Line < 0 || m.Column < 0 {
		return &MessageError{Reason: "negative position"}
	}
	return nil
}

// Terminal reports whether the message ends a headless run.
func (m Message) Terminal() bool {
	return m.Type == TypeReady || m.Type == TypeError
}
