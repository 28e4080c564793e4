// Package message defines the copas IPC protocol.
//
// All messages are newline-delimited JSON. A client sends REQUEST messages
// carrying an operation name and its arguments; the daemon answers each with
// exactly one RESPONSE or ERROR carrying the same id. A "watch" request turns
// the connection into an EVENT stream.
package message

import (
	"encoding/json"
	"fmt"
)

// Type identifies the kind of message.
type Type string

const (
	TypeRequest  Type = "REQUEST"
	TypeResponse Type = "RESPONSE"
	TypeEvent    Type = "EVENT"
	TypeError    Type = "ERROR"
)

// Code classifies an ERROR message.
type Code string

const (
	CodeBadRequest Code = "bad_request"
	CodeUnknownOp  Code = "unknown_op"
	CodeValidation Code = "validation"
	CodeLocked     Code = "locked"
	CodePersist    Code = "persist"
	CodeInternal   Code = "internal"
)

// Message is the top-level wire envelope.
type Message struct {
	Type Type   `json:"type"`
	ID   uint64 `json:"id,omitempty"`

	// REQUEST
	Op   string          `json:"op,omitempty"`
	Args json.RawMessage `json:"args,omitempty"`

	// RESPONSE and EVENT
	Data json.RawMessage `json:"data,omitempty"`

	// ERROR. A persist error may still carry Data: the mutation was applied.
	Code  Code   `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewRequest builds a REQUEST for op. args may be nil.
func NewRequest(id uint64, op string, args any) (*Message, error) {
	raw, err := marshal(args)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", op, err)
	}
	return &Message{Type: TypeRequest, ID: id, Op: op, Args: raw}, nil
}

// NewResponse builds a RESPONSE carrying data.
func NewResponse(id uint64, data any) (*Message, error) {
	raw, err := marshal(data)
	if err != nil {
		return nil, fmt.Errorf("response: %w", err)
	}
	return &Message{Type: TypeResponse, ID: id, Data: raw}, nil
}

// NewEvent builds an EVENT carrying ev.
func NewEvent(ev any) (*Message, error) {
	raw, err := marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("event: %w", err)
	}
	return &Message{Type: TypeEvent, Data: raw}, nil
}

// NewError builds an ERROR.
func NewError(id uint64, code Code, err error) *Message {
	return &Message{Type: TypeError, ID: id, Code: code, Error: err.Error()}
}

func marshal(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// BindArgs decodes the request arguments into v. Missing args leave v
// untouched.
func (m *Message) BindArgs(v any) error {
	if len(m.Args) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Args, v); err != nil {
		return fmt.Errorf("%s args: %w", m.Op, err)
	}
	return nil
}

// BindData decodes the response or event payload into v.
func (m *Message) BindData(v any) error {
	if len(m.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// Err returns the ERROR message as a Go error, or nil for other types.
func (m *Message) Err() error {
	if m.Type != TypeError {
		return nil
	}
	return &RemoteError{Code: m.Code, Message: m.Error}
}

// RemoteError is an ERROR received from the daemon.
type RemoteError struct {
	Code    Code
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// Encode serialises the message to JSON without a trailing newline.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode deserialises a message from raw JSON bytes.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("message decode: %w", err)
	}
	return &m, nil
}
