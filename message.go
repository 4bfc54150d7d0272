package scribews

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

type MessageType byte

const (
	PingMessage   MessageType = 9
	PongMessage   MessageType = 10
	BinaryMessage MessageType = 2
	DataMessage   MessageType = 1
)

func (t MessageType) Is(other MessageType) bool {
	return t == other
}

func (t MessageType) IsData() bool {
	return t.Is(DataMessage)
}

func (t MessageType) IsBinary() bool {
	return t.Is(BinaryMessage)
}

func (t MessageType) IsPing() bool {
	return t.Is(PingMessage)
}

func (t MessageType) IsPong() bool {
	return t.Is(PongMessage)
}

// carriesPayload reports whether frames of this type are delivered to handlers.
func (t MessageType) carriesPayload() bool {
	return t.IsData() || t.IsBinary()
}

type Message interface {
	Type() MessageType
	Data() []byte
	String() string
}

type message struct {
	MessageType MessageType
	MessageData []byte
}

func (m message) Type() MessageType {
	return m.MessageType
}

func (m message) Data() []byte {
	return m.MessageData
}

func (m message) String() string {
	return fmt.Sprintf("Message{type=%d,data=%s}",
		m.MessageType, m.MessageData)
}

func NewMessage(mt MessageType, data []byte) Message {
	return message{MessageType: mt, MessageData: data}
}

func NewDataMessage(data []byte) Message {
	return NewMessage(DataMessage, data)
}

func NewBinaryMessage(data []byte) Message {
	return NewMessage(BinaryMessage, data)
}

func NewPingMessage(data []byte) Message {
	return NewMessage(PingMessage, data)
}

func NewPongMessage(data []byte) Message {
	return NewMessage(PongMessage, data)
}

// NewJSONMessage encodes v as a text frame.
func NewJSONMessage(v any) (Message, error) {
	bts, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "cannot encode outbound message")
	}
	return NewDataMessage(bts), nil
}
