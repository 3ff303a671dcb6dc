package peer

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Frame types carried on the chat data channel.
const (
	FrameTypeHello = "hello"
	FrameTypeChat  = "chat"
	FrameTypeBye   = "bye"
)

// Frame is a data channel message.
type Frame struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// HelloPayload introduces a peer once the channel opens.
type HelloPayload struct {
	Name    string `msgpack:"name"`
	Version string `msgpack:"version"`
}

// ChatPayload is one line of text.
type ChatPayload struct {
	Text   string `msgpack:"text"`
	SentAt int64  `msgpack:"sentAt"`
}

// SentTime returns SentAt as a time.
func (p ChatPayload) SentTime() time.Time {
	return time.UnixMilli(p.SentAt)
}

// DecodePayload decodes the frame payload into v
func (f Frame) DecodePayload(v any) error {
	return msgpack.Unmarshal(f.Payload, v)
}

// NewFrame creates a Frame with the given type and payload
func NewFrame(t string, payload any) (Frame, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: t, Payload: b}, nil
}

// EncodeFrame builds the wire bytes for a frame of type t.
func EncodeFrame(t string, payload any) ([]byte, error) {
	frame, err := NewFrame(t, payload)
	if err != nil {
		return nil, NewError("encode frame", err)
	}
	data, err := msgpack.Marshal(frame)
	if err != nil {
		return nil, NewError("encode frame", err)
	}
	return data, nil
}

// DecodeFrame parses wire bytes into a Frame.
func DecodeFrame(data []byte) (Frame, error) {
	var frame Frame
	if err := msgpack.Unmarshal(data, &frame); err != nil {
		return Frame{}, NewError("decode frame", err)
	}
	switch frame.Type {
	case FrameTypeHello, FrameTypeChat, FrameTypeBye:
		return frame, nil
	default:
		return Frame{}, WrapError("decode frame", ErrUnknownFrame, frame.Type)
	}
}
