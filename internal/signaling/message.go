package signaling

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Message defines the structure for all peer-to-relay and relay-to-peer
// websocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	RoomID  string          `json:"room_id,omitempty"`

	// raw is the frame the message was decoded from; nil for messages the
	// relay builds itself.
	raw []byte
}

// ParseMessage decodes a frame received from a peer. The frame bytes are
// kept so a relayed signal reaches the other peer unchanged.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	msg.raw = data
	return &msg, nil
}

// Raw returns the frame the message was decoded from, or nil.
func (m *Message) Raw() []byte {
	return m.raw
}

// Message type constants.
const (
	MessageTypeJoinRoom     = "join-room"
	MessageTypeOffer        = "offer"
	MessageTypeAnswer       = "answer"
	MessageTypeICECandidate = "ice-candidate"

	MessageTypeRoomCreated      = "room-created"
	MessageTypeRoomJoined       = "room-joined"
	MessageTypeStartCall        = "start-call"
	MessageTypeRoomFull         = "room-full"
	MessageTypePeerDisconnected = "peer-disconnected"
	MessageTypeError            = "error"
)

// ErrorPayload is the payload of an "error" message.
type ErrorPayload struct {
	Error string `json:"error"`
}

// IsSignal reports whether t is one of the handshake types relayed verbatim
// between the two members of a room.
func IsSignal(t string) bool {
	switch t {
	case MessageTypeOffer, MessageTypeAnswer, MessageTypeICECandidate:
		return true
	}
	return false
}

// JoinRoomID extracts the room identifier of a join-room request. Browsers
// send it as a bare JSON string payload; the room_id field is accepted too.
func (m *Message) JoinRoomID() (string, error) {
	roomID := m.RoomID
	if roomID == "" && len(m.Payload) > 0 {
		if err := json.Unmarshal(m.Payload, &roomID); err != nil {
			return "", fmt.Errorf("%w: room id must be a string", ErrMalformedMessage)
		}
	}
	if strings.TrimSpace(roomID) == "" {
		return "", ErrEmptyRoomID
	}
	return roomID, nil
}

func newNotification(t string) *Message {
	return &Message{Type: t}
}

// NewErrorMessage builds the "error" message reported to a peer for err.
func NewErrorMessage(err error) *Message {
	payload, _ := json.Marshal(ErrorPayload{Error: err.Error()})
	return &Message{Type: MessageTypeError, Payload: payload}
}
