package signaling

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessage_JoinRoomID(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		want    string
		wantErr error
	}{
		{name: "string payload", msg: Message{Payload: json.RawMessage(`"abc"`)}, want: "abc"},
		{name: "room_id field", msg: Message{RoomID: "abc"}, want: "abc"},
		{name: "room_id wins over payload", msg: Message{RoomID: "abc", Payload: json.RawMessage(`"xyz"`)}, want: "abc"},
		{name: "missing", msg: Message{}, wantErr: ErrEmptyRoomID},
		{name: "empty string", msg: Message{Payload: json.RawMessage(`""`)}, wantErr: ErrEmptyRoomID},
		{name: "whitespace only", msg: Message{Payload: json.RawMessage(`"  \t "`)}, wantErr: ErrEmptyRoomID},
		{name: "object payload", msg: Message{Payload: json.RawMessage(`{"room":"abc"}`)}, wantErr: ErrMalformedMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.msg.JoinRoomID()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestMessage_PayloadIsForwardedVerbatim(t *testing.T) {
	raw := `{"type":"offer","payload":{"sdp":"v=0\r\n","type":"offer"  }}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	require.Equal(t, `{"sdp":"v=0\r\n","type":"offer"  }`, string(msg.Payload))
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage(ErrEmptyRoomID)
	require.Equal(t, MessageTypeError, msg.Type)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	require.Equal(t, ErrEmptyRoomID.Error(), payload.Error)
}

func TestParseMessage_KeepsFrame(t *testing.T) {
	req := require.New(t)
	frame := []byte(`{"type":"answer", "payload":{ "sdp":"a=<x>&y" }}`)

	msg, err := ParseMessage(frame)
	req.NoError(err)
	req.Equal(MessageTypeAnswer, msg.Type)
	req.Equal(frame, msg.Raw())

	// Messages built by the relay have no frame of their own
	req.Nil(NewErrorMessage(ErrEmptyRoomID).Raw())
}

func TestParseMessage_Malformed(t *testing.T) {
	_, err := ParseMessage([]byte(`{"type":`))
	require.Error(t, err)
}
