package peer

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/tandem/internal/signaling"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandler_RoutesInOrder(t *testing.T) {
	req := require.New(t)

	incoming := make(chan *signaling.Message, 16)
	incoming <- &signaling.Message{Type: signaling.MessageTypeRoomCreated}
	incoming <- &signaling.Message{Type: signaling.MessageTypeStartCall}
	incoming <- &signaling.Message{Type: signaling.MessageTypeAnswer, Payload: json.RawMessage(`{"type":"answer","sdp":"v=0\r\n"}`)}
	incoming <- &signaling.Message{Type: signaling.MessageTypeICECandidate, Payload: json.RawMessage(`{"candidate":"candidate:1 1 udp 1 192.0.2.1 5000 typ host","sdpMid":"0","sdpMLineIndex":0}`)}
	incoming <- &signaling.Message{Type: "presence"}
	incoming <- &signaling.Message{Type: signaling.MessageTypePeerDisconnected}
	incoming <- &signaling.Message{Type: signaling.MessageTypeRoomJoined}
	close(incoming)

	h := NewHandler(discardLogger(), incoming)
	go h.Start()

	var kinds []EventKind
	var events []Event
	for ev := range h.Events() {
		kinds = append(kinds, ev.Kind)
		events = append(events, ev)
	}

	req.Equal([]EventKind{
		EventRoomCreated,
		EventStartCall,
		EventAnswer,
		EventCandidate,
		EventPeerLeft,
		EventRoomJoined,
	}, kinds)

	req.Equal(webrtc.SDPTypeAnswer, events[2].Description.Type)
	req.Equal("v=0\r\n", events[2].Description.SDP)

	req.Equal("candidate:1 1 udp 1 192.0.2.1 5000 typ host", events[3].Candidate.Candidate)
	req.NotNil(events[3].Candidate.SDPMid)
	req.Equal("0", *events[3].Candidate.SDPMid)
}

func TestHandler_Route(t *testing.T) {
	h := NewHandler(discardLogger(), nil)

	tests := []struct {
		name string
		msg  *signaling.Message
		want EventKind
		ok   bool
	}{
		{"room full", &signaling.Message{Type: signaling.MessageTypeRoomFull}, EventRoomFull, true},
		{"offer", &signaling.Message{Type: signaling.MessageTypeOffer, Payload: json.RawMessage(`{"type":"offer","sdp":"v=0"}`)}, EventOffer, true},
		{"offer without sdp", &signaling.Message{Type: signaling.MessageTypeOffer, Payload: json.RawMessage(`{"type":"offer"}`)}, 0, false},
		{"offer not an object", &signaling.Message{Type: signaling.MessageTypeOffer, Payload: json.RawMessage(`"v=0"`)}, 0, false},
		{"candidate not an object", &signaling.Message{Type: signaling.MessageTypeICECandidate, Payload: json.RawMessage(`42`)}, 0, false},
		{"unknown", &signaling.Message{Type: "join-room"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := h.route(tt.msg)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.Equal(t, tt.want, ev.Kind)
			}
		})
	}
}

func TestHandler_Error(t *testing.T) {
	h := NewHandler(discardLogger(), nil)

	ev, ok := h.route(signaling.NewErrorMessage(signaling.ErrEmptyRoomID))
	require.True(t, ok)
	require.Equal(t, EventError, ev.Kind)
	require.Equal(t, signaling.ErrEmptyRoomID.Error(), ev.Err)

	ev, ok = h.route(&signaling.Message{Type: signaling.MessageTypeError})
	require.True(t, ok)
	require.Equal(t, "unknown error from relay", ev.Err)
}

func TestEventKind_String(t *testing.T) {
	require.Equal(t, "start-call", EventStartCall.String())
	require.Equal(t, "peer-disconnected", EventPeerLeft.String())
	require.Equal(t, "unknown", EventKind(99).String())
}
