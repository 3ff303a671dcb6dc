package peer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/tandem/internal/config"
	"github.com/BioHazard786/tandem/internal/server"
	"github.com/BioHazard786/tandem/internal/signaling"
)

func startRelay(t *testing.T) string {
	t.Helper()
	cfg := &config.Server{SendBuffer: 16, ReadLimit: 64 * 1024}
	ts := httptest.NewServer(server.New(cfg, discardLogger()).Handler())
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func connect(t *testing.T, url string) (*Client, *Handler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := NewClient(url)
	require.NoError(t, client.Connect(ctx))
	t.Cleanup(client.Close)

	handler := NewHandler(discardLogger(), client.Incoming())
	go handler.Start()
	return client, handler
}

func next(t *testing.T, h *Handler) Event {
	t.Helper()
	select {
	case ev, ok := <-h.Events():
		require.True(t, ok, "event stream closed")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for relay event")
		return Event{}
	}
}

func TestClient_ThroughRelay(t *testing.T) {
	req := require.New(t)
	url := startRelay(t)

	a, ha := connect(t, url)
	b, hb := connect(t, url)

	// Given A created the room and B joined it
	req.NoError(a.JoinRoom("quiet-otter-42"))
	req.Equal(EventRoomCreated, next(t, ha).Kind)
	req.NoError(b.JoinRoom("quiet-otter-42"))
	req.Equal(EventRoomJoined, next(t, hb).Kind)
	req.Equal(EventStartCall, next(t, ha).Kind)

	// When A sends an offer
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0\r\n"}
	req.NoError(a.SendSignal(signaling.MessageTypeOffer, offer))

	// Then B receives the same description
	ev := next(t, hb)
	req.Equal(EventOffer, ev.Kind)
	req.Equal(offer, *ev.Description)

	// When A goes away, B is told
	a.Close()
	req.Equal(EventPeerLeft, next(t, hb).Kind)
}

func TestClient_RoomFull(t *testing.T) {
	req := require.New(t)
	url := startRelay(t)

	a, ha := connect(t, url)
	b, hb := connect(t, url)
	c, hc := connect(t, url)

	req.NoError(a.JoinRoom("abc"))
	req.Equal(EventRoomCreated, next(t, ha).Kind)
	req.NoError(b.JoinRoom("abc"))
	req.Equal(EventRoomJoined, next(t, hb).Kind)

	req.NoError(c.JoinRoom("abc"))
	req.Equal(EventRoomFull, next(t, hc).Kind)

	// The relay closes the rejected connection, which ends the stream
	select {
	case _, ok := <-hc.Events():
		req.False(ok)
	case <-time.After(5 * time.Second):
		t.Fatal("event stream not closed")
	}
}

func TestClient_SendAfterClose(t *testing.T) {
	client, _ := connect(t, startRelay(t))

	client.Close()
	client.Close()

	require.ErrorIs(t, client.JoinRoom("abc"), ErrConnectionClosed)
}

func TestClient_RelayGoneStopsSends(t *testing.T) {
	req := require.New(t)

	// Given a relay that hangs up right after the handshake
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	t.Cleanup(ts.Close)

	client := NewClient("ws" + strings.TrimPrefix(ts.URL, "http"))
	req.NoError(client.Connect(context.Background()))
	t.Cleanup(client.Close)

	select {
	case _, ok := <-client.Incoming():
		req.False(ok)
	case <-time.After(5 * time.Second):
		t.Fatal("incoming not closed")
	}

	// When more signals are sent than the outgoing queue holds
	sent := make(chan error, 1)
	go func() {
		var err error
		for i := 0; i < 64 && err == nil; i++ {
			err = client.SendSignal(signaling.MessageTypeICECandidate, webrtc.ICECandidateInit{Candidate: "c"})
		}
		sent <- err
	}()

	// Then sending fails instead of blocking
	select {
	case err := <-sent:
		req.ErrorIs(err, ErrConnectionClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("send blocked after the relay went away")
	}
}
