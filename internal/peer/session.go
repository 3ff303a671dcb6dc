package peer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/BioHazard786/tandem/internal/config"
	"github.com/BioHazard786/tandem/internal/signaling"
	"github.com/BioHazard786/tandem/internal/version"
)

// ChatChannelLabel is the label of the data channel opened by the initiator.
const ChatChannelLabel = "chat"

// Signaler sends handshake messages to the relay.
type Signaler interface {
	SendSignal(t string, payload any) error
}

// Status is the session progress shown to the user.
type Status int

const (
	StatusWaiting Status = iota
	StatusNegotiating
	StatusConnected
	StatusPeerLeft
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting for a partner"
	case StatusNegotiating:
		return "negotiating"
	case StatusConnected:
		return "connected"
	case StatusPeerLeft:
		return "partner left"
	default:
		return "unknown"
	}
}

// Session plays one side of the two-party call: it reacts to relay events
// the same way a browser peer does and carries chat frames once the data
// channel is open.
type Session struct {
	cfg    *config.Peer
	log    *slog.Logger
	signal Signaler
	name   string

	// OnStatus and OnFrame must be set before Run. They may be called from
	// pion's goroutines.
	OnStatus func(Status)
	OnFrame  func(Frame)

	mu      sync.Mutex
	pc      *webrtc.PeerConnection
	dc      *webrtc.DataChannel
	pending []webrtc.ICECandidateInit
}

// NewSession creates a session that introduces itself to the partner as name.
func NewSession(cfg *config.Peer, log *slog.Logger, signal Signaler, name string) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		cfg:    cfg,
		log:    log,
		signal: signal,
		name:   name,
	}
}

// Run consumes relay events until ctx is cancelled, the relay connection
// ends, or the relay rejects the session.
func (s *Session) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return NewError("signaling", ErrConnectionClosed)
			}
			if err := s.handle(ev); err != nil {
				return err
			}
		}
	}
}

func (s *Session) handle(ev Event) error {
	s.log.Debug("Relay event", "event", ev.Kind)

	switch ev.Kind {
	case EventRoomCreated:
		s.setStatus(StatusWaiting)
		_, err := s.ensurePeer()
		return err

	case EventRoomJoined:
		s.setStatus(StatusNegotiating)
		_, err := s.ensurePeer()
		return err

	case EventStartCall:
		s.setStatus(StatusNegotiating)
		return s.startCall()

	case EventOffer:
		return s.acceptOffer(ev.Description)

	case EventAnswer:
		return s.acceptAnswer(ev.Description)

	case EventCandidate:
		s.addCandidate(*ev.Candidate)
		return nil

	case EventPeerLeft:
		s.teardown()
		s.setStatus(StatusPeerLeft)
		return nil

	case EventRoomFull:
		return NewError("join room", ErrRoomFull)

	case EventError:
		return WrapError("relay", ErrSignalingError, ev.Err)
	}

	return nil
}

func (s *Session) setStatus(status Status) {
	if s.OnStatus != nil {
		s.OnStatus(status)
	}
}

func (s *Session) current() *webrtc.PeerConnection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pc
}

func (s *Session) newPeerConnection() (*webrtc.PeerConnection, error) {
	var iceServers []webrtc.ICEServer
	if stun := s.cfg.GetSTUNServers(); stun != nil {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: stun})
	}

	policy := webrtc.ICETransportPolicyAll
	if turn := s.cfg.GetTURNServers(); turn != nil {
		username, password := s.cfg.GetTURNCredentials()
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       turn,
			Username:   username,
			Credential: password,
		})
		if s.cfg.ForceRelay || behindTunnel() {
			policy = webrtc.ICETransportPolicyRelay
		}
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
	if err != nil {
		return nil, NewError("create peer connection", err)
	}
	return pc, nil
}

// ensurePeer returns the live peer connection, creating it on first use.
func (s *Session) ensurePeer() (*webrtc.PeerConnection, error) {
	if pc := s.current(); pc != nil {
		return pc, nil
	}

	pc, err := s.newPeerConnection()
	if err != nil {
		return nil, err
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil || s.current() != pc {
			return
		}
		if err := s.signal.SendSignal(signaling.MessageTypeICECandidate, c.ToJSON()); err != nil {
			s.log.Debug("Failed to send ICE candidate", "error", err)
		}
	})

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() == ChatChannelLabel {
			s.attachChannel(dc)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.log.Debug("Peer connection state changed", "state", state)
	})

	s.mu.Lock()
	s.pc = pc
	s.mu.Unlock()

	return pc, nil
}

func (s *Session) attachChannel(dc *webrtc.DataChannel) {
	dc.OnOpen(func() {
		s.mu.Lock()
		s.dc = dc
		s.mu.Unlock()

		s.setStatus(StatusConnected)
		s.sendFrame(dc, FrameTypeHello, HelloPayload{Name: s.name, Version: version.Version})
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		frame, err := DecodeFrame(msg.Data)
		if err != nil {
			s.log.Warn("Dropping data channel message", "error", err)
			return
		}
		if s.OnFrame != nil {
			s.OnFrame(frame)
		}
	})

	dc.OnClose(func() {
		s.mu.Lock()
		if s.dc == dc {
			s.dc = nil
		}
		s.mu.Unlock()
	})
}

// startCall makes this side the initiator: it opens the chat channel and
// sends an offer.
func (s *Session) startCall() error {
	pc, err := s.ensurePeer()
	if err != nil {
		return err
	}

	dc, err := pc.CreateDataChannel(ChatChannelLabel, nil)
	if err != nil {
		return NewError("create data channel", err)
	}
	s.attachChannel(dc)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return NewError("create offer", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return NewError("set local description", err)
	}

	return s.signal.SendSignal(signaling.MessageTypeOffer, pc.LocalDescription())
}

func (s *Session) acceptOffer(offer *webrtc.SessionDescription) error {
	pc, err := s.ensurePeer()
	if err != nil {
		return err
	}

	if err := pc.SetRemoteDescription(*offer); err != nil {
		return NewError("set remote description", err)
	}
	s.flushCandidates(pc)

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return NewError("create answer", err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		return NewError("set local description", err)
	}

	return s.signal.SendSignal(signaling.MessageTypeAnswer, pc.LocalDescription())
}

func (s *Session) acceptAnswer(answer *webrtc.SessionDescription) error {
	pc := s.current()
	if pc == nil || pc.SignalingState() != webrtc.SignalingStateHaveLocalOffer {
		s.log.Warn("Ignoring answer", "error", ErrUnexpectedSignal)
		return nil
	}

	if err := pc.SetRemoteDescription(*answer); err != nil {
		return NewError("set remote description", err)
	}
	s.flushCandidates(pc)
	return nil
}

// addCandidate applies a remote candidate, holding it back until the remote
// description is known.
func (s *Session) addCandidate(candidate webrtc.ICECandidateInit) {
	pc := s.current()
	if pc == nil || pc.RemoteDescription() == nil {
		s.mu.Lock()
		s.pending = append(s.pending, candidate)
		s.mu.Unlock()
		return
	}

	if err := pc.AddICECandidate(candidate); err != nil {
		s.log.Warn("Failed to add ICE candidate", "error", err)
	}
}

func (s *Session) flushCandidates(pc *webrtc.PeerConnection) {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, candidate := range pending {
		if err := pc.AddICECandidate(candidate); err != nil {
			s.log.Warn("Failed to add ICE candidate", "error", err)
		}
	}
}

// teardown drops the current call. The session stays in its room and can
// negotiate with the next partner.
func (s *Session) teardown() {
	s.mu.Lock()
	pc := s.pc
	s.pc = nil
	s.dc = nil
	s.pending = nil
	s.mu.Unlock()

	if pc != nil {
		if err := pc.Close(); err != nil {
			s.log.Debug("Failed to close peer connection", "error", err)
		}
	}
}

func (s *Session) openChannel() (*webrtc.DataChannel, error) {
	s.mu.Lock()
	dc := s.dc
	s.mu.Unlock()

	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return nil, ErrChannelNotOpen
	}
	return dc, nil
}

func (s *Session) sendFrame(dc *webrtc.DataChannel, t string, payload any) error {
	data, err := EncodeFrame(t, payload)
	if err != nil {
		return err
	}
	if err := dc.Send(data); err != nil {
		return NewError("send "+t, err)
	}
	return nil
}

// Send delivers one chat line to the partner.
func (s *Session) Send(text string) error {
	dc, err := s.openChannel()
	if err != nil {
		return NewError("send message", err)
	}
	return s.sendFrame(dc, FrameTypeChat, ChatPayload{Text: text, SentAt: time.Now().UnixMilli()})
}

// Connected reports whether the chat channel is open.
func (s *Session) Connected() bool {
	_, err := s.openChannel()
	return err == nil
}

// Close says goodbye to the partner, if any, and releases the call.
func (s *Session) Close() {
	if dc, err := s.openChannel(); err == nil {
		s.sendFrame(dc, FrameTypeBye, struct{}{})
	}
	s.teardown()
}
