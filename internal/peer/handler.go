package peer

import (
	"encoding/json"
	"log/slog"

	"github.com/pion/webrtc/v4"

	"github.com/BioHazard786/tandem/internal/signaling"
)

// EventKind identifies a relay notification after decoding.
type EventKind int

const (
	EventRoomCreated EventKind = iota
	EventRoomJoined
	EventStartCall
	EventOffer
	EventAnswer
	EventCandidate
	EventPeerLeft
	EventRoomFull
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventRoomCreated:
		return signaling.MessageTypeRoomCreated
	case EventRoomJoined:
		return signaling.MessageTypeRoomJoined
	case EventStartCall:
		return signaling.MessageTypeStartCall
	case EventOffer:
		return signaling.MessageTypeOffer
	case EventAnswer:
		return signaling.MessageTypeAnswer
	case EventCandidate:
		return signaling.MessageTypeICECandidate
	case EventPeerLeft:
		return signaling.MessageTypePeerDisconnected
	case EventRoomFull:
		return signaling.MessageTypeRoomFull
	case EventError:
		return signaling.MessageTypeError
	default:
		return "unknown"
	}
}

// Event is a decoded relay notification.
type Event struct {
	Kind        EventKind
	Description *webrtc.SessionDescription
	Candidate   *webrtc.ICECandidateInit
	Err         string
}

// Handler decodes relay messages into a single ordered event stream.
type Handler struct {
	log      *slog.Logger
	incoming <-chan *signaling.Message
	events   chan Event
}

// NewHandler creates a new message handler.
func NewHandler(log *slog.Logger, incoming <-chan *signaling.Message) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:      log,
		incoming: incoming,
		events:   make(chan Event, 32),
	}
}

// Start routes incoming messages until the relay connection ends, then
// closes Events.
func (h *Handler) Start() {
	defer close(h.events)

	for msg := range h.incoming {
		if ev, ok := h.route(msg); ok {
			h.events <- ev
		}
	}
}

// Events returns the decoded notifications in arrival order.
func (h *Handler) Events() <-chan Event {
	return h.events
}

func (h *Handler) route(msg *signaling.Message) (Event, bool) {
	switch msg.Type {
	case signaling.MessageTypeRoomCreated:
		return Event{Kind: EventRoomCreated}, true
	case signaling.MessageTypeRoomJoined:
		return Event{Kind: EventRoomJoined}, true
	case signaling.MessageTypeStartCall:
		return Event{Kind: EventStartCall}, true
	case signaling.MessageTypePeerDisconnected:
		return Event{Kind: EventPeerLeft}, true
	case signaling.MessageTypeRoomFull:
		return Event{Kind: EventRoomFull}, true

	case signaling.MessageTypeOffer, signaling.MessageTypeAnswer:
		return h.handleDescription(msg)

	case signaling.MessageTypeICECandidate:
		return h.handleCandidate(msg)

	case signaling.MessageTypeError:
		return h.handleError(msg), true

	default:
		h.log.Debug("Ignoring relay message", "type", msg.Type)
		return Event{}, false
	}
}

func (h *Handler) handleDescription(msg *signaling.Message) (Event, bool) {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(msg.Payload, &desc); err != nil || desc.SDP == "" {
		h.log.Warn("Dropping malformed session description", "type", msg.Type, "error", err)
		return Event{}, false
	}

	kind := EventOffer
	if msg.Type == signaling.MessageTypeAnswer {
		kind = EventAnswer
	}
	return Event{Kind: kind, Description: &desc}, true
}

func (h *Handler) handleCandidate(msg *signaling.Message) (Event, bool) {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(msg.Payload, &candidate); err != nil {
		h.log.Warn("Dropping malformed ICE candidate", "error", err)
		return Event{}, false
	}
	return Event{Kind: EventCandidate, Candidate: &candidate}, true
}

func (h *Handler) handleError(msg *signaling.Message) Event {
	var payload signaling.ErrorPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Error == "" {
		return Event{Kind: EventError, Err: "unknown error from relay"}
	}
	return Event{Kind: EventError, Err: payload.Error}
}
