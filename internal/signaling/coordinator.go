package signaling

import (
	"log/slog"
)

// Outbound is a notification the transport must deliver. When Close is set
// the transport closes the connection once Message has been written.
type Outbound struct {
	To      ConnID
	Message *Message
	Close   bool
}

// Coordinator is the per-connection state machine of the relay:
//
//	Unjoined --join--> Joined(room) --disconnect--> Closed
//	Unjoined --join (room full)--> Closed
//
// Every event is handled synchronously and answered with the notifications
// to send. The coordinator performs no I/O itself; callers must serialize
// the events of a single connection.
type Coordinator struct {
	log    *slog.Logger
	conns  *Registry
	rooms  *RoomTable
	router *Router
}

func NewCoordinator(log *slog.Logger, conns *Registry, rooms *RoomTable, router *Router) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		log:    log,
		conns:  conns,
		rooms:  rooms,
		router: router,
	}
}

// Connect registers a new connection.
func (c *Coordinator) Connect() ConnID {
	id := c.conns.Register()
	c.log.Debug("Connection registered", "conn", id)
	return id
}

// Handle dispatches one inbound message from id.
func (c *Coordinator) Handle(id ConnID, msg *Message) []Outbound {
	conn, ok := c.conns.Lookup(id)
	if !ok {
		c.log.Debug("Message from unknown connection", "conn", id, "type", msg.Type)
		return nil
	}

	switch {
	case msg.Type == MessageTypeJoinRoom:
		return c.join(conn, msg)
	case IsSignal(msg.Type):
		return c.relay(conn, msg)
	default:
		c.log.Debug("Unknown message type", "conn", id, "type", msg.Type)
		return nil
	}
}

func (c *Coordinator) join(conn Connection, msg *Message) []Outbound {
	if conn.State != StateUnjoined {
		c.log.Debug("Ignoring join-room", "conn", conn.ID, "state", conn.State, "room", conn.RoomID)
		return nil
	}

	roomID, err := msg.JoinRoomID()
	if err != nil {
		c.log.Debug("Rejecting join-room", "conn", conn.ID, "error", err)
		return []Outbound{{To: conn.ID, Message: NewErrorMessage(err)}}
	}

	result := c.rooms.Join(roomID, conn.ID)
	if result != Full && !c.conns.Join(conn.ID, roomID) {
		// The connection went away between lookup and admission.
		c.rooms.Leave(roomID, conn.ID)
		return nil
	}

	switch result {
	case Created:
		c.log.Info("Room created", "room", roomID, "conn", conn.ID)
		return []Outbound{{To: conn.ID, Message: newNotification(MessageTypeRoomCreated)}}

	case Joined:
		c.log.Info("Peer joined room", "room", roomID, "conn", conn.ID)
		out := []Outbound{{To: conn.ID, Message: newNotification(MessageTypeRoomJoined)}}
		for _, initiator := range c.router.Route(conn.ID, roomID) {
			out = append(out, Outbound{To: initiator, Message: newNotification(MessageTypeStartCall)})
		}
		return out

	default:
		c.log.Info("Room full", "room", roomID, "conn", conn.ID)
		c.conns.Close(conn.ID)
		return []Outbound{{To: conn.ID, Message: newNotification(MessageTypeRoomFull), Close: true}}
	}
}

func (c *Coordinator) relay(conn Connection, msg *Message) []Outbound {
	if conn.State != StateJoined {
		c.log.Debug("Ignoring signal outside a room", "conn", conn.ID, "type", msg.Type)
		return nil
	}

	recipients := c.router.Route(conn.ID, conn.RoomID)
	if len(recipients) == 0 {
		c.log.Debug("No peer to relay to", "conn", conn.ID, "room", conn.RoomID, "type", msg.Type)
		return nil
	}

	out := make([]Outbound, 0, len(recipients))
	for _, to := range recipients {
		out = append(out, Outbound{To: to, Message: msg})
	}
	c.log.Debug("Relaying signal", "conn", conn.ID, "room", conn.RoomID, "type", msg.Type)
	return out
}

// Disconnect processes the departure of id. Only the first call for a given
// connection has any effect.
func (c *Coordinator) Disconnect(id ConnID) []Outbound {
	conn, ok := c.conns.Unregister(id)
	if !ok {
		return nil
	}
	c.log.Debug("Connection unregistered", "conn", id, "state", conn.State)

	if conn.State != StateJoined {
		return nil
	}

	remaining, deleted := c.rooms.Leave(conn.RoomID, id)
	if deleted {
		c.log.Info("Room deleted", "room", conn.RoomID)
	}
	if len(remaining) == 0 {
		return nil
	}

	c.log.Info("Peer left room", "room", conn.RoomID, "conn", id)
	out := make([]Outbound, 0, len(remaining))
	for _, peer := range remaining {
		out = append(out, Outbound{To: peer, Message: newNotification(MessageTypePeerDisconnected)})
	}
	return out
}

// Lookup exposes the state of a connection.
func (c *Coordinator) Lookup(id ConnID) (Connection, bool) {
	return c.conns.Lookup(id)
}

// Connections returns the number of registered connections.
func (c *Coordinator) Connections() int {
	return c.conns.Len()
}

// Rooms returns the current room sizes.
func (c *Coordinator) Rooms() []RoomSize {
	return c.rooms.Snapshot()
}

// RoomCount returns the number of non-empty rooms.
func (c *Coordinator) RoomCount() int {
	return c.rooms.Len()
}
