package signaling

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConnID identifies a live connection. It is opaque to peers.
type ConnID string

// State is the lifecycle tag of a connection.
type State int

const (
	StateUnjoined State = iota
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnjoined:
		return "unjoined"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection is the bookkeeping kept for one participant.
type Connection struct {
	ID          ConnID
	RoomID      string
	State       State
	ConnectedAt time.Time
}

// Registry tracks live connections and the room each one belongs to.
type Registry struct {
	mu    sync.RWMutex
	conns map[ConnID]*Connection
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[ConnID]*Connection),
	}
}

// Register allocates a fresh connection in the Unjoined state.
func (r *Registry) Register() ConnID {
	id := ConnID(uuid.NewString())

	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[id] = &Connection{
		ID:          id,
		State:       StateUnjoined,
		ConnectedAt: time.Now(),
	}
	return id
}

// Lookup returns a copy of the connection state.
func (r *Registry) Lookup(id ConnID) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[id]
	if !ok {
		return Connection{}, false
	}
	return *conn, true
}

// Join moves an Unjoined connection into roomID. It reports false when the
// connection is unknown or not Unjoined.
func (r *Registry) Join(id ConnID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[id]
	if !ok || conn.State != StateUnjoined {
		return false
	}
	conn.RoomID = roomID
	conn.State = StateJoined
	return true
}

// Close marks the connection Closed without forgetting it; the transport
// still owes a disconnect for it.
func (r *Registry) Close(id ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[id]
	if !ok {
		return false
	}
	conn.State = StateClosed
	return true
}

// Unregister forgets the connection and returns its last state. Calling it
// for an unknown or already unregistered id is a no-op returning false, so at
// most one caller ever observes a given connection leaving.
func (r *Registry) Unregister(id ConnID) (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[id]
	if !ok {
		return Connection{}, false
	}
	delete(r.conns, id)
	return *conn, true
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
