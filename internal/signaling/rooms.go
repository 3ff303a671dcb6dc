package signaling

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
)

// RoomCapacity is the maximum number of members a room admits.
const RoomCapacity = 2

// JoinResult is the outcome of the room-admission policy.
type JoinResult int

const (
	// Created means the joiner is the sole member of a new room.
	Created JoinResult = iota + 1
	// Joined means the joiner completed a room as its second member.
	Joined
	// Full means the room already had two members, or the joiner was
	// already one of them. Membership is left untouched.
	Full
)

func (r JoinResult) String() string {
	switch r {
	case Created:
		return "created"
	case Joined:
		return "joined"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// room is one entry of the table. Once its last member leaves it is marked
// dead and unlinked; a joiner that still holds a dead entry retries.
type room struct {
	mu      sync.Mutex
	members []ConnID // insertion order, members[0] is the initiator
	dead    bool
}

// RoomTable maps room identifiers to their members. Every mutation of a room
// is exclusive per room identifier; operations on different rooms never
// contend on a shared lock.
type RoomTable struct {
	rooms sync.Map // string -> *room
	count atomic.Int64
}

func NewRoomTable() *RoomTable {
	return &RoomTable{}
}

// Join applies the admission policy for id joining roomID.
func (t *RoomTable) Join(roomID string, id ConnID) JoinResult {
	for {
		v, _ := t.rooms.LoadOrStore(roomID, &room{})
		r := v.(*room)

		r.mu.Lock()
		if r.dead {
			r.mu.Unlock()
			continue
		}

		var result JoinResult
		switch {
		case lo.Contains(r.members, id):
			result = Full
		case len(r.members) == 0:
			r.members = append(r.members, id)
			t.count.Add(1)
			result = Created
		case len(r.members) < RoomCapacity:
			r.members = append(r.members, id)
			result = Joined
		default:
			result = Full
		}
		r.mu.Unlock()
		return result
	}
}

// Leave removes id from roomID and returns the members still in the room.
// deleted is true only for the call that emptied and removed the room.
// Leaving a room the connection is not a member of changes nothing.
func (t *RoomTable) Leave(roomID string, id ConnID) (remaining []ConnID, deleted bool) {
	v, ok := t.rooms.Load(roomID)
	if !ok {
		return nil, false
	}
	r := v.(*room)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dead || !lo.Contains(r.members, id) {
		return nil, false
	}

	r.members = lo.Without(r.members, id)
	if len(r.members) == 0 {
		r.dead = true
		t.rooms.CompareAndDelete(roomID, r)
		t.count.Add(-1)
		return nil, true
	}
	return append([]ConnID(nil), r.members...), false
}

// PeersOf returns the members of roomID other than excluding.
func (t *RoomTable) PeersOf(roomID string, excluding ConnID) []ConnID {
	return lo.Without(t.Members(roomID), excluding)
}

// Members returns a copy of the members of roomID in join order.
func (t *RoomTable) Members(roomID string) []ConnID {
	v, ok := t.rooms.Load(roomID)
	if !ok {
		return nil
	}
	r := v.(*room)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dead || len(r.members) == 0 {
		return nil
	}
	return append([]ConnID(nil), r.members...)
}

// Len returns the number of rooms with at least one member.
func (t *RoomTable) Len() int {
	return int(t.count.Load())
}

// RoomSize pairs a room identifier with its current member count.
type RoomSize struct {
	RoomID  string
	Members int
}

// Snapshot lists every non-empty room sorted by identifier. Rooms are read
// one at a time, so the result is not an atomic view of the whole table.
func (t *RoomTable) Snapshot() []RoomSize {
	var sizes []RoomSize
	t.rooms.Range(func(key, value any) bool {
		r := value.(*room)
		r.mu.Lock()
		n := len(r.members)
		dead := r.dead
		r.mu.Unlock()

		if !dead && n > 0 {
			sizes = append(sizes, RoomSize{RoomID: key.(string), Members: n})
		}
		return true
	})
	sort.Slice(sizes, func(i, j int) bool { return sizes[i].RoomID < sizes[j].RoomID })
	return sizes
}
