package signaling

import "github.com/samber/lo"

// Router computes the recipients of a relayed signaling message. It holds no
// state of its own and performs no delivery.
type Router struct {
	rooms *RoomTable
}

func NewRouter(rooms *RoomTable) *Router {
	return &Router{rooms: rooms}
}

// Route returns the connections that should receive a message sent by sender
// within roomID. A sender that is not a current member of roomID has no
// recipients.
func (r *Router) Route(sender ConnID, roomID string) []ConnID {
	if !lo.Contains(r.rooms.Members(roomID), sender) {
		return nil
	}
	return r.rooms.PeersOf(roomID, sender)
}
