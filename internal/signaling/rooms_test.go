package signaling

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomTable_Join_AdmissionSequence(t *testing.T) {
	req := require.New(t)
	rooms := NewRoomTable()

	req.Equal(Created, rooms.Join("abc", "a"))
	req.Equal(Joined, rooms.Join("abc", "b"))
	req.Equal(Full, rooms.Join("abc", "c"))
	req.Equal(Full, rooms.Join("abc", "d"))

	// Full never mutates membership
	req.Equal([]ConnID{"a", "b"}, rooms.Members("abc"))
	req.Equal(1, rooms.Len())
}

func TestRoomTable_Join_DuplicateMemberIsFull(t *testing.T) {
	req := require.New(t)
	rooms := NewRoomTable()

	req.Equal(Created, rooms.Join("abc", "a"))
	req.Equal(Full, rooms.Join("abc", "a"))
	req.Equal([]ConnID{"a"}, rooms.Members("abc"))

	// The room is still open to a real second peer
	req.Equal(Joined, rooms.Join("abc", "b"))
}

func TestRoomTable_Join_RoomsAreIndependent(t *testing.T) {
	req := require.New(t)
	rooms := NewRoomTable()

	req.Equal(Created, rooms.Join("abc", "a"))
	req.Equal(Created, rooms.Join("xyz", "b"))
	req.Equal(2, rooms.Len())
}

func TestRoomTable_Leave_TwoMemberRoom(t *testing.T) {
	req := require.New(t)
	rooms := NewRoomTable()
	rooms.Join("abc", "a")
	rooms.Join("abc", "b")

	// When the initiator leaves
	remaining, deleted := rooms.Leave("abc", "a")

	// Then exactly one member is left
	req.False(deleted)
	req.Equal([]ConnID{"b"}, remaining)
	req.Equal([]ConnID{"b"}, rooms.Members("abc"))

	// And the room still counts as occupied: the next joiner completes it
	req.Equal(Joined, rooms.Join("abc", "c"))
	req.Equal([]ConnID{"b", "c"}, rooms.Members("abc"))
}

func TestRoomTable_Leave_LastMemberDeletesRoom(t *testing.T) {
	req := require.New(t)
	rooms := NewRoomTable()
	rooms.Join("abc", "a")

	remaining, deleted := rooms.Leave("abc", "a")

	req.Empty(remaining)
	req.True(deleted)
	req.Nil(rooms.Members("abc"))
	req.Equal(0, rooms.Len())
	req.Empty(rooms.Snapshot())

	// A later join starts over
	req.Equal(Created, rooms.Join("abc", "b"))
}

func TestRoomTable_Leave_NonMemberIsNoop(t *testing.T) {
	req := require.New(t)
	rooms := NewRoomTable()
	rooms.Join("abc", "a")

	remaining, deleted := rooms.Leave("abc", "zzz")
	req.Nil(remaining)
	req.False(deleted)

	remaining, deleted = rooms.Leave("missing", "a")
	req.Nil(remaining)
	req.False(deleted)
	req.Equal([]ConnID{"a"}, rooms.Members("abc"))
}

func TestRoomTable_Leave_OnlyOneCallDeletes(t *testing.T) {
	req := require.New(t)
	rooms := NewRoomTable()
	rooms.Join("abc", "a")

	// Given the last member already left
	_, deleted := rooms.Leave("abc", "a")
	req.True(deleted)

	// When it leaves again
	remaining, deleted := rooms.Leave("abc", "a")

	// Then nothing is reported as deleted
	req.Nil(remaining)
	req.False(deleted)
}

func TestRoomTable_PeersOf(t *testing.T) {
	req := require.New(t)
	rooms := NewRoomTable()
	rooms.Join("abc", "a")

	req.Empty(rooms.PeersOf("abc", "a"))

	rooms.Join("abc", "b")
	req.Equal([]ConnID{"b"}, rooms.PeersOf("abc", "a"))
	req.Equal([]ConnID{"a"}, rooms.PeersOf("abc", "b"))
	req.Empty(rooms.PeersOf("missing", "a"))
}

func TestRoomTable_Snapshot(t *testing.T) {
	req := require.New(t)
	rooms := NewRoomTable()
	rooms.Join("b-room", "a")
	rooms.Join("a-room", "b")
	rooms.Join("a-room", "c")

	req.Equal([]RoomSize{
		{RoomID: "a-room", Members: 2},
		{RoomID: "b-room", Members: 1},
	}, rooms.Snapshot())
}

func TestRoomTable_Join_ConcurrentJoinersToEmptyRoom(t *testing.T) {
	req := require.New(t)

	for round := 0; round < 50; round++ {
		rooms := NewRoomTable()
		roomID := fmt.Sprintf("room-%d", round)

		const joiners = 8
		results := make([]JoinResult, joiners)

		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < joiners; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				results[i] = rooms.Join(roomID, ConnID(fmt.Sprintf("conn-%d", i)))
			}(i)
		}
		close(start)
		wg.Wait()

		counts := map[JoinResult]int{}
		for _, r := range results {
			counts[r]++
		}
		req.Equal(1, counts[Created])
		req.Equal(1, counts[Joined])
		req.Equal(joiners-2, counts[Full])
		req.Len(rooms.Members(roomID), RoomCapacity)
	}
}

func TestRoomTable_ConcurrentJoinLeaveKeepsCapacity(t *testing.T) {
	req := require.New(t)
	rooms := NewRoomTable()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := ConnID(fmt.Sprintf("conn-%d", i))
			for j := 0; j < 100; j++ {
				if rooms.Join("hot", id) != Full {
					assert.LessOrEqual(t, len(rooms.Members("hot")), RoomCapacity)
					rooms.Leave("hot", id)
				}
			}
		}(i)
	}
	wg.Wait()

	req.Nil(rooms.Members("hot"))
	req.Equal(0, rooms.Len())
}
