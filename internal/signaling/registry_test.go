package signaling

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Register_StartsUnjoined(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	id := registry.Register()
	other := registry.Register()

	req.NotEmpty(id)
	req.NotEqual(id, other)
	req.Equal(2, registry.Len())

	conn, ok := registry.Lookup(id)
	req.True(ok)
	req.Equal(id, conn.ID)
	req.Equal(StateUnjoined, conn.State)
	req.Empty(conn.RoomID)
	req.False(conn.ConnectedAt.IsZero())
}

func TestRegistry_Join_OnlyFromUnjoined(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	id := registry.Register()

	req.True(registry.Join(id, "abc"))
	req.False(registry.Join(id, "xyz"))

	conn, _ := registry.Lookup(id)
	req.Equal(StateJoined, conn.State)
	req.Equal("abc", conn.RoomID)

	req.False(registry.Join("unknown", "abc"))
}

func TestRegistry_Close_KeepsEntry(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	id := registry.Register()

	req.True(registry.Close(id))

	conn, ok := registry.Lookup(id)
	req.True(ok)
	req.Equal(StateClosed, conn.State)
	req.False(registry.Join(id, "abc"))
}

func TestRegistry_Unregister_IsIdempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	id := registry.Register()
	registry.Join(id, "abc")

	conn, ok := registry.Unregister(id)
	req.True(ok)
	req.Equal("abc", conn.RoomID)
	req.Equal(StateJoined, conn.State)

	_, ok = registry.Unregister(id)
	req.False(ok)
	_, ok = registry.Lookup(id)
	req.False(ok)
	req.Equal(0, registry.Len())

	_, ok = registry.Unregister("never-registered")
	req.False(ok)
}

func TestState_String(t *testing.T) {
	require.Equal(t, "unjoined", StateUnjoined.String())
	require.Equal(t, "joined", StateJoined.String())
	require.Equal(t, "closed", StateClosed.String())
	require.Equal(t, "unknown", State(42).String())
}
