package peer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	assert.Equal(t, "join room: room is full", NewError("join room", ErrRoomFull).Error())
	assert.Equal(t, "relay: signaling server error (room id is empty)",
		WrapError("relay", ErrSignalingError, "room id is empty").Error())
}

func TestError_Unwrap(t *testing.T) {
	err := fmt.Errorf("session: %w", NewError("join room", ErrRoomFull))

	assert.ErrorIs(t, err, ErrRoomFull)
	assert.NotErrorIs(t, err, ErrSignalingError)

	var perr *Error
	assert.True(t, errors.As(err, &perr))
	assert.Equal(t, "join room", perr.Op)
}
