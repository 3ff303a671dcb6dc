package signaling

import "errors"

var (
	ErrEmptyRoomID      = errors.New("room id must not be empty")
	ErrMalformedMessage = errors.New("malformed message")
)
