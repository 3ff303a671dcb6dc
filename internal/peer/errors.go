package peer

import (
	"errors"
	"fmt"
)

var (
	ErrRoomFull         = errors.New("room is full")
	ErrPeerDisconnected = errors.New("peer disconnected")
	ErrSignalingError   = errors.New("signaling server error")
	ErrConnectionClosed = errors.New("signaling connection closed")
	ErrUnexpectedSignal = errors.New("unexpected signal")
	ErrChannelNotOpen   = errors.New("channel not open")
	ErrUnknownFrame     = errors.New("unknown frame type")
)

// Error describes a failed peer operation.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}
