package cnst

import "errors"

var (
	// ErrSessionClosed is returned when sending to a session whose teardown has begun
	ErrSessionClosed = errors.New("session closed")
	// ErrSessionQueueFull is returned when a session's outbound queue is full
	ErrSessionQueueFull = errors.New("session queue full")
	// ErrBusClosed is returned when publishing to a closed bus
	ErrBusClosed = errors.New("bus closed")
	// ErrInvalidEvent is returned for bus events missing scope, target or stream
	ErrInvalidEvent = errors.New("invalid event")
)
