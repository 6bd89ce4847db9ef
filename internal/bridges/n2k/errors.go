package n2k

import "errors"

// Domain errors for the N2K bridge package.
var (
	// ErrInvalidMessage is returned when an inbound payload is not a
	// decodable analyzer message.
	ErrInvalidMessage = errors.New("n2k: invalid inbound message")

	// ErrAlreadyStarted is returned by Start on a running bridge.
	ErrAlreadyStarted = errors.New("n2k: bridge already started")

	// ErrStopped is returned by Start after Stop.
	ErrStopped = errors.New("n2k: bridge stopped")

	// ErrQueueFull is returned when an inbound message arrives while the
	// dispatch queue is full.
	ErrQueueFull = errors.New("n2k: dispatch queue full")

	// ErrPublishFailed wraps a failure to hand an output message to MQTT.
	ErrPublishFailed = errors.New("n2k: publish failed")
)
