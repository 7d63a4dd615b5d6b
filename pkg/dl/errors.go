package dl

import "errors"

var (
	// ErrMessageTooLarge indicates a Send larger than MaxMessageSize.
	// The queue is left unchanged.
	ErrMessageTooLarge = errors.New("message too large")
	// ErrQueueFull indicates the outbound ring cannot hold every
	// fragment of the message. Nothing is enqueued partially.
	ErrQueueFull = errors.New("outbound queue full")
	// ErrShortFrame indicates a received buffer smaller than FrameSize.
	ErrShortFrame = errors.New("short frame")
)
