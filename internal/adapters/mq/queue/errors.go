package queue

import "errors"

// Sentinel errors returned by Enqueue.
var (
	ErrQueueFull = errors.New("dispatch queue full")
	ErrClosed    = errors.New("dispatch queue closed")
)
