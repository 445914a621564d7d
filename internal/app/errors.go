package app

import "errors"

// Sentinel errors for the pipeline lifecycle.
var (
	ErrAlreadyStarted = errors.New("pipeline already started")
	ErrNotRunning     = errors.New("pipeline not running")
	ErrStopped        = errors.New("pipeline stopped")
	// ErrCaptureFailures is returned when too many reads in a row failed.
	ErrCaptureFailures = errors.New("too many consecutive capture failures")
)
