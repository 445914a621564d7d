package capture

import "errors"

// Sentinel errors for capture devices and analyzers.
var (
	// ErrDeviceUnavailable means the device could not be opened at all.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrDeviceLost means an opened device went away permanently.
	ErrDeviceLost = errors.New("capture device lost")
	// ErrFrameMissed is a transient read failure; the next read may succeed.
	ErrFrameMissed = errors.New("capture frame missed")
	// ErrEndOfStream is returned by finite sources once every frame was read.
	ErrEndOfStream = errors.New("capture stream ended")
	// ErrNoSample means the analyzer could not derive metrics from the frame.
	ErrNoSample = errors.New("frame carries no sample")
	// ErrUnsupportedSource means the configured capture source is not known.
	ErrUnsupportedSource = errors.New("unsupported capture source")
)
