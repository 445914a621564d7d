package capture

import "time"

// Option applies a configuration option to a Replay device.
type Option func(*Replay)

// WithFrameSize sets the geometry reported on every frame.
func WithFrameSize(width, height int) Option {
	return func(r *Replay) {
		if width > 0 && height > 0 {
			r.width = width
			r.height = height
		}
	}
}

// WithLoop restarts the recording from the beginning once it is exhausted.
func WithLoop(loop bool) Option {
	return func(r *Replay) {
		r.loop = loop
	}
}

// WithClock overrides the clock stamped on frames.
func WithClock(now func() time.Time) Option {
	return func(r *Replay) {
		if now != nil {
			r.now = now
		}
	}
}
