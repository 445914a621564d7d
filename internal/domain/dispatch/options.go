package dispatch

import "github.com/okian/attend/internal/domain/debounce"

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithSleepAlertCooldown sets the number of ticks a voice alert is held back
// after it fired.
func WithSleepAlertCooldown(ticks int) Option {
	return func(d *Dispatcher) {
		d.cooldownOpts = append(d.cooldownOpts, debounce.WithCooldown(debounce.ClassSleepAlert, ticks))
	}
}

// WithoutVoice disables the voice alert decision entirely.
func WithoutVoice() Option {
	return func(d *Dispatcher) {
		d.voice = false
	}
}
