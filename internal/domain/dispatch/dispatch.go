// Package dispatch decides which alert channels fire on each tick.
//
// The Dispatcher is pure bookkeeping: it remembers the last logged state,
// the intervention flag and the alert cooldowns, and turns one classified
// state plus the window verdict into a Plan. Executing the plan is up to the
// caller. A Dispatcher belongs to a single sampling loop and is not safe for
// concurrent use.
package dispatch

import (
	"github.com/okian/attend/internal/domain/debounce"
	"github.com/okian/attend/internal/domain/model"
)

// DefaultSleepAlertCooldown is the voice alert cooldown in ticks.
const DefaultSleepAlertCooldown = 10

// Plan lists the channel actions for one tick.
type Plan struct {
	Log          bool       // always true
	StateChanged bool       // state differs from the previous logged state
	Tone         model.Tone // ToneNone when no tone should play
	Notify       bool       // notify the new state
	Intervene    bool       // rising edge of the window verdict
	Voice        bool       // speak a wake-up message
	// VoiceSuppressed is set when a voice alert was due but still cooling down.
	VoiceSuppressed bool
}

// Channels returns the asynchronous channels the plan fires, in dispatch order.
func (p Plan) Channels() []model.Channel {
	var out []model.Channel
	if p.Tone != model.ToneNone {
		out = append(out, model.ChannelTone)
	}
	if p.Notify {
		out = append(out, model.ChannelNotification)
	}
	if p.Intervene {
		out = append(out, model.ChannelIntervention)
	}
	if p.Voice {
		out = append(out, model.ChannelVoice)
	}
	return out
}

// Dispatcher turns per-tick states into channel plans.
type Dispatcher struct {
	last         model.State
	hasLast      bool
	intervening  bool
	voice        bool
	cooldowns    *debounce.Cooldowns
	cooldownOpts []debounce.Option
}

// New creates a Dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		voice: true,
		cooldownOpts: []debounce.Option{
			debounce.WithCooldown(debounce.ClassSleepAlert, DefaultSleepAlertCooldown),
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.cooldowns = debounce.New(d.cooldownOpts...)
	return d
}

// Decide records state and the window verdict for this tick and returns the
// resulting plan. Cooldowns advance by one tick on every call.
func (d *Dispatcher) Decide(state model.State, shouldIntervene bool) Plan {
	p := Plan{Log: true}

	if state == model.StateNotPresent {
		d.cooldowns.Reset()
	}

	if !d.hasLast || state != d.last {
		p.StateChanged = true
		p.Tone = model.ToneFor(state)
		p.Notify = true

		if d.voice && state == model.StateSleeping {
			if d.cooldowns.TryFire(debounce.ClassSleepAlert) {
				p.Voice = true
			} else {
				p.VoiceSuppressed = true
			}
		}

		d.last = state
		d.hasLast = true
	}

	switch {
	case shouldIntervene && !d.intervening:
		p.Intervene = true
		d.intervening = true
	case !shouldIntervene:
		d.intervening = false
	}

	d.cooldowns.Tick()
	return p
}

// Intervening reports whether an intervention episode is being signaled.
func (d *Dispatcher) Intervening() bool {
	return d.intervening
}

// LastState returns the previous logged state and whether one exists.
func (d *Dispatcher) LastState() (model.State, bool) {
	return d.last, d.hasLast
}

// Cooldown returns the ticks left before class may fire again.
func (d *Dispatcher) Cooldown(class debounce.Class) int {
	return d.cooldowns.Remaining(class)
}

// Reset forgets the last state, clears the intervention flag and all cooldowns.
func (d *Dispatcher) Reset() {
	d.last = model.StateNotPresent
	d.hasLast = false
	d.intervening = false
	d.cooldowns.Reset()
}
