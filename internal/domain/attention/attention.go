// Package attention classifies one metrics sample into an attention state.
//
// Classification is a pure function of the sample, the closed-eye streak
// carried over from the previous tick and the thresholds. The streak is a
// hysteresis counter: the eyes must stay below the EAR threshold for more
// than MaxConsecutiveClosed sampled ticks before the subject is called
// asleep, so a single blink never produces StateSleeping.
package attention

import (
	"math"

	"github.com/okian/attend/internal/domain/model"
)

// Default thresholds.
const (
	DefaultEARThreshold         = 0.2
	DefaultYawThreshold         = 25.0
	DefaultPitchThreshold       = 25.0
	DefaultMaxConsecutiveClosed = 3
)

// Thresholds parameterize the classifier.
type Thresholds struct {
	EARThreshold         float64 // average EAR below this counts as closed
	YawThreshold         float64 // degrees; |yaw| above this is looking away
	PitchThreshold       float64 // degrees; |pitch| above this is looking away
	MaxConsecutiveClosed int     // streak must exceed this to report sleeping
}

// DefaultThresholds returns the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		EARThreshold:         DefaultEARThreshold,
		YawThreshold:         DefaultYawThreshold,
		PitchThreshold:       DefaultPitchThreshold,
		MaxConsecutiveClosed: DefaultMaxConsecutiveClosed,
	}
}

// Classify maps a sample and the previous closed-eye streak to a state and
// the new streak. Rules are checked in priority order; the first match wins.
func Classify(s model.MetricsSample, streak int, th Thresholds) (model.State, int) {
	if !s.FacePresent {
		return model.StateNotPresent, 0
	}

	if math.Abs(s.Yaw) > th.YawThreshold || math.Abs(s.Pitch) > th.PitchThreshold {
		return model.StateLookingAway, 0
	}

	if streak < 0 {
		streak = 0
	}
	if s.EARAverage() < th.EARThreshold {
		streak++
	} else {
		streak = 0
	}

	if streak > th.MaxConsecutiveClosed {
		return model.StateSleeping, streak
	}
	return model.StateAttentive, streak
}

// Classifier holds thresholds together with the streak memory for callers
// that want a stateful object. It is not safe for concurrent use.
type Classifier struct {
	th     Thresholds
	streak int
}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithThresholds replaces all thresholds.
func WithThresholds(th Thresholds) Option {
	return func(c *Classifier) {
		c.th = th
	}
}

// WithEARThreshold sets the closed-eye threshold.
func WithEARThreshold(v float64) Option {
	return func(c *Classifier) {
		if v > 0 {
			c.th.EARThreshold = v
		}
	}
}

// WithMaxConsecutiveClosed sets how many closed ticks are tolerated.
func WithMaxConsecutiveClosed(n int) Option {
	return func(c *Classifier) {
		if n >= 0 {
			c.th.MaxConsecutiveClosed = n
		}
	}
}

// New creates a Classifier with default thresholds.
func New(opts ...Option) *Classifier {
	c := &Classifier{th: DefaultThresholds()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify classifies s and advances the internal streak.
func (c *Classifier) Classify(s model.MetricsSample) model.State {
	var state model.State
	state, c.streak = Classify(s, c.streak, c.th)
	return state
}

// Streak returns the current closed-eye streak.
func (c *Classifier) Streak() int { return c.streak }

// Thresholds returns the configured thresholds.
func (c *Classifier) Thresholds() Thresholds { return c.th }

// Reset clears the streak.
func (c *Classifier) Reset() { c.streak = 0 }
