package model

import "time"

// Channel names an alert output.
type Channel string

// Alert channels in their per-tick dispatch order.
const (
	ChannelLog          Channel = "log"
	ChannelTone         Channel = "tone"
	ChannelNotification Channel = "notification"
	ChannelIntervention Channel = "intervention"
	ChannelVoice        Channel = "voice"
)

// ChannelResult reports the outcome of one channel invocation.
type ChannelResult struct {
	Channel  Channel
	EventID  string
	OK       bool
	Err      error
	Duration time.Duration
}

// Succeeded builds a successful result.
func Succeeded(ch Channel, eventID string, d time.Duration) ChannelResult {
	return ChannelResult{Channel: ch, EventID: eventID, OK: true, Duration: d}
}

// Failed builds a failed result.
func Failed(ch Channel, eventID string, err error, d time.Duration) ChannelResult {
	return ChannelResult{Channel: ch, EventID: eventID, Err: err, Duration: d}
}

// Tone selects the audible cue played for a state change.
type Tone string

// Tone kinds. ToneNone means no tone is played.
const (
	ToneNone        Tone = ""
	ToneAlert       Tone = "alert"       // short, higher pitch
	ToneDistraction Tone = "distraction" // longer, lower pitch
)

// ToneFor maps a newly entered state to its tone.
func ToneFor(s State) Tone {
	switch {
	case s == StateSleeping:
		return ToneDistraction
	case s.Negative():
		return ToneAlert
	default:
		return ToneNone
	}
}
