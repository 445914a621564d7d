// Package voice speaks wake-up messages when the subject falls asleep.
// Speech synthesis backends plug in through Speaker.
package voice

import (
	"context"
	"sync"

	"github.com/okian/attend/pkg/logger"
)

// DefaultMessages are spoken in turn.
var DefaultMessages = []string{ //nolint:gochecknoglobals // immutable defaults
	"Hey, wake up! You're falling asleep at your desk.",
	"Snap out of it! Time to focus.",
	"Eyes open, please. Back to your task.",
	"You're dozing off. Stand up and stretch, then get back to work.",
	"Sleeping again? Let's get back to it.",
}

// Speaker turns text into speech.
type Speaker interface {
	Say(ctx context.Context, text string) error
}

// LogSpeaker writes the message to the log instead of speaking it.
type LogSpeaker struct {
	Logger logger.Logger
}

// Say implements Speaker.
func (s LogSpeaker) Say(ctx context.Context, text string) error {
	l := s.Logger
	if l == nil {
		l = logger.Get().Named("voice")
	}
	l.Info(ctx, "voice alert", logger.String("message", text))
	return nil
}

// Announcer speaks messages from a fixed list in round-robin order.
type Announcer struct {
	speaker  Speaker
	messages []string

	mu   sync.Mutex
	next int
}

// NewAnnouncer creates an Announcer. An empty list uses DefaultMessages.
func NewAnnouncer(speaker Speaker, messages []string) *Announcer {
	if speaker == nil {
		speaker = LogSpeaker{}
	}
	if len(messages) == 0 {
		messages = DefaultMessages
	}
	return &Announcer{
		speaker:  speaker,
		messages: append([]string(nil), messages...),
	}
}

// Next returns the message to speak and advances the rotation.
func (a *Announcer) Next() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	msg := a.messages[a.next]
	a.next = (a.next + 1) % len(a.messages)
	return msg
}

// Announce speaks the next message.
func (a *Announcer) Announce(ctx context.Context) error {
	return a.speaker.Say(ctx, a.Next())
}
