package app

import (
	"context"
	"time"

	"github.com/okian/attend/internal/adapters/capture"
	"github.com/okian/attend/internal/adapters/notify"
	"github.com/okian/attend/internal/domain/model"
	"github.com/okian/attend/pkg/logger"
)

// EventLog durably records one event per tick.
type EventLog interface {
	Append(ctx context.Context, ev model.Event) error
	Close() error
}

// TonePlayer plays alert tones.
type TonePlayer interface {
	Play(ctx context.Context, kind model.Tone) error
}

// Announcer speaks a wake-up message.
type Announcer interface {
	Announce(ctx context.Context) error
}

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithDevice sets the capture device. By default it is built from the
// configured capture source.
func WithDevice(d capture.Device) Option {
	return func(p *Pipeline) {
		if d != nil {
			p.device = d
		}
	}
}

// WithAnalyzer sets the frame analyzer.
func WithAnalyzer(a capture.Analyzer) Option {
	return func(p *Pipeline) {
		if a != nil {
			p.analyzer = a
		}
	}
}

// WithEventLog replaces the event log writer.
func WithEventLog(l EventLog) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.events = l
		}
	}
}

// WithTonePlayer replaces the tone channel.
func WithTonePlayer(t TonePlayer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tone = t
		}
	}
}

// WithNotifier replaces the notification backend.
func WithNotifier(n notify.Notifier) Option {
	return func(p *Pipeline) {
		if n != nil {
			p.notifier = n
		}
	}
}

// WithAnnouncer replaces the voice announcer.
func WithAnnouncer(a Announcer) Option {
	return func(p *Pipeline) {
		if a != nil {
			p.announcer = a
		}
	}
}

// WithClock overrides the wall clock used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithIDGenerator overrides how run and event IDs are generated.
func WithIDGenerator(gen func() string) Option {
	return func(p *Pipeline) {
		if gen != nil {
			p.newID = gen
		}
	}
}

// WithResultHandler observes every asynchronous channel result. It is
// called from worker goroutines.
func WithResultHandler(h func(model.ChannelResult)) Option {
	return func(p *Pipeline) {
		if h != nil {
			p.onResult = h
		}
	}
}

// WithLogger sets a custom logger for the pipeline.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}
