// Package tone plays the audible alert cues.
package tone

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/okian/attend/internal/domain/model"
	"github.com/okian/attend/pkg/logger"
)

// Kind selects which tone to play.
type Kind = model.Tone

// FilePlaceholder in a tone command is replaced by the WAV file path. When
// absent the path is appended as the last argument.
const FilePlaceholder = "{file}"

// ErrNoCommand is returned by a CommandPlayer with an empty command line.
var ErrNoCommand = errors.New("tone command not configured")

// Player renders a tone.
type Player interface {
	Play(ctx context.Context, kind Kind) error
}

// Bell writes the terminal bell character.
type Bell struct {
	Out io.Writer
}

// Play implements Player.
func (b Bell) Play(_ context.Context, _ Kind) error {
	out := b.Out
	if out == nil {
		out = os.Stdout
	}
	_, err := io.WriteString(out, "\a")
	return err
}

// CommandPlayer synthesizes a WAV file and hands it to an external player
// such as "aplay -q" or "afplay".
type CommandPlayer struct {
	command    []string
	sampleRate int
	dir        string

	mu    sync.Mutex
	files map[Kind]string
}

// NewCommandPlayer parses command into program and arguments.
func NewCommandPlayer(command string) *CommandPlayer {
	return &CommandPlayer{
		command:    strings.Fields(command),
		sampleRate: DefaultSampleRate,
		dir:        os.TempDir(),
		files:      make(map[Kind]string),
	}
}

// Play implements Player. It blocks until the external player exits.
func (p *CommandPlayer) Play(ctx context.Context, kind Kind) error {
	if len(p.command) == 0 {
		return ErrNoCommand
	}
	path, err := p.file(kind)
	if err != nil {
		return err
	}

	args := make([]string, 0, len(p.command))
	substituted := false
	for _, a := range p.command[1:] {
		if strings.Contains(a, FilePlaceholder) {
			a = strings.ReplaceAll(a, FilePlaceholder, path)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, path)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.command[0], args...) //nolint:gosec // command comes from operator configuration
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("tone command %s: %w: %s", p.command[0], err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Close removes the synthesized files.
func (p *CommandPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for kind, path := range p.files {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
		delete(p.files, kind)
	}
	return errors.Join(errs...)
}

// file returns the cached WAV for kind, rendering it on first use.
func (p *CommandPlayer) file(kind Kind) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if path, ok := p.files[kind]; ok {
		return path, nil
	}

	f, err := os.CreateTemp(p.dir, "attend-"+string(kind)+"-*.wav")
	if err != nil {
		return "", fmt.Errorf("create tone file: %w", err)
	}
	if err := EncodeWAV(f, Synthesize(kind, p.sampleRate), p.sampleRate); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close tone file: %w", err)
	}
	p.files[kind] = filepath.Clean(f.Name())
	return p.files[kind], nil
}

// Channel is the tone alert channel. It never fails: when the player
// errors once, the channel logs it and uses the fallback from then on.
type Channel struct {
	player   Player
	fallback Player
	enabled  bool
	logger   logger.Logger

	mu       sync.Mutex
	degraded bool
}

// Option applies a configuration option to the Channel.
type Option func(*Channel)

// WithPlayer sets the primary player.
func WithPlayer(p Player) Option {
	return func(c *Channel) {
		if p != nil {
			c.player = p
		}
	}
}

// WithFallback sets the player used after the primary failed.
func WithFallback(p Player) Option {
	return func(c *Channel) {
		if p != nil {
			c.fallback = p
		}
	}
}

// WithEnabled turns sounds on or off.
func WithEnabled(enabled bool) Option {
	return func(c *Channel) {
		c.enabled = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewChannel creates a tone channel. Without a player it rings the bell.
func NewChannel(opts ...Option) *Channel {
	c := &Channel{
		fallback: Bell{},
		enabled:  true,
		logger:   logger.Get().Named("tone"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.player == nil {
		c.player = c.fallback
	}
	return c
}

// Play plays kind and always returns nil. Failures degrade to the fallback.
func (c *Channel) Play(ctx context.Context, kind Kind) error {
	if !c.enabled || kind == model.ToneNone {
		return nil
	}

	c.mu.Lock()
	degraded := c.degraded
	c.mu.Unlock()

	if !degraded {
		err := c.player.Play(ctx, kind)
		if err == nil || ctx.Err() != nil {
			return nil
		}
		c.mu.Lock()
		c.degraded = true
		c.mu.Unlock()
		c.logger.Warn(ctx, "tone player failed, falling back to console bell",
			logger.String("tone", string(kind)),
			logger.Error(err),
		)
	}

	if err := c.fallback.Play(ctx, kind); err != nil {
		c.logger.Debug(ctx, "fallback tone failed", logger.Error(err))
	}
	return nil
}

// Degraded reports whether the channel switched to its fallback.
func (c *Channel) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}
