// Package eventlog appends one JSON object per tick to the event log file.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/okian/attend/internal/domain/model"
	"github.com/okian/attend/pkg/logger"
)

// DefaultPath is the event log location when none is configured.
const DefaultPath = "events.jsonl"

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Writer appends event records to a newline-delimited JSON file. The file
// and its parent directories are created on the first write.
type Writer struct {
	path   string
	sync   bool
	logger logger.Logger

	mu     sync.Mutex
	file   *os.File
	closed bool
	lines  int64
}

// Option applies a configuration option to the Writer.
type Option func(*Writer)

// WithSync makes every append fsync the file before returning.
func WithSync(enabled bool) Option {
	return func(w *Writer) {
		w.sync = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a Writer for path.
func New(path string, opts ...Option) *Writer {
	if path == "" {
		path = DefaultPath
	}
	w := &Writer{
		path:   path,
		logger: logger.Get().Named("eventlog"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Path returns the log file path.
func (w *Writer) Path() string {
	return w.path
}

// Append writes ev as one line. The record is on disk when Append returns.
func (w *Writer) Append(ctx context.Context, ev model.Event) error { //nolint:gocritic // hugeParam: events are value snapshots
	line, err := json.Marshal(ev.Record())
	if err != nil {
		return fmt.Errorf("encode event %s: %w", ev.ID, err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("append to %s: %w", w.path, os.ErrClosed)
	}
	if w.file == nil {
		if err := w.open(ctx); err != nil {
			return err
		}
	}

	if _, err := w.file.Write(line); err != nil {
		return fmt.Errorf("append to %s: %w", w.path, err)
	}
	if w.sync {
		if err := w.file.Sync(); err != nil {
			return fmt.Errorf("sync %s: %w", w.path, err)
		}
	}
	w.lines++
	return nil
}

// Lines returns how many records this Writer appended.
func (w *Writer) Lines() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lines
}

// Close closes the file. It is safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *Writer) open(ctx context.Context) error {
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("create event log dir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePerm) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return fmt.Errorf("open event log %s: %w", w.path, err)
	}
	w.file = f
	w.logger.Debug(ctx, "event log opened", logger.String("path", w.path))
	return nil
}
