package capture

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/okian/attend/internal/domain/model"
)

// Record is one line of a replay file: a sample plus optional failure
// markers used to rehearse capture errors.
type Record struct {
	model.MetricsSample
	Missed bool `json:"missed,omitempty"` // read fails with ErrFrameMissed
	Lost   bool `json:"lost,omitempty"`   // read fails with ErrDeviceLost
}

// Replay is a Device that plays back recorded samples.
type Replay struct {
	path   string
	width  int
	height int
	loop   bool
	now    func() time.Time

	mu       sync.Mutex
	records  []Record
	next     int
	seq      int64
	opened   bool
	released bool
}

// NewReplayFile creates a device that loads newline-delimited JSON records
// from path on Open.
func NewReplayFile(path string, opts ...Option) *Replay {
	r := &Replay{
		path:   path,
		width:  DefaultFrameWidth,
		height: DefaultFrameHeight,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewScripted creates a device that plays back records held in memory.
func NewScripted(records []Record, opts ...Option) *Replay {
	r := NewReplayFile("", opts...)
	r.records = append([]Record(nil), records...)
	return r
}

// Open loads the recording.
func (r *Replay) Open(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.path != "" {
		recs, err := ReadRecords(r.path)
		if err != nil {
			return fmt.Errorf("open replay %s: %w: %w", r.path, ErrDeviceUnavailable, err)
		}
		r.records = recs
	}
	r.next = 0
	r.opened = true
	r.released = false
	return nil
}

// Read returns the next recorded frame.
func (r *Replay) Read(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.released:
		return Frame{}, fmt.Errorf("replay read after release: %w", ErrDeviceLost)
	case !r.opened:
		return Frame{}, fmt.Errorf("replay read before open: %w", ErrDeviceUnavailable)
	}

	if r.next >= len(r.records) {
		if !r.loop || len(r.records) == 0 {
			return Frame{}, ErrEndOfStream
		}
		r.next = 0
	}

	rec := r.records[r.next]
	r.next++
	r.seq++

	switch {
	case rec.Lost:
		return Frame{}, fmt.Errorf("replay frame %d: %w", r.seq, ErrDeviceLost)
	case rec.Missed:
		return Frame{}, fmt.Errorf("replay frame %d: %w", r.seq, ErrFrameMissed)
	}

	sample := rec.MetricsSample
	return Frame{
		Seq:        r.seq,
		Width:      r.width,
		Height:     r.height,
		CapturedAt: r.now(),
		Sample:     &sample,
	}, nil
}

// Release frees the recording.
func (r *Replay) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.released = true
	r.opened = false
	return nil
}

// Released reports whether Release has been called since the last Open.
func (r *Replay) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

// ReadRecords parses a replay file. Blank lines and lines starting with '#'
// are skipped.
func ReadRecords(path string) ([]Record, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return DecodeRecords(f)
}

// DecodeRecords parses newline-delimited replay records from rd.
func DecodeRecords(rd io.Reader) ([]Record, error) {
	var out []Record
	sc := bufio.NewScanner(rd)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return out, nil
}

// WriteRecords writes records as newline-delimited JSON.
func WriteRecords(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}
