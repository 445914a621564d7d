// Package capture defines the frame source and metrics analyzer consumed by
// the pipeline, and a replay implementation that feeds recorded samples.
package capture

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/attend/internal/domain/model"
)

// Default frame geometry.
const (
	DefaultFrameWidth  = 640
	DefaultFrameHeight = 360
)

// ReplayScheme prefixes capture sources that read a recorded sample file.
const ReplayScheme = "replay:"

// Frame is one captured image. Replayed frames carry the recorded sample
// instead of pixels.
type Frame struct {
	Seq        int64
	Width      int
	Height     int
	CapturedAt time.Time
	Pixels     []byte
	Sample     *model.MetricsSample
}

// Device is a frame source such as a camera.
type Device interface {
	// Open acquires the device. Failures wrap ErrDeviceUnavailable.
	Open(ctx context.Context) error
	// Read returns the next frame. Transient failures wrap ErrFrameMissed,
	// permanent ones ErrDeviceLost.
	Read(ctx context.Context) (Frame, error)
	// Release frees the device. It is safe to call more than once.
	Release() error
}

// Analyzer turns a frame into head pose and eye metrics. A frame without a
// face yields a sample with FacePresent false and no error.
type Analyzer interface {
	Analyze(ctx context.Context, f Frame) (model.MetricsSample, error)
}

// SampleAnalyzer returns the sample attached to replayed frames.
type SampleAnalyzer struct{}

// Analyze implements Analyzer.
func (SampleAnalyzer) Analyze(_ context.Context, f Frame) (model.MetricsSample, error) { //nolint:gocritic // hugeParam: frames are values
	if f.Sample == nil {
		return model.MetricsSample{}, fmt.Errorf("frame %d: %w", f.Seq, ErrNoSample)
	}
	return *f.Sample, nil
}

// FromSource builds the device named by source. Only replay sources
// ("replay:<path>") are built in; camera drivers plug in through Device.
func FromSource(source string, opts ...Option) (Device, error) {
	switch {
	case strings.HasPrefix(source, ReplayScheme):
		path := strings.TrimPrefix(source, ReplayScheme)
		if path == "" {
			return nil, fmt.Errorf("%w: empty replay path", ErrUnsupportedSource)
		}
		return NewReplayFile(path, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, source)
	}
}
