package scenario

import (
	"context"
	"fmt"
	"os"

	"github.com/okian/attend/internal/adapters/capture"
	"github.com/okian/attend/internal/domain/attention"
	"github.com/okian/attend/internal/domain/model"
	"github.com/okian/attend/pkg/logger"
)

// Expected returns the states the pipeline should log for records. Missed
// frames are classified as absent; a lost device ends the run.
func Expected(records []capture.Record, th attention.Thresholds) []model.State {
	states := make([]model.State, 0, len(records))
	streak := 0
	for _, rec := range records {
		if rec.Lost {
			break
		}
		sample := rec.MetricsSample
		if rec.Missed {
			sample = model.Absent()
		}
		var state model.State
		state, streak = attention.Classify(sample, streak, th)
		states = append(states, state)
	}
	return states
}

// ReadEventLog reads the records written to an event log.
func ReadEventLog(path string) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close event log", logger.Error(err))
		}
	}()

	return decodeEventLog(f)
}

// Verify compares logged records with the expected states and the missed
// frames of the recording. It returns the number of mismatching ticks.
func Verify(ctx context.Context, records []capture.Record, expected []model.State, logged []model.Record, verbose bool) (int, error) {
	mismatches := 0
	if len(logged) != len(expected) {
		logger.Get().Warn(ctx, "event log length differs",
			logger.Int("expected", len(expected)),
			logger.Int("logged", len(logged)))
		mismatches += abs(len(logged) - len(expected))
	}

	n := min(len(logged), len(expected))
	for i := 0; i < n; i++ {
		stateOK := logged[i].State == expected[i].String()
		flagOK := logged[i].CaptureFailed == records[i].Missed
		if stateOK && flagOK {
			continue
		}
		mismatches++
		if verbose {
			logger.Get().Warn(ctx, "tick mismatch",
				logger.Int("tick", i+1),
				logger.String("expected", expected[i].String()),
				logger.String("logged", logged[i].State),
				logger.Bool("capture_failed", logged[i].CaptureFailed))
		}
	}

	if mismatches > 0 {
		return mismatches, fmt.Errorf("%w: %d of %d ticks differ", ErrMismatch, mismatches, len(expected))
	}
	return 0, nil
}

// countStates tallies states by name.
func countStates(states []model.State) map[string]int {
	counts := make(map[string]int, len(model.StateNames()))
	for _, s := range states {
		counts[s.String()]++
	}
	return counts
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
