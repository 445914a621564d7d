package scenario

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/okian/attend/internal/adapters/capture"
	"github.com/okian/attend/internal/app"
	"github.com/okian/attend/internal/config"
	"github.com/okian/attend/internal/domain/attention"
	"github.com/okian/attend/pkg/logger"
)

// replayInterval paces replay runs; recordings are not played in real time.
const replayInterval = 0.001

// Run generates the recording and, when cfg.Replay is set, plays it through
// the pipeline and verifies the event log.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	pcfg := cfg.Pipeline
	if pcfg == nil {
		pcfg = config.New()
	}

	logger.Get().Info(ctx, "starting scenario",
		logger.String("plan", cfg.Plan),
		logger.Any("seed", cfg.Seed),
		logger.String("output", cfg.Output),
		logger.Bool("replay", cfg.Replay))

	// Step 1: Parse and generate
	segments, err := ParsePlan(cfg.Plan)
	if err != nil {
		return nil, err
	}
	records := Generate(ctx, segments, cfg.Seed)
	stats.Segments = len(segments)
	stats.Ticks = len(records)
	for _, rec := range records {
		if rec.Missed {
			stats.Missed++
		}
	}

	// Step 2: Save the recording
	if err := SaveRecords(ctx, cfg.Output, records); err != nil {
		return nil, fmt.Errorf("saving recording failed: %w", err)
	}

	th := attention.Thresholds{
		EARThreshold:         pcfg.EARThreshold,
		YawThreshold:         pcfg.YawThreshold,
		PitchThreshold:       pcfg.PitchThreshold,
		MaxConsecutiveClosed: pcfg.MaxConsecutiveClosed,
	}
	expected := Expected(records, th)
	stats.Expected = countStates(expected)

	if cfg.Replay {
		// Step 3: Replay through the pipeline
		eventLog := cfg.EventLog
		if eventLog == "" {
			eventLog = strings.TrimSuffix(cfg.Output, ".jsonl") + ".events.jsonl"
		}
		if err := replay(ctx, pcfg, cfg.Output, eventLog); err != nil {
			return nil, fmt.Errorf("replay failed: %w", err)
		}

		// Step 4: Verify the event log
		logged, err := ReadEventLog(eventLog)
		if err != nil {
			return nil, err
		}
		stats.Logged = len(logged)
		stats.Mismatches, err = Verify(ctx, records, expected, logged, cfg.Verbose)
		if err != nil {
			return stats, err
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "scenario completed successfully")
	return stats, nil
}

// replay runs the pipeline over the recording with alert side effects off.
func replay(ctx context.Context, base *config.Config, recording, eventLog string) error {
	if err := os.Remove(eventLog); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove previous event log: %w", err)
	}
	if err := ensureDir(eventLog); err != nil {
		return err
	}

	pcfg := base.WithOverrides(func(c *config.Config) {
		c.CaptureSource = capture.ReplayScheme + recording
		c.EventLogPath = eventLog
		c.FrameProcessInterval = replayInterval
		c.EnableSounds = false
		c.EnableVoice = false
		c.NotificationEndpoint = ""
		// A lost frame ends the recording; missed frames never stop it.
		c.MaxCaptureFailures = int(^uint(0) >> 1)
	})

	p, err := app.New(pcfg)
	if err != nil {
		return err
	}

	err = p.Run(ctx)
	if errors.Is(err, capture.ErrDeviceLost) {
		logger.Get().Info(ctx, "recording ended with a lost device")
		return nil
	}
	return err
}

// displayFinalStats logs the final scenario statistics.
func displayFinalStats(stats *Stats) {
	fields := []logger.Field{
		logger.Int("segments", stats.Segments),
		logger.Int("ticks", stats.Ticks),
		logger.Int("missed", stats.Missed),
		logger.Int("logged", stats.Logged),
		logger.Int("mismatches", stats.Mismatches),
		logger.String("duration", stats.Duration.String()),
	}
	for name, n := range stats.Expected {
		fields = append(fields, logger.Int("expected_"+name, n))
	}
	logger.Get().Info(context.Background(), "final statistics", fields...)
}
