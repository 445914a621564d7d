// Package scenario generates replay recordings of simulated sessions and
// checks that the pipeline classifies them as expected.
package scenario

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/attend/pkg/logger"
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "scenario_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the scenario tool.
func ShowHelp() {
	os.Stdout.WriteString(`Attention Scenario Tool
=======================

Generates a replay recording of a simulated session and optionally plays it
through the pipeline, checking every logged state.

Usage:
  go run ./cmd/scenario [options]

Options:
  -plan string
        Comma separated kind:ticks segments (default "` + DefaultPlan + `")
        Kinds: attentive, blink, doze, look_away, absent, missed, lost
  -seed uint
        Random seed (default 1)
  -output string
        Replay file to write (default "scenario.jsonl")
  -events string
        Event log for the replay run (default: <output>.events.jsonl)
  -replay
        Run the pipeline over the recording and verify the event log
  -log string
        Log file for tool output (default: scenario_log_TIMESTAMP.log)
  -verbose
        Log every mismatching tick
  -help
        Show this help message

Pipeline thresholds come from the usual ATTEND_* environment and
ATTEND_CONFIG file.

Examples:
  # Write the default recording
  go run ./cmd/scenario

  # Replay a dozing session and verify it
  go run ./cmd/scenario -plan attentive:3,doze:8,attentive:3 -replay

  # Feed the recording to the monitor in real time
  ATTEND_CAPTURE_SOURCE=replay:scenario.jsonl go run ./cmd
`)
}
