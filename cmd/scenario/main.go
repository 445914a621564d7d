package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/attend/internal/config"
	"github.com/okian/attend/internal/scenario"
)

// Default configuration constants.
const (
	defaultSeed    = 1
	defaultOutput  = "scenario.jsonl"
	defaultTimeout = 10 * time.Minute
)

func main() {
	var (
		plan     = flag.String("plan", scenario.DefaultPlan, "Comma separated kind:ticks segments")
		seed     = flag.Uint64("seed", defaultSeed, "Random seed")
		output   = flag.String("output", defaultOutput, "Replay file to write")
		eventLog = flag.String("events", "", "Event log for the replay run (default: <output>.events.jsonl)")
		replay   = flag.Bool("replay", false, "Run the pipeline over the recording and verify the event log")
		logFile  = flag.String("log", "", "Log file for tool output (default: scenario_log_TIMESTAMP.log)")
		verbose  = flag.Bool("verbose", false, "Log every mismatching tick")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		scenario.ShowHelp()
		return
	}

	// Setup logging
	if err := scenario.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	pcfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1) //nolint:gocritic // exitAfterDefer: nothing to clean up yet
	}

	cfg := &scenario.Config{
		Plan:     *plan,
		Seed:     *seed,
		Output:   *output,
		EventLog: *eventLog,
		Replay:   *replay,
		LogFile:  *logFile,
		Verbose:  *verbose,
		Pipeline: pcfg,
	}

	if _, err := scenario.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Scenario failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
