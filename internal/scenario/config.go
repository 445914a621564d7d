package scenario

import (
	"time"

	"github.com/okian/attend/internal/config"
)

// Config holds configuration for a scenario run.
type Config struct {
	Plan     string         // segment plan, e.g. "attentive:5,doze:6"
	Seed     uint64         // random seed; the same seed yields the same recording
	Output   string         // replay file to write
	EventLog string         // event log written by the replay run
	Replay   bool           // run the pipeline over the recording and verify it
	LogFile  string         // log file for tool output
	Verbose  bool           // log every mismatching tick
	Pipeline *config.Config // pipeline settings used for replay and expectations
}

// Segment is a run of ticks of one kind.
type Segment struct {
	Kind  Kind
	Ticks int
}

// Stats holds scenario statistics.
type Stats struct {
	Segments     int
	Ticks        int
	Missed       int
	Expected     map[string]int
	Logged       int
	Mismatches   int
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
}
