package model

import "time"

// TimestampLayout is the ISO-8601 layout written to the event log.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Event is the immutable record of one tick. It is passed by value to
// channel workers and never modified after construction.
type Event struct {
	ID            string        // unique per tick, used as notification idempotency key
	RunID         string        // identifies the pipeline run
	Seq           int64         // tick sequence number within the run, starting at 1
	Timestamp     time.Time     // wall clock, UTC
	Monotonic     time.Duration // elapsed since the run started
	State         State
	Sample        MetricsSample
	EARAverage    float64
	Interval      time.Duration
	CaptureFailed bool // the frame could not be read; Sample is the absent sample
}

// Record is the newline-delimited JSON shape of an Event.
type Record struct {
	Timestamp            string  `json:"timestamp"`
	State                string  `json:"state"`
	FacePresent          bool    `json:"face_present"`
	Yaw                  float64 `json:"yaw"`
	Pitch                float64 `json:"pitch"`
	Roll                 float64 `json:"roll"`
	EARLeft              float64 `json:"ear_left"`
	EARRight             float64 `json:"ear_right"`
	EARAvg               float64 `json:"ear_avg"`
	FrameIntervalSeconds float64 `json:"frame_interval_seconds"`
	CaptureFailed        bool    `json:"capture_failed,omitempty"`
}

// Record converts the event to its log representation.
func (e Event) Record() Record { //nolint:gocritic // hugeParam: events are value snapshots
	return Record{
		Timestamp:            e.Timestamp.UTC().Format(TimestampLayout),
		State:                e.State.String(),
		FacePresent:          e.Sample.FacePresent,
		Yaw:                  e.Sample.Yaw,
		Pitch:                e.Sample.Pitch,
		Roll:                 e.Sample.Roll,
		EARLeft:              e.Sample.EARLeft,
		EARRight:             e.Sample.EARRight,
		EARAvg:               e.EARAverage,
		FrameIntervalSeconds: e.Interval.Seconds(),
		CaptureFailed:        e.CaptureFailed,
	}
}

// Metadata flattens the event for notification payloads. The state itself
// travels separately.
func (e Event) Metadata() map[string]any { //nolint:gocritic // hugeParam: events are value snapshots
	r := e.Record()
	return map[string]any{
		"event_id":               e.ID,
		"run_id":                 e.RunID,
		"seq":                    e.Seq,
		"timestamp":              r.Timestamp,
		"face_present":           r.FacePresent,
		"yaw":                    r.Yaw,
		"pitch":                  r.Pitch,
		"roll":                   r.Roll,
		"ear_left":               r.EARLeft,
		"ear_right":              r.EARRight,
		"ear_avg":                r.EARAvg,
		"frame_interval_seconds": r.FrameIntervalSeconds,
	}
}
