// Package config defines the pipeline configuration and how it is loaded.
//
// A Config is immutable for the duration of a run. Use WithOverrides to
// derive a modified copy.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// FrameWidth and FrameHeight request the capture geometry in pixels.
	FrameWidth  int `koanf:"frame_width"`
	FrameHeight int `koanf:"frame_height"`
	// FrameProcessInterval is the number of seconds between ticks.
	FrameProcessInterval float64 `koanf:"frame_process_interval"`

	// MaxConsecutiveClosed is how many closed-eye ticks are tolerated before
	// the subject is considered asleep.
	MaxConsecutiveClosed int     `koanf:"max_consecutive_closed"`
	EARThreshold         float64 `koanf:"ear_threshold"`
	YawThreshold         float64 `koanf:"yaw_threshold"`
	PitchThreshold       float64 `koanf:"pitch_threshold"`

	// HistoryWindow is the rolling window length in ticks.
	HistoryWindow int `koanf:"history_window"`
	// DistractionThreshold is how many non-attentive ticks in a full window
	// trigger an intervention.
	DistractionThreshold int `koanf:"distraction_threshold"`

	EventLogPath string `koanf:"event_log_path"`

	NotificationEndpoint  string `koanf:"notification_endpoint"`
	NotificationAPIKey    string `koanf:"notification_api_key"`
	NotificationTimeoutMS int    `koanf:"notification_timeout_ms"`
	NotificationRetries   int    `koanf:"notification_retries"`

	EnableSounds bool `koanf:"enable_sounds"`
	// ToneCommand plays a WAV file, e.g. "aplay -q" or "afplay {file}".
	// Empty rings the console bell.
	ToneCommand string `koanf:"tone_command"`

	EnableVoice             bool     `koanf:"enable_voice"`
	VoiceMessages           []string `koanf:"voice_messages"`
	SleepAlertCooldownTicks int      `koanf:"sleep_alert_cooldown_ticks"`

	// MaxCaptureFailures consecutive failed reads stop the pipeline.
	MaxCaptureFailures int `koanf:"max_capture_failures"`

	// WorkerCount and QueueSize apply to each alert channel's lane.
	WorkerCount       int `koanf:"worker_count"`
	QueueSize         int `koanf:"queue_size"`
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	// CaptureSource names the frame source, e.g. "replay:session.jsonl".
	CaptureSource string `koanf:"capture_source"`

	// MetricsAddr exposes /metrics and /healthz when set, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`

	// Redis strike counter; disabled when RedisAddr is empty.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisChannel  string `koanf:"redis_channel"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		FrameWidth:              640,
		FrameHeight:             360,
		FrameProcessInterval:    3.0,
		MaxConsecutiveClosed:    3,
		EARThreshold:            0.2,
		YawThreshold:            25.0,
		PitchThreshold:          25.0,
		HistoryWindow:           10,
		DistractionThreshold:    8,
		EventLogPath:            "events.jsonl",
		NotificationTimeoutMS:   5000,
		NotificationRetries:     2,
		EnableSounds:            true,
		EnableVoice:             true,
		SleepAlertCooldownTicks: 10,
		MaxCaptureFailures:      10,
		WorkerCount:             2,
		QueueSize:               64,
		ShutdownTimeoutMS:       5000,
		CaptureSource:           "replay:session.jsonl",
		RedisChannel:            "attend:updates",
	}
}

// WithOverrides returns a copy of c with fn applied. c is left untouched.
func (c *Config) WithOverrides(fn func(*Config)) *Config {
	cp := *c
	cp.VoiceMessages = append([]string(nil), c.VoiceMessages...)
	if fn != nil {
		fn(&cp)
	}
	return &cp
}

// Interval returns the tick interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.FrameProcessInterval * float64(time.Second))
}

// NotificationTimeout bounds one webhook attempt.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.NotificationTimeoutMS) * time.Millisecond
}

// ShutdownTimeout bounds how long Stop waits for channel workers.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error { //nolint:gocyclo,cyclop // flat list of independent checks
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log_format %q is not text or json", c.LogFormat))
	}

	check(c.FrameWidth > 0 && c.FrameHeight > 0, "frame_width and frame_height must be positive, got %dx%d", c.FrameWidth, c.FrameHeight)
	check(c.FrameProcessInterval > 0, "frame_process_interval must be positive, got %v", c.FrameProcessInterval)
	check(c.MaxConsecutiveClosed >= 0, "max_consecutive_closed must not be negative, got %d", c.MaxConsecutiveClosed)
	check(c.EARThreshold > 0 && c.EARThreshold < 1, "ear_threshold must be in (0, 1), got %v", c.EARThreshold)
	check(c.YawThreshold > 0 && c.YawThreshold <= 180, "yaw_threshold must be in (0, 180], got %v", c.YawThreshold)
	check(c.PitchThreshold > 0 && c.PitchThreshold <= 180, "pitch_threshold must be in (0, 180], got %v", c.PitchThreshold)
	check(c.HistoryWindow > 0, "history_window must be positive, got %d", c.HistoryWindow)
	check(c.DistractionThreshold > 0 && c.DistractionThreshold <= c.HistoryWindow,
		"distraction_threshold must be in [1, history_window=%d], got %d", c.HistoryWindow, c.DistractionThreshold)
	check(strings.TrimSpace(c.EventLogPath) != "", "event_log_path must not be empty")
	check(c.NotificationTimeoutMS > 0, "notification_timeout_ms must be positive, got %d", c.NotificationTimeoutMS)
	check(c.NotificationRetries >= 0, "notification_retries must not be negative, got %d", c.NotificationRetries)
	check(c.SleepAlertCooldownTicks >= 0, "sleep_alert_cooldown_ticks must not be negative, got %d", c.SleepAlertCooldownTicks)
	check(c.MaxCaptureFailures > 0, "max_capture_failures must be positive, got %d", c.MaxCaptureFailures)
	check(c.WorkerCount > 0, "worker_count must be positive, got %d", c.WorkerCount)
	check(c.QueueSize > 0, "queue_size must be positive, got %d", c.QueueSize)
	check(c.ShutdownTimeoutMS > 0, "shutdown_timeout_ms must be positive, got %d", c.ShutdownTimeoutMS)
	check(strings.TrimSpace(c.CaptureSource) != "", "capture_source must not be empty")
	check(c.RedisDB >= 0, "redis_db must not be negative, got %d", c.RedisDB)

	if c.NotificationEndpoint != "" {
		u, err := url.Parse(c.NotificationEndpoint)
		check(err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "",
			"notification_endpoint %q must be an http(s) URL", c.NotificationEndpoint)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
