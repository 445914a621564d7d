// Package app runs the attention pipeline: one sampling loop that
// classifies each frame, keeps the rolling window and alert bookkeeping, and
// fans the resulting actions out to the alert channels.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/attend/internal/adapters/capture"
	"github.com/okian/attend/internal/adapters/eventlog"
	"github.com/okian/attend/internal/adapters/mq/queue"
	"github.com/okian/attend/internal/adapters/mq/worker"
	"github.com/okian/attend/internal/adapters/notify"
	"github.com/okian/attend/internal/adapters/tone"
	"github.com/okian/attend/internal/adapters/voice"
	"github.com/okian/attend/internal/config"
	"github.com/okian/attend/internal/domain/attention"
	"github.com/okian/attend/internal/domain/debounce"
	"github.com/okian/attend/internal/domain/dispatch"
	"github.com/okian/attend/internal/domain/model"
	"github.com/okian/attend/internal/domain/window"
	"github.com/okian/attend/pkg/logger"
	"github.com/okian/attend/pkg/metrics"
)

// Phase is the pipeline lifecycle state.
type Phase int

// Lifecycle phases. A pipeline moves Idle -> Running -> Stopped once.
const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseStopped:
		return "stopped"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Capture failure kinds used in metrics.
const (
	failureTransient = "transient"
	failureAnalyze   = "analyze"
	failureFatal     = "fatal"
)

// Stats is a point-in-time snapshot of the pipeline.
type Stats struct {
	Phase               Phase
	RunID               string
	Ticks               int64
	State               model.State
	HasState            bool
	Streak              int
	WindowLen           int
	WindowNegatives     int
	Intervening         bool
	Interventions       int64
	ConsecutiveFailures int
	DroppedJobs         int64
	ChannelFailures     int64
}

// dispatchChannels are the asynchronous alert channels. Each gets its own
// lane so a stalled backend only backs up its own jobs.
var dispatchChannels = []model.Channel{ //nolint:gochecknoglobals // fixed channel set
	model.ChannelTone,
	model.ChannelNotification,
	model.ChannelIntervention,
	model.ChannelVoice,
}

// lane is the queue and worker pool serving one alert channel.
type lane struct {
	queue *queue.InMemoryQueue
	pool  *worker.Pool
}

// Pipeline is the sampling loop and everything it owns. Classification,
// window and alert bookkeeping are only touched by the goroutine calling
// Tick; the mutex guards the lifecycle and the stats snapshot.
type Pipeline struct {
	cfg        *config.Config
	thresholds attention.Thresholds

	device    capture.Device
	analyzer  capture.Analyzer
	events    EventLog
	tone      TonePlayer
	notifier  notify.Notifier
	announcer Announcer
	closers   []io.Closer

	now      func() time.Time
	newID    func() string
	onResult func(model.ChannelResult)
	logger   logger.Logger

	// Owned by the tick goroutine.
	streak     int
	failures   int
	window     *window.Window
	dispatcher *dispatch.Dispatcher

	lanes map[model.Channel]*lane

	mu         sync.Mutex
	phase      Phase
	runID      string
	startedAt  time.Time
	stats      Stats
	stopCh     chan struct{}
	loopDone   chan struct{}
	cancelLoop context.CancelFunc

	stopOnce     sync.Once
	shutdownOnce sync.Once
	stopErr      error
}

// New builds a pipeline for cfg. Collaborators not supplied through options
// are created from the configuration.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg: cfg,
		thresholds: attention.Thresholds{
			EARThreshold:         cfg.EARThreshold,
			YawThreshold:         cfg.YawThreshold,
			PitchThreshold:       cfg.PitchThreshold,
			MaxConsecutiveClosed: cfg.MaxConsecutiveClosed,
		},
		analyzer: capture.SampleAnalyzer{},
		now:      time.Now,
		newID:    uuid.NewString,
		onResult: func(model.ChannelResult) {},
		logger:   logger.Get().Named("pipeline"),
		stopCh:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.device == nil {
		dev, err := capture.FromSource(cfg.CaptureSource, capture.WithFrameSize(cfg.FrameWidth, cfg.FrameHeight))
		if err != nil {
			return nil, fmt.Errorf("%w: capture_source: %w", config.ErrInvalidConfig, err)
		}
		p.device = dev
	}
	if p.events == nil {
		p.events = eventlog.New(cfg.EventLogPath)
	}
	if p.tone == nil {
		topts := []tone.Option{tone.WithEnabled(cfg.EnableSounds)}
		if cfg.ToneCommand != "" {
			player := tone.NewCommandPlayer(cfg.ToneCommand)
			p.closers = append(p.closers, player)
			topts = append(topts, tone.WithPlayer(player))
		}
		p.tone = tone.NewChannel(topts...)
	}
	if p.notifier == nil {
		p.notifier = DefaultNotifier(cfg)
	}
	if p.announcer == nil && cfg.EnableVoice {
		p.announcer = voice.NewAnnouncer(voice.LogSpeaker{}, cfg.VoiceMessages)
	}

	dopts := []dispatch.Option{dispatch.WithSleepAlertCooldown(cfg.SleepAlertCooldownTicks)}
	if p.announcer == nil {
		dopts = append(dopts, dispatch.WithoutVoice())
	}
	p.window = window.New(cfg.HistoryWindow)
	p.dispatcher = dispatch.New(dopts...)

	return p, nil
}

// DefaultNotifier builds the webhook notifier from cfg and combines it with
// extra backends. It is a no-op when nothing is configured.
func DefaultNotifier(cfg *config.Config, extra ...notify.Notifier) notify.Notifier {
	hook := notify.New(cfg.NotificationEndpoint, cfg.NotificationAPIKey,
		notify.WithTimeout(cfg.NotificationTimeout()),
		notify.WithRetries(cfg.NotificationRetries),
	)
	return notify.Combine(append([]notify.Notifier{hook}, extra...)...)
}

// Start opens the capture device and the dispatch workers. If the device
// cannot be opened the pipeline stays Idle and the error wraps
// capture.ErrDeviceUnavailable.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.phase {
	case PhaseRunning:
		return ErrAlreadyStarted
	case PhaseStopped:
		return ErrStopped
	}

	if err := p.device.Open(ctx); err != nil {
		_ = p.device.Release()
		if !errors.Is(err, capture.ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %w", capture.ErrDeviceUnavailable, err)
		}
		p.logger.Error(ctx, "capture device unavailable", logger.Error(err))
		return err
	}

	p.runID = p.newID()
	p.startedAt = p.now()
	p.lanes = make(map[model.Channel]*lane, len(dispatchChannels))
	for _, ch := range dispatchChannels {
		q := queue.NewInMemoryQueue(queue.WithCapacity(p.cfg.QueueSize), queue.WithName(string(ch)))
		pool := worker.NewPool(p.cfg.WorkerCount, q,
			worker.WithResultHandler(p.handleResult),
			worker.WithLogger(p.logger.Named("dispatch").Named(string(ch))),
		)
		pool.Start(context.WithoutCancel(ctx))
		p.lanes[ch] = &lane{queue: q, pool: pool}
	}

	p.phase = PhaseRunning
	p.stats.Phase = PhaseRunning
	p.stats.RunID = p.runID
	p.logger = p.logger.With(logger.String("run_id", p.runID))

	p.logger.Info(ctx, "pipeline started",
		logger.Float64("interval_seconds", p.cfg.FrameProcessInterval),
		logger.Int("history_window", p.cfg.HistoryWindow),
		logger.Int("distraction_threshold", p.cfg.DistractionThreshold),
		logger.Int("lanes", len(p.lanes)),
		logger.Int("workers_per_lane", p.cfg.WorkerCount),
		logger.Int("queue_size", p.cfg.QueueSize),
	)
	return nil
}

// Run starts the pipeline if needed and ticks every frame_process_interval
// until ctx is canceled, Stop is called, the capture source ends or a fatal
// capture error occurs. The pipeline is stopped when Run returns.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	phase := p.phase
	p.mu.Unlock()

	if phase == PhaseIdle {
		if err := p.Start(ctx); err != nil {
			return err
		}
	}

	p.mu.Lock()
	switch {
	case p.phase == PhaseStopped:
		p.mu.Unlock()
		return ErrStopped
	case p.phase != PhaseRunning || p.loopDone != nil:
		p.mu.Unlock()
		return ErrNotRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.loopDone = done
	p.cancelLoop = cancel
	p.mu.Unlock()

	var runErr error
	defer func() {
		cancel()
		close(done)
		if err := p.Stop(); err != nil && runErr == nil {
			p.logger.Warn(ctx, "pipeline stopped with errors", logger.Error(err))
		}
	}()

	ticker := time.NewTicker(p.cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-loopCtx.Done():
			return nil
		case <-p.stopCh:
			return nil
		case <-ticker.C:
		}

		err := p.Tick(loopCtx)
		switch {
		case err == nil:
		case errors.Is(err, capture.ErrEndOfStream):
			p.logger.Info(ctx, "capture source ended")
			return nil
		case loopCtx.Err() != nil:
			return nil
		default:
			runErr = err
			p.logger.Error(ctx, "pipeline stopping on capture failure", logger.Error(err))
			return err
		}
	}
}

// Tick runs one sampling cycle: capture, classify, update the window and
// cooldowns, log the event and dispatch the alert channels. The event is
// written before Tick returns; other channels run on the worker pool.
func (p *Pipeline) Tick(ctx context.Context) error {
	p.mu.Lock()
	running := p.phase == PhaseRunning
	p.mu.Unlock()
	if !running {
		return ErrNotRunning
	}

	start := time.Now()

	sample, captureFailed, fatal := p.acquire(ctx)
	if fatal != nil {
		return fatal
	}

	state, streak := attention.Classify(sample, p.streak, p.thresholds)
	p.streak = streak
	p.window.Push(state)
	verdict := p.window.ShouldIntervene(p.cfg.DistractionThreshold)
	plan := p.dispatcher.Decide(state, verdict)

	p.mu.Lock()
	p.stats.Ticks++
	seq := p.stats.Ticks
	p.mu.Unlock()

	ts := p.now()
	ev := model.Event{
		ID:            p.newID(),
		RunID:         p.runID,
		Seq:           seq,
		Timestamp:     ts.UTC(),
		Monotonic:     ts.Sub(p.startedAt),
		State:         state,
		Sample:        sample,
		EARAverage:    sample.EARAverage(),
		Interval:      p.cfg.Interval(),
		CaptureFailed: captureFailed,
	}

	p.record(ctx, ev, plan)
	p.dispatch(ctx, ev, plan)

	metrics.RecordTick(float64(time.Since(start).Milliseconds()))
	metrics.RecordState(state.String(), model.StateNames())
	metrics.UpdateClosedStreak(streak)
	metrics.UpdateWindowNegatives(p.window.NegativeCount())
	metrics.UpdateInterventionActive(p.dispatcher.Intervening())

	p.mu.Lock()
	p.stats.State = state
	p.stats.HasState = true
	p.stats.Streak = streak
	p.stats.WindowLen = p.window.Len()
	p.stats.WindowNegatives = p.window.NegativeCount()
	p.stats.Intervening = p.dispatcher.Intervening()
	p.stats.ConsecutiveFailures = p.failures
	if plan.Intervene {
		p.stats.Interventions++
	}
	p.mu.Unlock()

	if p.failures >= p.cfg.MaxCaptureFailures {
		return fmt.Errorf("%w: %d in a row", ErrCaptureFailures, p.failures)
	}
	return nil
}

// acquire reads and analyzes one frame. Transient failures yield the
// absent sample with captureFailed set; fatal is non-nil when the loop must
// stop without processing the tick.
func (p *Pipeline) acquire(ctx context.Context) (sample model.MetricsSample, captureFailed bool, fatal error) {
	frame, err := p.device.Read(ctx)
	if err == nil {
		sample, err = p.analyzer.Analyze(ctx, frame)
		if err == nil {
			p.failures = 0
			return sample, false, nil
		}
		return p.transient(ctx, failureAnalyze, err), true, nil
	}

	switch {
	case errors.Is(err, capture.ErrEndOfStream):
		return model.MetricsSample{}, false, err
	case ctx.Err() != nil:
		return model.MetricsSample{}, false, ctx.Err()
	case errors.Is(err, capture.ErrDeviceLost):
		metrics.RecordCaptureFailure(failureFatal)
		return model.MetricsSample{}, false, fmt.Errorf("capture: %w", err)
	}
	return p.transient(ctx, failureTransient, err), true, nil
}

func (p *Pipeline) transient(ctx context.Context, kind string, err error) model.MetricsSample {
	p.failures++
	metrics.RecordCaptureFailure(kind)
	p.logger.Warn(ctx, "frame capture failed; treating subject as absent",
		logger.String("kind", kind),
		logger.Int("consecutive", p.failures),
		logger.Error(err),
	)
	return model.Absent()
}

// record writes the event log line and reports state changes.
func (p *Pipeline) record(ctx context.Context, ev model.Event, plan dispatch.Plan) { //nolint:gocritic // hugeParam: events are value snapshots
	start := time.Now()
	err := p.events.Append(ctx, ev)
	metrics.RecordChannelDispatch(string(model.ChannelLog), err == nil, float64(time.Since(start).Milliseconds()))
	if err != nil {
		p.logger.Warn(ctx, "event log write failed", logger.Int("seq", int(ev.Seq)), logger.Error(err))
	}

	if plan.StateChanged {
		metrics.RecordStateTransition(ev.State.String())
		p.logger.Info(ctx, "attention state changed",
			logger.String("state", ev.State.String()),
			logger.Float64("yaw", ev.Sample.Yaw),
			logger.Float64("pitch", ev.Sample.Pitch),
			logger.Float64("ear_avg", ev.EARAverage),
		)
	}
}

// dispatch enqueues the asynchronous channels of plan on their lanes in
// order: tone, notification, intervention, voice. The intervention's
// distraction tone is its own job on the tone lane.
func (p *Pipeline) dispatch(ctx context.Context, ev model.Event, plan dispatch.Plan) { //nolint:gocritic // hugeParam: events are value snapshots
	if plan.Tone != model.ToneNone {
		kind := plan.Tone
		p.enqueue(ctx, model.ChannelTone, ev, func(jctx context.Context, _ model.Event) error {
			return p.tone.Play(jctx, kind)
		})
	}

	if plan.Notify {
		p.enqueue(ctx, model.ChannelNotification, ev, func(jctx context.Context, e model.Event) error {
			return p.notifier.Notify(jctx, e.State, e)
		})
	}

	if plan.Intervene {
		recent := p.window.Snapshot()
		metrics.RecordIntervention()
		p.logger.Warn(ctx, "sustained distraction, intervening",
			logger.Int("negatives", p.window.NegativeCount()),
			logger.Int("window", p.window.Cap()),
		)
		p.enqueue(ctx, model.ChannelTone, ev, func(jctx context.Context, _ model.Event) error {
			return p.tone.Play(jctx, model.ToneDistraction)
		})
		p.enqueue(ctx, model.ChannelIntervention, ev, func(jctx context.Context, e model.Event) error {
			return p.notifier.Intervene(jctx, recent, e)
		})
	}

	switch {
	case plan.Voice:
		p.enqueue(ctx, model.ChannelVoice, ev, func(jctx context.Context, _ model.Event) error {
			return p.announcer.Announce(jctx)
		})
	case plan.VoiceSuppressed:
		metrics.RecordAlertSuppressed(string(debounce.ClassSleepAlert))
	}
}

func (p *Pipeline) enqueue(ctx context.Context, ch model.Channel, ev model.Event, run queue.Handler) { //nolint:gocritic // hugeParam: events are value snapshots
	err := p.lanes[ch].queue.Enqueue(ctx, queue.Job{Channel: ch, Event: ev, Run: run})
	if err == nil {
		return
	}
	p.mu.Lock()
	p.stats.DroppedJobs++
	p.mu.Unlock()
	p.logger.Warn(ctx, "channel job dropped",
		logger.String("channel", string(ch)),
		logger.Int("seq", int(ev.Seq)),
		logger.Error(err),
	)
}

func (p *Pipeline) handleResult(res model.ChannelResult) {
	if !res.OK {
		p.mu.Lock()
		p.stats.ChannelFailures++
		p.mu.Unlock()
	}
	p.onResult(res)
}

// Stop ends the loop, drains every channel lane for up to
// shutdown_timeout_ms, releases the capture device and closes the event
// log. It is safe to call more than once and from any goroutine.
func (p *Pipeline) Stop() error {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})

	p.mu.Lock()
	done := p.loopDone
	cancel := p.cancelLoop
	p.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		default:
			if cancel != nil {
				cancel()
			}
			<-done
		}
	}

	p.shutdownOnce.Do(func() {
		p.stopErr = p.shutdown()
	})
	return p.stopErr
}

func (p *Pipeline) shutdown() error {
	ctx := context.Background()

	p.mu.Lock()
	wasRunning := p.phase == PhaseRunning
	p.phase = PhaseStopped
	p.stats.Phase = PhaseStopped
	p.mu.Unlock()

	var errs []error
	if wasRunning {
		p.drainLanes(ctx)

		if err := p.device.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release capture device: %w", err))
		}
	}
	if err := p.events.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close event log: %w", err))
	}
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	metrics.UpdateInterventionActive(false)
	p.logger.Info(ctx, "pipeline stopped", logger.Any("ticks", p.Stats().Ticks))
	return errors.Join(errs...)
}

// drainLanes shuts every lane down in parallel under one shutdown_timeout_ms
// deadline. Jobs still running at the deadline are canceled and abandoned.
func (p *Pipeline) drainLanes(ctx context.Context) {
	sctx, cancel := context.WithTimeout(ctx, p.cfg.ShutdownTimeout())
	defer cancel()

	var wg sync.WaitGroup
	for ch, l := range p.lanes {
		wg.Add(1)
		go func(ch model.Channel, l *lane) {
			defer wg.Done()
			if err := l.pool.Shutdown(sctx); err != nil {
				p.logger.Warn(ctx, "abandoned pending channel jobs",
					logger.String("channel", string(ch)),
					logger.Error(err),
				)
			}
		}(ch, l)
	}
	wg.Wait()
}

// Phase returns the current lifecycle phase.
func (p *Pipeline) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// RunID returns the identifier of the current run, empty before Start.
func (p *Pipeline) RunID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runID
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
