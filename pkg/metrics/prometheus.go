// Package metrics provides Prometheus metrics for the attention monitor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default latency buckets in milliseconds. Ticks are seconds apart, channel
// calls (tone playback, webhooks) can take a few seconds.
var defaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000} //nolint:gochecknoglobals // immutable defaults

// Manager owns all Prometheus collectors for one registry.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	constLabels    map[string]string
	registry       prometheus.Registerer

	// Sampling loop
	ticks            prometheus.Counter
	tickLatency      prometheus.Histogram
	stateSamples     *prometheus.CounterVec
	stateTransitions *prometheus.CounterVec
	currentState     *prometheus.GaugeVec
	closedStreak     prometheus.Gauge
	captureFailures  *prometheus.CounterVec

	// Distraction window
	windowNegatives    prometheus.Gauge
	interventions      prometheus.Counter
	interventionActive prometheus.Gauge

	// Alert channels
	channelDispatches *prometheus.CounterVec
	channelLatency    *prometheus.HistogramVec
	alertsSuppressed  *prometheus.CounterVec
	strikes           prometheus.Gauge

	// Dispatch queue and workers
	queueSize     *prometheus.GaugeVec
	queueCapacity *prometheus.GaugeVec
	queueDropped  *prometheus.CounterVec
	workersActive *prometheus.GaugeVec
	workersBusy   *prometheus.GaugeVec

	// Process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "attend",
		subsystem:      "monitor",
		latencyBuckets: defaultLatencyBuckets,
		constLabels:    make(map[string]string),
		registry:       prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus collectors.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: labels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: labels,
		})
	}

	m.ticks = counter("ticks_total", "Total number of sampling ticks processed")
	m.tickLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "tick_duration_milliseconds",
		Help:        "Time spent in one tick from capture to fan-out",
		Buckets:     m.latencyBuckets,
		ConstLabels: labels,
	})
	m.stateSamples = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "state_samples_total",
		Help:        "Classified samples by attention state",
		ConstLabels: labels,
	}, []string{"state"})
	m.stateTransitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "state_transitions_total",
		Help:        "Logged attention state changes by target state",
		ConstLabels: labels,
	}, []string{"state"})
	m.currentState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "current_state",
		Help:        "1 for the current attention state, 0 otherwise",
		ConstLabels: labels,
	}, []string{"state"})
	m.closedStreak = gauge("closed_eye_streak", "Consecutive ticks with eyes below the EAR threshold")
	m.captureFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "capture_failures_total",
		Help:        "Capture failures by kind (transient, fatal, analyze)",
		ConstLabels: labels,
	}, []string{"kind"})

	m.windowNegatives = gauge("window_negative_states", "Non-attentive states currently in the rolling window")
	m.interventions = counter("interventions_total", "Intervention episodes triggered")
	m.interventionActive = gauge("intervention_active", "1 while an intervention episode is being signaled")

	m.channelDispatches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "channel_dispatches_total",
		Help:        "Alert channel invocations by channel and result",
		ConstLabels: labels,
	}, []string{"channel", "result"})
	m.channelLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "channel_duration_milliseconds",
		Help:        "Alert channel call duration in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: labels,
	}, []string{"channel"})
	m.alertsSuppressed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "alerts_suppressed_total",
		Help:        "Alerts suppressed by a cooldown, by alert class",
		ConstLabels: labels,
	}, []string{"class"})
	m.strikes = gauge("strikes", "Last known strike count reported by the strike store")

	laneGauge := func(name, help string) *prometheus.GaugeVec {
		return auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: labels,
		}, []string{"lane"})
	}

	m.queueSize = laneGauge("dispatch_queue_size", "Channel jobs waiting for a worker, by lane")
	m.queueCapacity = laneGauge("dispatch_queue_capacity", "Maximum number of pending channel jobs, by lane")
	m.queueDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "dispatch_queue_dropped_total",
		Help:        "Channel jobs dropped because the lane queue was full or closed",
		ConstLabels: labels,
	}, []string{"lane"})
	m.workersActive = laneGauge("dispatch_workers", "Number of channel dispatch workers, by lane")
	m.workersBusy = laneGauge("dispatch_workers_busy", "Channel dispatch workers currently running a job, by lane")

	m.systemMemoryUsage = gauge("system_memory_bytes", "Heap bytes allocated by the process")
	m.systemGoroutineCount = gauge("system_goroutines", "Number of goroutines")
}

// Sampling loop.

// RecordTick increments the tick counter and observes its duration.
func RecordTick(latencyMs float64) {
	globalManager.ticks.Inc()
	globalManager.tickLatency.Observe(latencyMs)
}

// RecordState counts one classified sample and marks it as the current state.
func RecordState(state string, all []string) {
	globalManager.stateSamples.WithLabelValues(state).Inc()
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		globalManager.currentState.WithLabelValues(s).Set(v)
	}
}

// RecordStateTransition counts a logged state change.
func RecordStateTransition(state string) {
	globalManager.stateTransitions.WithLabelValues(state).Inc()
}

// UpdateClosedStreak sets the closed-eye streak gauge.
func UpdateClosedStreak(streak int) {
	globalManager.closedStreak.Set(float64(streak))
}

// RecordCaptureFailure counts a capture failure of the given kind.
func RecordCaptureFailure(kind string) {
	globalManager.captureFailures.WithLabelValues(kind).Inc()
}

// Distraction window.

// UpdateWindowNegatives sets the number of negative states in the window.
func UpdateWindowNegatives(count int) {
	globalManager.windowNegatives.Set(float64(count))
}

// RecordIntervention counts a new intervention episode.
func RecordIntervention() {
	globalManager.interventions.Inc()
}

// UpdateInterventionActive sets the intervention flag gauge.
func UpdateInterventionActive(active bool) {
	v := 0.0
	if active {
		v = 1
	}
	globalManager.interventionActive.Set(v)
}

// Alert channels.

// RecordChannelDispatch counts a channel call and its duration.
func RecordChannelDispatch(channel string, ok bool, latencyMs float64) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	globalManager.channelDispatches.WithLabelValues(channel, result).Inc()
	globalManager.channelLatency.WithLabelValues(channel).Observe(latencyMs)
}

// RecordAlertSuppressed counts an alert held back by a cooldown.
func RecordAlertSuppressed(class string) {
	globalManager.alertsSuppressed.WithLabelValues(class).Inc()
}

// UpdateStrikes sets the strike gauge.
func UpdateStrikes(count int64) {
	globalManager.strikes.Set(float64(count))
}

// Dispatch queue and workers.

// UpdateQueueSize sets the current queue size of a dispatch lane.
func UpdateQueueSize(lane string, size int) {
	globalManager.queueSize.WithLabelValues(lane).Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity of a dispatch lane.
func UpdateQueueCapacity(lane string, capacity int) {
	globalManager.queueCapacity.WithLabelValues(lane).Set(float64(capacity))
}

// RecordQueueDropped counts a job that could not be enqueued on lane.
func RecordQueueDropped(lane string) {
	globalManager.queueDropped.WithLabelValues(lane).Inc()
}

// UpdateWorkerCount sets the number of workers serving a dispatch lane.
func UpdateWorkerCount(lane string, count int) {
	globalManager.workersActive.WithLabelValues(lane).Set(float64(count))
}

// AddWorkersBusy adjusts the busy worker gauge of lane by delta.
func AddWorkersBusy(lane string, delta int) {
	globalManager.workersBusy.WithLabelValues(lane).Add(float64(delta))
}

// Process.

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
