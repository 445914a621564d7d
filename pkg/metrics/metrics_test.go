package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a dedicated registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithLatencyBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"subject": "desk-1"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then every collector is registered on it", func() {
				So(manager, ShouldNotBeNil)
				manager.ticks.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_unit_ticks_total"], ShouldBeTrue)
			})

			Convey("And creating a second manager on the same registry panics", func() {
				So(func() { NewManager(WithNamespace("test"), WithSubsystem("unit"), WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording states", func() {
			all := []string{"not_present", "looking_away", "sleeping", "attentive"}
			before := testutil.ToFloat64(globalManager.stateSamples.WithLabelValues("sleeping"))
			RecordState("sleeping", all)

			Convey("Then the sample counter grows and only the current state gauge is set", func() {
				So(testutil.ToFloat64(globalManager.stateSamples.WithLabelValues("sleeping")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.currentState.WithLabelValues("sleeping")), ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.currentState.WithLabelValues("attentive")), ShouldEqual, 0)
			})
		})

		Convey("When recording channel dispatches", func() {
			okBefore := testutil.ToFloat64(globalManager.channelDispatches.WithLabelValues("tone", "ok"))
			failBefore := testutil.ToFloat64(globalManager.channelDispatches.WithLabelValues("tone", "failed"))
			RecordChannelDispatch("tone", true, 12)
			RecordChannelDispatch("tone", false, 40)

			Convey("Then results are split by label", func() {
				So(testutil.ToFloat64(globalManager.channelDispatches.WithLabelValues("tone", "ok")), ShouldEqual, okBefore+1)
				So(testutil.ToFloat64(globalManager.channelDispatches.WithLabelValues("tone", "failed")), ShouldEqual, failBefore+1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateInterventionActive(true)
			UpdateClosedStreak(4)
			UpdateWindowNegatives(8)

			Convey("Then the values are visible", func() {
				So(testutil.ToFloat64(globalManager.interventionActive), ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.closedStreak), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.windowNegatives), ShouldEqual, 8)
				UpdateInterventionActive(false)
				So(testutil.ToFloat64(globalManager.interventionActive), ShouldEqual, 0)
			})
		})

		Convey("When two dispatch lanes report their queues", func() {
			UpdateQueueSize("tone", 3)
			UpdateQueueSize("notification", 40)
			UpdateWorkerCount("tone", 2)
			UpdateWorkerCount("notification", 1)

			Convey("Then each lane keeps its own value", func() {
				So(testutil.ToFloat64(globalManager.queueSize.WithLabelValues("tone")), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.queueSize.WithLabelValues("notification")), ShouldEqual, 40)
				So(testutil.ToFloat64(globalManager.workersActive.WithLabelValues("tone")), ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.workersActive.WithLabelValues("notification")), ShouldEqual, 1)
			})
		})

		Convey("When recording the remaining helpers", func() {
			So(func() {
				RecordTick(3)
				RecordStateTransition("attentive")
				RecordCaptureFailure("transient")
				RecordIntervention()
				RecordAlertSuppressed("sleep_alert")
				UpdateStrikes(2)
				UpdateQueueSize("tone", 1)
				UpdateQueueCapacity("tone", 64)
				RecordQueueDropped("tone")
				UpdateWorkerCount("tone", 2)
				AddWorkersBusy("tone", 1)
				AddWorkersBusy("tone", -1)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
