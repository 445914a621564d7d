package model_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	model "github.com/okian/attend/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestState(t *testing.T) {
	convey.Convey("Given the attention states", t, func() {
		convey.Convey("Then they render their wire names", func() {
			convey.So(model.StateNotPresent.String(), convey.ShouldEqual, "not_present")
			convey.So(model.StateLookingAway.String(), convey.ShouldEqual, "looking_away")
			convey.So(model.StateSleeping.String(), convey.ShouldEqual, "sleeping")
			convey.So(model.StateAttentive.String(), convey.ShouldEqual, "attentive")
			convey.So(model.State(42).String(), convey.ShouldEqual, "state(42)")
		})

		convey.Convey("Then only attentive is non-negative", func() {
			for _, s := range model.States() {
				convey.So(s.Negative(), convey.ShouldEqual, s != model.StateAttentive)
			}
		})

		convey.Convey("When parsing names", func() {
			for _, name := range model.StateNames() {
				s, err := model.ParseState(name)
				convey.So(err, convey.ShouldBeNil)
				convey.So(s.String(), convey.ShouldEqual, name)
			}
			_, err := model.ParseState("dozing")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When used as a JSON value", func() {
			b, err := json.Marshal(struct {
				S model.State `json:"s"`
			}{model.StateSleeping})
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(b), convey.ShouldEqual, `{"s":"sleeping"}`)

			var back struct {
				S model.State `json:"s"`
			}
			convey.So(json.Unmarshal(b, &back), convey.ShouldBeNil)
			convey.So(back.S, convey.ShouldEqual, model.StateSleeping)
		})
	})
}

func TestMetricsSample(t *testing.T) {
	convey.Convey("Given a metrics sample", t, func() {
		s := model.MetricsSample{FacePresent: true, EARLeft: 0.1, EARRight: 0.3}

		convey.Convey("Then the average EAR is the mean of both eyes", func() {
			convey.So(s.EARAverage(), convey.ShouldAlmostEqual, 0.2, 1e-9)
		})

		convey.Convey("Then the absent sample has no face", func() {
			convey.So(model.Absent().FacePresent, convey.ShouldBeFalse)
		})
	})
}

func TestEventRecord(t *testing.T) {
	convey.Convey("Given an event", t, func() {
		ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))
		ev := model.Event{
			ID:         "ev-1",
			RunID:      "run-1",
			Seq:        7,
			Timestamp:  ts,
			State:      model.StateLookingAway,
			Sample:     model.MetricsSample{FacePresent: true, Yaw: 31, Pitch: -2, Roll: 1, EARLeft: 0.25, EARRight: 0.27},
			EARAverage: 0.26,
			Interval:   3 * time.Second,
		}

		convey.Convey("When encoded as a log record", func() {
			b, err := json.Marshal(ev.Record())
			convey.So(err, convey.ShouldBeNil)

			var m map[string]any
			convey.So(json.Unmarshal(b, &m), convey.ShouldBeNil)

			convey.Convey("Then it carries every required key in UTC", func() {
				for _, key := range []string{"timestamp", "state", "face_present", "yaw", "pitch", "roll", "ear_left", "ear_right", "ear_avg", "frame_interval_seconds"} {
					convey.So(m, convey.ShouldContainKey, key)
				}
				convey.So(m["timestamp"], convey.ShouldEqual, "2026-03-01T08:30:00.000000Z")
				convey.So(m["state"], convey.ShouldEqual, "looking_away")
				convey.So(m["frame_interval_seconds"], convey.ShouldEqual, 3.0)
				convey.So(m, convey.ShouldNotContainKey, "capture_failed")
			})
		})

		convey.Convey("When flattened for notifications", func() {
			md := ev.Metadata()

			convey.Convey("Then identifiers are included and state is not", func() {
				convey.So(md["event_id"], convey.ShouldEqual, "ev-1")
				convey.So(md["run_id"], convey.ShouldEqual, "run-1")
				convey.So(md, convey.ShouldNotContainKey, "state")
			})
		})
	})
}

func TestChannelResult(t *testing.T) {
	convey.Convey("Given channel results", t, func() {
		ok := model.Succeeded(model.ChannelTone, "ev-1", time.Millisecond)
		boom := errors.New("boom")
		bad := model.Failed(model.ChannelNotification, "ev-1", boom, time.Millisecond)

		convey.So(ok.OK, convey.ShouldBeTrue)
		convey.So(ok.Err, convey.ShouldBeNil)
		convey.So(bad.OK, convey.ShouldBeFalse)
		convey.So(bad.Err, convey.ShouldEqual, boom)
	})
}
