package attention_test

import (
	"testing"

	"github.com/okian/attend/internal/domain/attention"
	"github.com/okian/attend/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func present(yaw, pitch, ear float64) model.MetricsSample {
	return model.MetricsSample{FacePresent: true, Yaw: yaw, Pitch: pitch, EARLeft: ear, EARRight: ear}
}

func TestClassify(t *testing.T) {
	th := attention.DefaultThresholds()

	Convey("Given the default thresholds", t, func() {
		Convey("When no face is present", func() {
			Convey("Then the state is not_present and the streak resets regardless of its prior value", func() {
				for _, prior := range []int{0, 1, 3, 4, 100} {
					state, streak := attention.Classify(model.Absent(), prior, th)
					So(state, ShouldEqual, model.StateNotPresent)
					So(streak, ShouldEqual, 0)
				}
			})
		})

		Convey("When the head is turned beyond a threshold", func() {
			cases := []model.MetricsSample{
				present(25.1, 0, 0.3),
				present(-40, 0, 0.3),
				present(0, 26, 0.3),
				present(0, -30, 0.3),
				present(50, 50, 0.05), // eyes closed as well
			}

			Convey("Then the state is looking_away with the streak reset", func() {
				for _, s := range cases {
					state, streak := attention.Classify(s, 5, th)
					So(state, ShouldEqual, model.StateLookingAway)
					So(streak, ShouldEqual, 0)
				}
			})
		})

		Convey("When the head is exactly on the threshold", func() {
			state, _ := attention.Classify(present(25, -25, 0.3), 0, th)

			Convey("Then it still counts as facing the screen", func() {
				So(state, ShouldEqual, model.StateAttentive)
			})
		})

		Convey("When the eyes stay closed for consecutive ticks", func() {
			streak := 0
			var states []model.State
			var streaks []int
			for i := 0; i < 7; i++ {
				var state model.State
				state, streak = attention.Classify(present(0, 0, 0.1), streak, th)
				states = append(states, state)
				streaks = append(streaks, streak)
			}

			Convey("Then ticks 1..max are attentive and later ticks are sleeping", func() {
				for i, s := range states {
					tick := i + 1
					So(streaks[i], ShouldEqual, tick)
					if tick <= th.MaxConsecutiveClosed {
						So(s, ShouldEqual, model.StateAttentive)
					} else {
						So(s, ShouldEqual, model.StateSleeping)
					}
				}
			})
		})

		Convey("When a single blink is surrounded by open eyes", func() {
			seq := []float64{0.3, 0.3, 0.05, 0.3, 0.3, 0.05, 0.3}
			streak := 0
			sleeping := false
			for _, ear := range seq {
				var state model.State
				state, streak = attention.Classify(present(0, 0, ear), streak, th)
				if state == model.StateSleeping {
					sleeping = true
				}
			}

			Convey("Then sleeping is never reported and the streak ends at zero", func() {
				So(sleeping, ShouldBeFalse)
				So(streak, ShouldEqual, 0)
			})
		})

		Convey("When the average EAR equals the threshold", func() {
			_, streak := attention.Classify(present(0, 0, th.EARThreshold), 2, th)

			Convey("Then the eyes count as open", func() {
				So(streak, ShouldEqual, 0)
			})
		})

		Convey("When one eye is closed and the other open", func() {
			s := model.MetricsSample{FacePresent: true, EARLeft: 0.05, EARRight: 0.39}
			_, streak := attention.Classify(s, 0, th)

			Convey("Then the average decides", func() {
				So(streak, ShouldEqual, 0)
			})
		})

		Convey("When a negative streak is passed in", func() {
			state, streak := attention.Classify(present(0, 0, 0.1), -3, th)

			Convey("Then it is treated as zero", func() {
				So(state, ShouldEqual, model.StateAttentive)
				So(streak, ShouldEqual, 1)
			})
		})
	})
}

func TestClassifier(t *testing.T) {
	Convey("Given a stateful classifier with max_consecutive_closed=1", t, func() {
		c := attention.New(attention.WithMaxConsecutiveClosed(1), attention.WithEARThreshold(0.25))

		Convey("When fed closed eyes twice", func() {
			first := c.Classify(present(0, 0, 0.2))
			second := c.Classify(present(0, 0, 0.2))

			Convey("Then the second tick is sleeping", func() {
				So(first, ShouldEqual, model.StateAttentive)
				So(second, ShouldEqual, model.StateSleeping)
				So(c.Streak(), ShouldEqual, 2)
			})

			Convey("And Reset clears the streak", func() {
				c.Reset()
				So(c.Streak(), ShouldEqual, 0)
				So(c.Classify(present(0, 0, 0.2)), ShouldEqual, model.StateAttentive)
			})
		})

		Convey("Then the thresholds reflect the options", func() {
			So(c.Thresholds().EARThreshold, ShouldEqual, 0.25)
			So(c.Thresholds().MaxConsecutiveClosed, ShouldEqual, 1)
			So(c.Thresholds().YawThreshold, ShouldEqual, attention.DefaultYawThreshold)
		})
	})
}

func TestEyeAspectRatio(t *testing.T) {
	Convey("Given six eye landmarks", t, func() {
		Convey("When the eye is open", func() {
			pts := [6]attention.Point{{0, 0}, {3, -2}, {7, -2}, {10, 0}, {7, 2}, {3, 2}}

			Convey("Then the ratio is vertical over twice horizontal", func() {
				So(attention.EyeAspectRatio(pts), ShouldAlmostEqual, (4.0+4.0)/20.0, 1e-9)
			})
		})

		Convey("When the corners coincide", func() {
			pts := [6]attention.Point{{5, 5}, {5, 4}, {5, 4}, {5, 5}, {5, 6}, {5, 6}}

			Convey("Then the ratio is zero instead of a division by zero", func() {
				So(attention.EyeAspectRatio(pts), ShouldEqual, 0)
			})
		})
	})
}
