package debounce_test

import (
	"testing"

	"github.com/okian/attend/internal/domain/debounce"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCooldowns(t *testing.T) {
	Convey("Given a sleep alert cooldown of 3 ticks", t, func() {
		c := debounce.New(debounce.WithCooldown(debounce.ClassSleepAlert, 3))

		Convey("When the alert fires", func() {
			fired := c.TryFire(debounce.ClassSleepAlert)

			Convey("Then it is armed and refuses to refire", func() {
				So(fired, ShouldBeTrue)
				So(c.Remaining(debounce.ClassSleepAlert), ShouldEqual, 3)
				So(c.TryFire(debounce.ClassSleepAlert), ShouldBeFalse)
			})

			Convey("And it becomes eligible after exactly 3 ticks", func() {
				c.Tick()
				c.Tick()
				So(c.Ready(debounce.ClassSleepAlert), ShouldBeFalse)
				So(c.Remaining(debounce.ClassSleepAlert), ShouldEqual, 1)
				c.Tick()
				So(c.Ready(debounce.ClassSleepAlert), ShouldBeTrue)
				So(c.TryFire(debounce.ClassSleepAlert), ShouldBeTrue)
			})

			Convey("And Reset re-arms it immediately", func() {
				c.Reset()
				So(c.Ready(debounce.ClassSleepAlert), ShouldBeTrue)
			})
		})

		Convey("When ticking with nothing armed", func() {
			c.Tick()

			Convey("Then every class stays ready", func() {
				So(c.Ready(debounce.ClassSleepAlert), ShouldBeTrue)
				So(c.Remaining(debounce.ClassSleepAlert), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a class without a configured cooldown", t, func() {
		c := debounce.New()

		Convey("Then it can fire every time", func() {
			So(c.TryFire("other"), ShouldBeTrue)
			So(c.TryFire("other"), ShouldBeTrue)
		})
	})

	Convey("Given a negative cooldown option", t, func() {
		c := debounce.New(debounce.WithCooldown(debounce.ClassSleepAlert, -5))

		Convey("Then it is ignored", func() {
			So(c.TryFire(debounce.ClassSleepAlert), ShouldBeTrue)
			So(c.TryFire(debounce.ClassSleepAlert), ShouldBeTrue)
		})
	})
}
