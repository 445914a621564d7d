package voice_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/okian/attend/internal/adapters/voice"
	"github.com/okian/attend/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type recordingSpeaker struct {
	said []string
	err  error
}

func (r *recordingSpeaker) Say(_ context.Context, text string) error {
	r.said = append(r.said, text)
	return r.err
}

func TestAnnouncer(t *testing.T) {
	Convey("Given an announcer with three messages", t, func() {
		sp := &recordingSpeaker{}
		a := voice.NewAnnouncer(sp, []string{"one", "two", "three"})

		Convey("When it announces four times", func() {
			for i := 0; i < 4; i++ {
				So(a.Announce(context.Background()), ShouldBeNil)
			}

			Convey("Then messages rotate in order", func() {
				So(sp.said, ShouldResemble, []string{"one", "two", "three", "one"})
			})
		})

		Convey("When the speaker fails", func() {
			sp.err = errors.New("tts down")

			Convey("Then the error is returned", func() {
				So(a.Announce(context.Background()), ShouldEqual, sp.err)
			})
		})
	})

	Convey("Given an announcer without messages", t, func() {
		a := voice.NewAnnouncer(&recordingSpeaker{}, nil)

		Convey("Then the defaults are used", func() {
			So(a.Next(), ShouldEqual, voice.DefaultMessages[0])
		})
	})
}

func TestLogSpeaker(t *testing.T) {
	Convey("Given a log speaker", t, func() {
		var buf bytes.Buffer
		So(logger.InitWithWriter(&buf), ShouldBeNil)

		Convey("Then the message is logged", func() {
			So(voice.LogSpeaker{}.Say(context.Background(), "wake up"), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "wake up")
		})
	})
}
