package capture_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/attend/internal/adapters/capture"
	"github.com/okian/attend/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestReplayFile(t *testing.T) {
	Convey("Given a replay file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "session.jsonl")
		content := strings.Join([]string{
			`# recorded at the desk`,
			`{"face_present":true,"yaw":3,"pitch":-1,"roll":0,"ear_left":0.31,"ear_right":0.29}`,
			``,
			`{"missed":true}`,
			`{"face_present":false}`,
			`{"lost":true}`,
		}, "\n")
		So(os.WriteFile(path, []byte(content), 0o600), ShouldBeNil)

		dev, err := capture.FromSource("replay:"+path, capture.WithFrameSize(320, 240))
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("When reading before open", func() {
			_, err := dev.Read(ctx)

			Convey("Then the device is unavailable", func() {
				So(errors.Is(err, capture.ErrDeviceUnavailable), ShouldBeTrue)
			})
		})

		Convey("When opened and read to the end", func() {
			So(dev.Open(ctx), ShouldBeNil)

			first, err := dev.Read(ctx)
			So(err, ShouldBeNil)
			_, missed := dev.Read(ctx)
			absent, err := dev.Read(ctx)
			So(err, ShouldBeNil)
			_, lost := dev.Read(ctx)
			_, end := dev.Read(ctx)

			Convey("Then frames carry samples and markers become errors", func() {
				So(first.Width, ShouldEqual, 320)
				So(first.Height, ShouldEqual, 240)
				So(first.Seq, ShouldEqual, 1)
				So(first.Sample.EARLeft, ShouldEqual, 0.31)
				So(errors.Is(missed, capture.ErrFrameMissed), ShouldBeTrue)
				So(absent.Sample.FacePresent, ShouldBeFalse)
				So(errors.Is(lost, capture.ErrDeviceLost), ShouldBeTrue)
				So(errors.Is(end, capture.ErrEndOfStream), ShouldBeTrue)
			})

			Convey("And after release reads report a lost device", func() {
				So(dev.Release(), ShouldBeNil)
				So(dev.Release(), ShouldBeNil)
				_, err := dev.Read(ctx)
				So(errors.Is(err, capture.ErrDeviceLost), ShouldBeTrue)
			})
		})
	})

	Convey("Given a missing replay file", t, func() {
		dev := capture.NewReplayFile(filepath.Join(t.TempDir(), "nope.jsonl"))

		Convey("Then open fails as unavailable", func() {
			err := dev.Open(context.Background())
			So(errors.Is(err, capture.ErrDeviceUnavailable), ShouldBeTrue)
			So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
		})
	})

	Convey("Given a malformed replay file", t, func() {
		_, err := capture.DecodeRecords(strings.NewReader("{\"yaw\":1}\nnot json\n"))

		Convey("Then the failing line is named", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "line 2")
		})
	})
}

func TestScripted(t *testing.T) {
	Convey("Given a looping scripted device", t, func() {
		dev := capture.NewScripted([]capture.Record{
			{MetricsSample: model.MetricsSample{FacePresent: true, Yaw: 1}},
			{MetricsSample: model.MetricsSample{FacePresent: true, Yaw: 2}},
		}, capture.WithLoop(true))
		ctx := context.Background()
		So(dev.Open(ctx), ShouldBeNil)

		Convey("Then it wraps around", func() {
			var yaws []float64
			for i := 0; i < 5; i++ {
				f, err := dev.Read(ctx)
				So(err, ShouldBeNil)
				yaws = append(yaws, f.Sample.Yaw)
			}
			So(yaws, ShouldResemble, []float64{1, 2, 1, 2, 1})
		})

		Convey("Then a canceled context stops reads", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := dev.Read(cctx)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestSampleAnalyzer(t *testing.T) {
	Convey("Given the sample analyzer", t, func() {
		a := capture.SampleAnalyzer{}

		Convey("When the frame carries a sample", func() {
			s := model.MetricsSample{FacePresent: true, Pitch: 12}
			got, err := a.Analyze(context.Background(), capture.Frame{Sample: &s})

			Convey("Then it is returned", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, s)
			})
		})

		Convey("When the frame has only pixels", func() {
			_, err := a.Analyze(context.Background(), capture.Frame{Seq: 9, Pixels: []byte{1, 2, 3}})

			Convey("Then it reports no sample", func() {
				So(errors.Is(err, capture.ErrNoSample), ShouldBeTrue)
			})
		})
	})
}

func TestFromSource(t *testing.T) {
	Convey("Given unsupported sources", t, func() {
		for _, src := range []string{"", "camera:0", "replay:"} {
			_, err := capture.FromSource(src)
			So(errors.Is(err, capture.ErrUnsupportedSource), ShouldBeTrue)
		}
	})
}

func TestWriteRecords(t *testing.T) {
	Convey("Given records written to a buffer", t, func() {
		var buf bytes.Buffer
		in := []capture.Record{
			{MetricsSample: model.MetricsSample{FacePresent: true, EARLeft: 0.1, EARRight: 0.1}},
			{Missed: true},
		}
		So(capture.WriteRecords(&buf, in), ShouldBeNil)

		Convey("Then they decode back with markers intact", func() {
			out, err := capture.DecodeRecords(&buf)
			So(err, ShouldBeNil)
			So(out, ShouldResemble, in)
		})
	})
}
