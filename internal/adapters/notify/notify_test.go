package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/attend/internal/adapters/notify"
	"github.com/okian/attend/internal/domain/model"
	"github.com/okian/attend/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type captured struct {
	mu       sync.Mutex
	payloads []notify.Payload
	headers  []http.Header
}

func (c *captured) handler(status func(n int) int) http.HandlerFunc {
	var calls int32
	return func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1))
		var p notify.Payload
		_ = json.NewDecoder(r.Body).Decode(&p)
		c.mu.Lock()
		c.payloads = append(c.payloads, p)
		c.headers = append(c.headers, r.Header.Clone())
		c.mu.Unlock()
		w.WriteHeader(status(n))
	}
}

func (c *captured) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

func sampleEvent() model.Event {
	return model.Event{
		ID:        "ev-42",
		RunID:     "run-1",
		Seq:       42,
		Timestamp: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		State:     model.StateSleeping,
		Interval:  3 * time.Second,
	}
}

func TestWebhook(t *testing.T) {
	_ = logger.Init()

	Convey("Given a webhook endpoint that accepts everything", t, func() {
		c := &captured{}
		srv := httptest.NewServer(c.handler(func(int) int { return http.StatusAccepted }))
		defer srv.Close()
		n := notify.New(srv.URL, "secret-key")

		Convey("When a state change is notified", func() {
			err := n.Notify(context.Background(), model.StateSleeping, sampleEvent())

			Convey("Then one authenticated request carries the event", func() {
				So(err, ShouldBeNil)
				So(c.count(), ShouldEqual, 1)
				So(c.headers[0].Get("Authorization"), ShouldEqual, "Bearer secret-key")
				So(c.headers[0].Get("Idempotency-Key"), ShouldEqual, "ev-42:state_change")
				So(c.payloads[0].Kind, ShouldEqual, notify.KindStateChange)
				So(c.payloads[0].State, ShouldEqual, "sleeping")
				So(c.payloads[0].Metadata["event_id"], ShouldEqual, "ev-42")
			})
		})

		Convey("When an intervention is sent", func() {
			recent := []model.State{model.StateAttentive, model.StateLookingAway, model.StateSleeping}
			err := n.Intervene(context.Background(), recent, sampleEvent())

			Convey("Then the recent history is included", func() {
				So(err, ShouldBeNil)
				So(c.payloads[0].Kind, ShouldEqual, notify.KindIntervention)
				So(c.payloads[0].RecentStates, ShouldResemble, []string{"attentive", "looking_away", "sleeping"})
			})
		})
	})

	Convey("Given an endpoint that fails once with 503", t, func() {
		c := &captured{}
		srv := httptest.NewServer(c.handler(func(n int) int {
			if n == 1 {
				return http.StatusServiceUnavailable
			}
			return http.StatusOK
		}))
		defer srv.Close()
		n := notify.NewWebhook(srv.URL, "", notify.WithRetries(2), notify.WithBaseDelay(time.Millisecond))

		Convey("Then the retry delivers it without an auth header", func() {
			So(n.Notify(context.Background(), model.StateAttentive, sampleEvent()), ShouldBeNil)
			So(c.count(), ShouldEqual, 2)
			So(c.headers[1].Get("Authorization"), ShouldBeEmpty)
		})
	})

	Convey("Given an endpoint that rejects the request", t, func() {
		c := &captured{}
		srv := httptest.NewServer(c.handler(func(int) int { return http.StatusUnauthorized }))
		defer srv.Close()
		n := notify.NewWebhook(srv.URL, "bad", notify.WithRetries(3), notify.WithBaseDelay(time.Millisecond))

		Convey("Then it fails fast without retrying", func() {
			err := n.Notify(context.Background(), model.StateAttentive, sampleEvent())
			So(errors.Is(err, notify.ErrDelivery), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "401")
			So(c.count(), ShouldEqual, 1)
		})
	})

	Convey("Given an endpoint that always fails", t, func() {
		c := &captured{}
		srv := httptest.NewServer(c.handler(func(int) int { return http.StatusInternalServerError }))
		defer srv.Close()
		n := notify.NewWebhook(srv.URL, "k", notify.WithRetries(2), notify.WithBaseDelay(time.Millisecond), notify.WithTimeout(time.Second))

		Convey("Then every retry is used before giving up", func() {
			err := n.Notify(context.Background(), model.StateAttentive, sampleEvent())
			So(errors.Is(err, notify.ErrDelivery), ShouldBeTrue)
			So(c.count(), ShouldEqual, 3)
		})
	})

	Convey("Given a canceled context", t, func() {
		c := &captured{}
		srv := httptest.NewServer(c.handler(func(int) int { return http.StatusOK }))
		defer srv.Close()
		n := notify.NewWebhook(srv.URL, "k")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("Then delivery fails with the context error", func() {
			err := n.Notify(ctx, model.StateAttentive, sampleEvent())
			So(errors.Is(err, notify.ErrDelivery), ShouldBeTrue)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

type stubNotifier struct {
	notified   int
	intervened int
	err        error
}

func (s *stubNotifier) Notify(context.Context, model.State, model.Event) error {
	s.notified++
	return s.err
}

func (s *stubNotifier) Intervene(context.Context, []model.State, model.Event) error {
	s.intervened++
	return s.err
}

func TestCombine(t *testing.T) {
	Convey("Given no configured endpoint", t, func() {
		Convey("Then notifications are silently dropped", func() {
			n := notify.New("", "key")
			So(n, ShouldHaveSameTypeAs, notify.Nop{})
			So(n.Notify(context.Background(), model.StateSleeping, sampleEvent()), ShouldBeNil)
			So(n.Intervene(context.Background(), nil, sampleEvent()), ShouldBeNil)
		})
	})

	Convey("Given several backends where one fails", t, func() {
		boom := errors.New("down")
		a := &stubNotifier{err: boom}
		b := &stubNotifier{}
		n := notify.Combine(a, nil, notify.Nop{}, b)

		Convey("Then all are called and the failure is reported", func() {
			err := n.Notify(context.Background(), model.StateSleeping, sampleEvent())
			So(errors.Is(err, boom), ShouldBeTrue)
			So(a.notified, ShouldEqual, 1)
			So(b.notified, ShouldEqual, 1)

			So(errors.Is(n.Intervene(context.Background(), nil, sampleEvent()), boom), ShouldBeTrue)
			So(b.intervened, ShouldEqual, 1)
		})
	})

	Convey("Given a single real backend", t, func() {
		a := &stubNotifier{}

		Convey("Then it is returned as is", func() {
			So(notify.Combine(notify.Nop{}, a), ShouldEqual, a)
			So(notify.Combine(), ShouldHaveSameTypeAs, notify.Nop{})
		})
	})
}
