package schedule_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/standings/pkg/schedule"
	. "github.com/smartystreets/goconvey/convey"
)

func waitDone(t *schedule.Ticker) bool {
	select {
	case <-t.Done():
		return true
	case <-time.After(time.Second):
		return false
	}
}

func TestTicker(t *testing.T) {
	Convey("Given a ticker firing every few milliseconds", t, func() {
		var calls atomic.Int64
		tk := schedule.Every(context.Background(), 5*time.Millisecond, func(context.Context, time.Time) {
			calls.Add(1)
		})

		Convey("Then it fires repeatedly", func() {
			So(func() bool {
				deadline := time.Now().Add(time.Second)
				for time.Now().Before(deadline) {
					if calls.Load() >= 3 {
						return true
					}
					time.Sleep(2 * time.Millisecond)
				}
				return false
			}(), ShouldBeTrue)
			tk.Stop()
		})

		Convey("When stopped twice", func() {
			tk.Stop()
			tk.Stop()

			Convey("Then the goroutine exits and no further ticks run", func() {
				So(waitDone(tk), ShouldBeTrue)
				So(tk.Stopped(), ShouldBeTrue)
				n := calls.Load()
				time.Sleep(20 * time.Millisecond)
				So(calls.Load(), ShouldEqual, n)
			})
		})
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		tk := schedule.Every(ctx, time.Millisecond, func(context.Context, time.Time) {})
		cancel()

		Convey("Then the ticker exits", func() {
			So(waitDone(tk), ShouldBeTrue)
		})
	})

	Convey("Given a non-positive interval", t, func() {
		tk := schedule.Every(context.Background(), 0, func(context.Context, time.Time) {})

		Convey("Then the ticker is born stopped", func() {
			So(tk.Stopped(), ShouldBeTrue)
			So(waitDone(tk), ShouldBeTrue)
		})
	})

	Convey("Given a slow ticker that is reset to a fast interval", t, func() {
		fired := make(chan struct{}, 1)
		tk := schedule.Every(context.Background(), time.Hour, func(context.Context, time.Time) {
			select {
			case fired <- struct{}{}:
			default:
			}
		})
		defer tk.Stop()
		tk.Reset(5 * time.Millisecond)

		Convey("Then it fires at the new pace", func() {
			select {
			case <-fired:
				So(true, ShouldBeTrue)
			case <-time.After(time.Second):
				So("timeout", ShouldBeEmpty)
			}
		})
	})
}

func TestGroup(t *testing.T) {
	Convey("Given a group with two tickers", t, func() {
		var g schedule.Group
		a := g.Every(context.Background(), 5*time.Millisecond, func(context.Context, time.Time) {})
		b := g.Every(context.Background(), 7*time.Millisecond, func(context.Context, time.Time) {})
		So(g.Len(), ShouldEqual, 2)

		Convey("When the group is stopped", func() {
			g.Stop()

			Convey("Then both tickers are torn down together", func() {
				So(waitDone(a), ShouldBeTrue)
				So(waitDone(b), ShouldBeTrue)
				So(g.Len(), ShouldEqual, 0)
			})
		})
	})
}
