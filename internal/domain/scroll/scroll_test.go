package scroll_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/standings/internal/domain/scroll"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAdvance(t *testing.T) {
	Convey("Given offsets near the content height", t, func() {
		So(scroll.Advance(0, 1, 10), ShouldEqual, 1)
		So(scroll.Advance(8.5, 1, 10), ShouldEqual, 9.5)
		So(scroll.Advance(9.5, 1, 10), ShouldEqual, 0)
		So(scroll.Advance(9, 1, 10), ShouldEqual, 0)
		So(scroll.Advance(3, 25, 10), ShouldEqual, 0)
		So(scroll.Advance(3, 1, 0), ShouldEqual, 0)
	})

	Convey("Given many frames at odd speeds", t, func() {
		Convey("Then the offset never leaves [0, content)", func() {
			for _, speed := range []float64{0.3, 1, 2.7, 9.99} {
				off := 0.0
				for i := 0; i < 1000; i++ {
					off = scroll.Advance(off, speed, 37)
					So(off >= 0 && off < 37, ShouldBeTrue)
				}
			}
		})
	})
}

func TestAnimator(t *testing.T) {
	ctx := context.Background()

	Convey("Given a manually stepped animator", t, func() {
		a := scroll.New()

		Convey("When content fits the viewport", func() {
			started := a.Start(ctx, 300, 400, 1)

			Convey("Then scrolling is skipped and the offset stays 0", func() {
				So(started, ShouldBeFalse)
				So(a.Active(), ShouldBeFalse)
				So(a.Step(), ShouldEqual, 0)
			})
		})

		Convey("When content equals the viewport", func() {
			So(a.Start(ctx, 400, 400, 1), ShouldBeFalse)
		})

		Convey("When speed is not positive", func() {
			So(a.Start(ctx, 800, 400, 0), ShouldBeFalse)
		})

		Convey("When content is taller than the viewport", func() {
			So(a.Start(ctx, 5, 2, 2), ShouldBeTrue)

			Convey("Then steps advance and wrap at the content height", func() {
				So(a.Step(), ShouldEqual, 2)
				So(a.Step(), ShouldEqual, 4)
				So(a.Step(), ShouldEqual, 0)
				So(a.ContentHeight(), ShouldEqual, 5)
			})

			Convey("And restarting resets the offset", func() {
				a.Step()
				So(a.Start(ctx, 50, 2, 1), ShouldBeTrue)
				So(a.Offset(), ShouldEqual, 0)
				So(a.Step(), ShouldEqual, 1)
			})

			Convey("And restarting twice leaves one running animation", func() {
				So(a.Start(ctx, 50, 2, 1), ShouldBeTrue)
				So(a.Start(ctx, 50, 2, 1), ShouldBeTrue)
				So(a.Step(), ShouldEqual, 1)
			})

			Convey("And Stop makes it idle", func() {
				a.Stop()
				So(a.Active(), ShouldBeFalse)
				So(a.Step(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a self-driven animator", t, func() {
		frames := make(chan float64, 1024)
		a := scroll.New(
			scroll.WithFrameInterval(time.Millisecond),
			scroll.WithFrameListener(func(off float64) { frames <- off }),
		)
		defer a.Stop()

		Convey("When started", func() {
			So(a.Start(ctx, 10, 1, 3), ShouldBeTrue)

			Convey("Then frames arrive within bounds", func() {
				for i := 0; i < 5; i++ {
					select {
					case off := <-frames:
						So(off >= 0 && off < 10, ShouldBeTrue)
					case <-time.After(time.Second):
						So("no frame", ShouldBeEmpty)
					}
				}
			})

			Convey("Then a restart cancels the previous handle", func() {
				So(a.Start(ctx, 1000, 1, 0.5), ShouldBeTrue)
				a.Stop()
				for len(frames) > 0 {
					<-frames
				}
				time.Sleep(10 * time.Millisecond)
				So(len(frames), ShouldEqual, 0)
			})
		})
	})
}
