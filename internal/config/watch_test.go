package config_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/standings/internal/config"
	"github.com/okian/standings/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestWatch(t *testing.T) {
	convey.Convey("Given a watched config file", t, func() {
		clearConfigEnvVars()
		path := filepath.Join(t.TempDir(), "standings.yaml")
		convey.So(os.WriteFile(path, []byte("top_n: 3\n"), 0o600), convey.ShouldBeNil)

		var (
			mu  sync.Mutex
			got []*config.Config
		)
		latest := func() *config.Config {
			mu.Lock()
			defer mu.Unlock()
			if len(got) == 0 {
				return nil
			}
			return got[len(got)-1]
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan error, 1)
		go func() {
			done <- config.Watch(ctx, path, func(c *config.Config) {
				mu.Lock()
				defer mu.Unlock()
				got = append(got, c)
			})
		}()
		// let the watcher register before writing
		time.Sleep(100 * time.Millisecond)

		convey.Convey("When the file is rewritten with a valid change", func() {
			convey.So(os.WriteFile(path, []byte("top_n: 7\n"), 0o600), convey.ShouldBeNil)

			convey.Convey("Then onChange receives the new config", func() {
				convey.So(eventually(func() bool {
					c := latest()
					return c != nil && c.TopN == 7
				}), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the file is rewritten with an invalid value", func() {
			convey.So(os.WriteFile(path, []byte("top_n: -4\n"), 0o600), convey.ShouldBeNil)
			time.Sleep(200 * time.Millisecond)

			convey.Convey("Then the invalid config is never delivered", func() {
				mu.Lock()
				defer mu.Unlock()
				for _, c := range got {
					// a truncating write may deliver the defaults first
					convey.So(c.TopN, convey.ShouldEqual, 3)
				}
			})

			convey.Convey("And a later fix is picked up", func() {
				convey.So(os.WriteFile(path, []byte("top_n: 9\n"), 0o600), convey.ShouldBeNil)
				convey.So(eventually(func() bool {
					c := latest()
					return c != nil && c.TopN == 9
				}), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			cancel()

			convey.Convey("Then Watch returns without error", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(2 * time.Second):
					t.Fatal("Watch did not return")
				}
			})
		})
	})

	convey.Convey("Given a path in a missing directory", t, func() {
		err := config.Watch(context.Background(), "/non/existent/dir/standings.yaml", func(*config.Config) {})

		convey.Convey("Then Watch fails at once", func() {
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
