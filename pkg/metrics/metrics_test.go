package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(
			WithNamespace("test"),
			WithSubsystem("unit"),
			WithHistogramBuckets([]float64{1, 10, 100}),
			WithCustomLabels(map[string]string{"site": "malappuram"}),
			WithPrometheusRegistry(registry),
		)
		So(manager, ShouldNotBeNil)

		Convey("When a counter is incremented and the registry gathered", func() {
			manager.rotations.Inc()
			families, err := registry.Gather()
			So(err, ShouldBeNil)

			var found *dto.MetricFamily
			for _, mf := range families {
				if mf.GetName() == "test_unit_rotations_total" {
					found = mf
				}
			}

			Convey("Then the family uses the namespace, subsystem and constant labels", func() {
				So(found, ShouldNotBeNil)
				So(found.GetMetric(), ShouldHaveLength, 1)
				So(found.GetMetric()[0].GetCounter().GetValue(), ShouldEqual, 1)
				labels := found.GetMetric()[0].GetLabel()
				So(labels, ShouldHaveLength, 1)
				So(labels[0].GetName(), ShouldEqual, "site")
				So(labels[0].GetValue(), ShouldEqual, "malappuram")
			})
		})
	})
}

func TestRecordingHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording across every area", func() {
			So(func() {
				RecordRefresh("ok")
				RecordRefreshDuration(12)
				RecordFetchDuration("advisor", 8)
				RecordParseErrors("advisor", 0)
				UpdateDatasetRows("advisor", 10)
				UpdateDatasetStale("advisor", true)
				UpdateDatasetLastSuccess("advisor", time.Now())
				RecordRender()
				RecordLeaderChange("advisor", "today")
				RecordRotation()
				RecordSelection("mode")
				RecordConfigError()
				RecordConfigReload(false)
				RecordScrollRestart(false)
				UpdateQueueSize(1)
				UpdateQueueCapacity(64)
				RecordQueueEnqueue()
				RecordQueueDrop("full")
				RecordAlertDelivered("log")
				RecordAlertError("bell")
				UpdateWebSocketClients(2)
				RecordWebSocketBroadcast("board")
				RecordHTTPRequest("board", "GET", "200")
				RecordHTTPRequestDuration("board", "GET", "200", 3)
				RecordErrorByComponent("source", "fetch")
				RecordErrorByType("fetch", "medium")
				RecordErrorByEndpoint("view", "POST", "client_error")
				RecordErrorLatency("http", "client_error", 1)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
		})

		Convey("When fetch errors are recorded for two datasets", func() {
			before, err := Sum("fetch_errors_total")
			So(err, ShouldBeNil)
			RecordFetchError("advisor")
			RecordFetchError("technician")
			RecordParseErrors("technician", 3)

			Convey("Then Sum adds the samples of the family", func() {
				after, err := Sum("fetch_errors_total")
				So(err, ShouldBeNil)
				So(after-before, ShouldEqual, 2)
			})

			Convey("And an unknown family sums to zero", func() {
				v, err := Sum("does_not_exist_total")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 0)
			})

			Convey("And the text exposition names the families", func() {
				var buf bytes.Buffer
				So(WriteText(&buf), ShouldBeNil)
				So(buf.String(), ShouldContainSubstring, "standings_board_fetch_errors_total")
				So(buf.String(), ShouldContainSubstring, `dataset="technician"`)
				So(buf.String(), ShouldContainSubstring, "standings_board_parse_errors_total")
			})
		})

		Convey("When reading the registry", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
