package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/standings/internal/config"
	"github.com/okian/standings/internal/domain/types"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.RefreshIntervalMS, convey.ShouldEqual, 30_000)
				convey.So(cfg.Feeds, convey.ShouldHaveLength, 2)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("STANDINGS_ADDR", ":8080")
			_ = os.Setenv("STANDINGS_REFRESH_INTERVAL_MS", "5000")
			_ = os.Setenv("STANDINGS_AUTO_ROTATE", "false")
			_ = os.Setenv("STANDINGS_ROTATION", "total:advisor,today:technician")
			_ = os.Setenv("STANDINGS_FEEDS__ADVISOR__URL", "https://sheets.example/advisor.csv")
			_ = os.Setenv("STANDINGS_SCORING__WEIGHTS__LOAD", "4")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.RefreshIntervalMS, convey.ShouldEqual, 5000)
				convey.So(cfg.AutoRotate, convey.ShouldBeFalse)
				convey.So(cfg.Rotation, convey.ShouldResemble, []string{"total:advisor", "today:technician"})
				convey.So(cfg.Scoring.Weights.Load, convey.ShouldEqual, 4.0)
				convey.So(cfg.Scoring.Weights.Labour, convey.ShouldEqual, 3.0)
			})

			convey.Convey("Then a nested feed override keeps the other feed and the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Feeds, convey.ShouldHaveLength, 2)
				convey.So(cfg.Feeds["advisor"].URL, convey.ShouldEqual, "https://sheets.example/advisor.csv")
				convey.So(cfg.Feeds["advisor"].NameColumns, convey.ShouldResemble, []string{"Advisor Name", "Name"})
				convey.So(cfg.Feeds["advisor"].PictureColumn, convey.ShouldEqual, "PIC")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
refresh_interval_ms: 10000
title_prefix: Malappuram
feeds:
  advisor:
    url: https://sheets.example/advisor.json
    format: json
    data_path: data
    skip_unnamed: true
  Technician:
    url: ./technician.xlsx
    sheet: Workshop
scoring:
  columns:
    total:
      labour: Total Labour
`
			tmpFile := createTempConfigFile(t, yamlContent)
			_ = os.Setenv("STANDINGS_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.RefreshIntervalMS, convey.ShouldEqual, 10000)
				convey.So(cfg.TitlePrefix, convey.ShouldEqual, "Malappuram")
				convey.So(cfg.RotationIntervalMS, convey.ShouldEqual, 60_000)
				convey.So(cfg.Scoring.Columns["total"].Labour, convey.ShouldEqual, "Total Labour")
			})

			convey.Convey("Then feed ids are normalized and defaults filled", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Feeds["advisor"].Format, convey.ShouldEqual, "json")
				convey.So(cfg.Feeds["advisor"].SkipUnnamed, convey.ShouldBeTrue)
				convey.So(cfg.Feeds["technician"].Sheet, convey.ShouldEqual, "Workshop")
				convey.So(cfg.Feeds["technician"].NameColumns, convey.ShouldResemble, []string{"Technician Name", "Name"})
			})
		})

		convey.Convey("When the file lists its own feeds", func() {
			yamlContent := `
feeds:
  manager:
    url: ./manager.csv
    name_columns: [Manager]
`
			_ = os.Setenv("STANDINGS_CONFIG", createTempConfigFile(t, yamlContent))

			cfg, err := config.Load(ctx)

			convey.Convey("Then they replace the default feeds", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Feeds, convey.ShouldHaveLength, 1)
				convey.So(cfg.Feeds["manager"].NameColumns, convey.ShouldResemble, []string{"Manager"})
				convey.So(cfg.InitialView().Dataset, convey.ShouldEqual, types.DatasetID("manager"))
			})
		})

		convey.Convey("When both file and environment variables are set", func() {
			yamlContent := `
addr: ":9090"
top_n: 5
`
			_ = os.Setenv("STANDINGS_CONFIG", createTempConfigFile(t, yamlContent))
			_ = os.Setenv("STANDINGS_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.TopN, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			_ = os.Setenv("STANDINGS_CONFIG", createTempConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_ = os.Setenv("STANDINGS_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		for _, tc := range []struct{ name, yaml string }{
			{"empty addr", `addr: ""`},
			{"unknown log level", `log_level: chatty`},
			{"zero refresh", `refresh_interval_ms: 0`},
			{"negative top_n", `top_n: -1`},
			{"unknown feed format", "feeds:\n  advisor:\n    url: ./a.csv\n    format: pdf"},
			{"feed without url", "feeds:\n  manager:\n    format: csv"},
			{"unknown initial mode", `initial_mode: weekly`},
			{"initial dataset missing", `initial_dataset: manager`},
			{"rotation without feed", "rotation: [\"today:manager\"]"},
			{"malformed rotation", "rotation: [\"today\"]"},
			{"unknown scoring mode", "scoring:\n  columns:\n    weekly:\n      load: X"},
		} {
			convey.Convey("When the file has "+tc.name, func() {
				_ = os.Setenv("STANDINGS_CONFIG", createTempConfigFile(t, tc.yaml))

				cfg, err := config.Load(ctx)

				convey.Convey("Then it should return a validation error", func() {
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					convey.So(cfg, convey.ShouldBeNil)
				})
			})
		}
	})
}

// Helper functions.

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, config.EnvPrefix) {
			_ = os.Unsetenv(name)
		}
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "standings.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
