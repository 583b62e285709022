package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"github.com/joho/godotenv"

	"github.com/okian/standings/internal/adapters/mq/worker"
	"github.com/okian/standings/internal/adapters/tui"
	app "github.com/okian/standings/internal/app"
	"github.com/okian/standings/internal/config"
	"github.com/okian/standings/pkg/logger"
)

const defaultFrame = 50 * time.Millisecond

func main() {
	var (
		logFile = flag.String("log", "board.log", "Log file, the terminal belongs to the board")
		frame   = flag.Duration("frame", defaultFrame, "How often the scroll position is redrawn")
		bell    = flag.Bool("bell", false, "Ring the terminal bell on a new leader")
	)
	flag.Parse()

	if !term.IsTerminal(os.Stdout.Fd()) {
		os.Stderr.WriteString("board needs a terminal; use the HTTP server for headless runs\n")
		os.Exit(1)
	}

	// A .env next to the binary is optional
	_ = godotenv.Load()

	f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		os.Stderr.WriteString("failed to open log file: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer f.Close()
	if err := logger.InitWithWriter(f); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}

	settings, err := cfg.Settings()
	if err != nil {
		os.Stderr.WriteString("invalid settings: " + err.Error() + "\n")
		os.Exit(1)
	}
	opts, err := cfg.ServiceOptions()
	if err != nil {
		os.Stderr.WriteString("invalid config: " + err.Error() + "\n")
		os.Exit(1)
	}

	feed := tui.NewFeed()
	opts = append(opts,
		app.WithLogger(log),
		app.WithListeners(feed),
		app.WithSinks(worker.NewLogSink(log.Named("alerts")), feed),
	)
	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer svc.Stop()

	tuiOpts := []tui.Option{tui.WithSettings(settings), tui.WithFrame(*frame)}
	if *bell {
		tuiOpts = append(tuiOpts, tui.WithBell(os.Stdout))
	}

	p := tea.NewProgram(tui.New(svc, feed, tuiOpts...), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		log.Error(ctx, "terminal board failed", logger.Error(err))
		os.Stderr.WriteString("board failed: " + err.Error() + "\n")
	}
}
