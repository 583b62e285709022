package feedsim

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/okian/standings/internal/config"
	"github.com/okian/standings/internal/domain/scoring"
	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/pkg/logger"
	"github.com/okian/standings/pkg/schedule"
)

const (
	shutdownTimeout = 5 * time.Second
	readTimeout     = 10 * time.Second
)

// Run serves simulated feeds until ctx ends. When cfg.BoardURL is set the
// running board is refreshed and every view is checked against locally
// computed standings before drift starts.
func Run(ctx context.Context, cfg *Config) error {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("feedsim")

	log.Info(ctx, "starting feed simulator",
		logger.String("addr", cfg.Addr),
		logger.Int("advisors", cfg.Advisors),
		logger.Int("technicians", cfg.Technicians),
		logger.Duration("drift", cfg.DriftInterval),
		logger.String("boardURL", cfg.BoardURL),
		logger.Bool("messy", cfg.Messy),
		logger.Bool("verbose", cfg.Verbose))

	var opts []GeneratorOption
	if cfg.Messy {
		opts = append(opts, WithMessyCells())
	}
	gen := NewGenerator(cfg.Advisors, cfg.Technicians, opts...)
	srv := NewServer(gen, stats)

	// Step 1: Start the feed server
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	httpSrv := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: readTimeout}
	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	log.Info(ctx, "serving feeds", logger.String("url", "http://"+ln.Addr().String()+"/feeds/"))

	// Step 2: Verify a running board against the simulated sheets
	if cfg.BoardURL != "" {
		if err := VerifyBoard(ctx, cfg, gen, stats); err != nil {
			log.Warn(ctx, "board verification failed", logger.Error(err))
		}
	}

	// Step 3: Drift so leaders change over time
	ticker := schedule.Every(ctx, cfg.DriftInterval, func(ctx context.Context, _ time.Time) {
		n := gen.Drift()
		stats.Drifts.Add(1)
		log.Debug(ctx, "drifted", logger.Int("updated", n))
	})
	defer ticker.Stop()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("feed server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn(ctx, "feed server shutdown", logger.Error(err))
	}

	log.Info(context.Background(), "feed simulator stopped",
		logger.Any("requests", stats.Requests.Load()),
		logger.Any("failures", stats.Failures.Load()),
		logger.Any("drifts", stats.Drifts.Load()),
		logger.Any("verifications", stats.Verifications.Load()),
		logger.Any("mismatches", stats.Mismatches.Load()),
		logger.Duration("uptime", time.Since(stats.StartTime)))
	return nil
}

// VerifyBoard refreshes the board at cfg.BoardURL and compares every
// dataset and mode with the standings computed from gen. The board must be
// configured with the default feed schema.
func VerifyBoard(ctx context.Context, cfg *Config, gen *Generator, stats *Stats) error {
	log := logger.Get().Named("feedsim")
	client := &http.Client{Timeout: cfg.Timeout}

	if err := TriggerRefresh(ctx, client, cfg.BoardURL); err != nil {
		return err
	}

	defaults := config.New()
	feeds, err := defaults.SourceFeeds()
	if err != nil {
		return err
	}
	scorer := scoring.NewEngine(defaults.ScoringOptions()...)

	var errs []error
	for _, feed := range feeds {
		table, ok := gen.Table(feed.Dataset)
		if !ok {
			continue
		}
		for _, mode := range types.Modes {
			board := types.Board{Dataset: feed.Dataset, Mode: mode}
			stats.Verifications.Add(1)

			expected, err := Expected(table, feed, mode, scorer)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", board, err))
				continue
			}
			got, err := FetchLeaderboard(ctx, client, cfg.BoardURL, feed.Dataset, mode, 0)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", board, err))
				continue
			}
			if err := Compare(expected, got); err != nil {
				stats.Mismatches.Add(1)
				errs = append(errs, fmt.Errorf("%s: %w", board, err))
				continue
			}
			log.Info(ctx, "leaderboard consistency verified", logger.String("board", board.String()), logger.Int("entries", len(got)))
			logTopPerformers(ctx, log, board, got, cfg.Verbose)
		}
	}
	return errors.Join(errs...)
}
