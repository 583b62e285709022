// Package service runs the board: it refreshes datasets on a timer, ranks
// and renders the selected view, rotates through views, drives the scroll
// animation and hands leader changes to the alert worker.
//
// All mutable board state (selection, leader records, timers, settings) is
// owned by a single loop goroutine. Timers, fetch completions and callers
// post commands to it; readers get immutable snapshots.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/standings/internal/adapters/mq/queue"
	"github.com/okian/standings/internal/adapters/mq/worker"
	"github.com/okian/standings/internal/adapters/repository"
	"github.com/okian/standings/internal/adapters/source"
	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/internal/domain/ranking"
	"github.com/okian/standings/internal/domain/render"
	"github.com/okian/standings/internal/domain/scoring"
	"github.com/okian/standings/internal/domain/scroll"
	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/internal/domain/view"
	"github.com/okian/standings/pkg/logger"
	"github.com/okian/standings/pkg/metrics"
	"github.com/okian/standings/pkg/schedule"
)

const (
	defaultQueueSize = 64
	commandBuffer    = 64
)

// Scorer scores rows and names the metric columns of each mode.
type Scorer interface {
	scoring.Scorer
	Columns(mode types.Mode) scoring.Columns
}

// BoardListener receives every rendered board. It is called on the loop
// goroutine and must not block.
type BoardListener interface {
	OnBoard(b render.Board)
}

// BoardListenerFunc adapts a function to BoardListener.
type BoardListenerFunc func(b render.Board)

// OnBoard implements BoardListener.
func (f BoardListenerFunc) OnBoard(b render.Board) { f(b) }

type command func(ctx context.Context)

// Service is the board controller.
type Service struct {
	mu sync.RWMutex

	// fixed after New
	source    source.Source
	datasets  []types.DatasetID
	schemas   map[types.DatasetID]types.Schema
	store     repository.Store
	storeErr  error
	scorer    Scorer
	tracker   *ranking.Tracker
	animator  *scroll.Animator
	sinks     []worker.Sink
	listeners []BoardListener
	initial   view.State
	queueSize int
	now       func() time.Time
	logger    logger.Logger

	scrollFrame time.Duration

	// owned by the loop goroutine once started
	settings Settings
	selector *view.Selector
	timers   *schedule.Group

	// lifecycle, guarded by mu
	started bool
	cmds    chan command
	loopCtx context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	alerts  *queue.InMemoryQueue
	pool    *worker.Pool

	// published for readers
	renderer atomic.Pointer[render.Renderer]
	board    atomic.Pointer[render.Board]
	view     atomic.Pointer[view.State]

	refreshes     atomic.Uint64
	failures      atomic.Uint64
	rotations     atomic.Uint64
	leaderChanges atomic.Uint64
	alertsDropped atomic.Uint64
	inflight      atomic.Int64
	lastRefresh   atomic.Int64
}

// New constructs a Service. Start validates the configuration.
func New(opts ...Option) *Service {
	s := &Service{
		schemas:   make(map[types.DatasetID]types.Schema),
		scorer:    scoring.NewEngine(),
		tracker:   ranking.NewTracker(),
		settings:  DefaultSettings(),
		queueSize: defaultQueueSize,
		now:       time.Now,
		logger:    logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store, s.storeErr = repository.NewMemoryStore(s.datasets)
	}
	s.animator = scroll.New(scroll.WithFrameInterval(s.scrollFrame))
	s.renderer.Store(s.newRenderer(s.settings))
	return s
}

func (s *Service) newRenderer(settings Settings) *render.Renderer {
	return render.New(
		render.WithTopN(settings.TopN),
		render.WithTitlePrefix(settings.TitlePrefix),
		render.WithUnknownName(settings.UnknownName),
		render.WithPicturePlaceholder(settings.PicturePlaceholder),
		render.WithClock(s.now),
	)
}

// Start mounts the board: it starts the loop, the alert worker and the
// refresh and rotation timers, and fetches every dataset immediately.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.source == nil {
		return ErrNoSource
	}
	if len(s.datasets) == 0 {
		return ErrNoDatasets
	}
	if s.storeErr != nil {
		return fmt.Errorf("dataset store: %w", s.storeErr)
	}

	initial := s.initial
	if initial.Mode == "" {
		initial.Mode = types.ModeToday
	}
	if initial.Dataset == "" {
		initial.Dataset = s.datasets[0]
	}
	sel, err := view.NewSelector(initial, s.datasets, s.settings.Rotation)
	if err != nil {
		metrics.RecordConfigError()
		return fmt.Errorf("initial view: %w", err)
	}
	s.selector = sel
	st := sel.Current()
	s.view.Store(&st)

	sinks := s.sinks
	if len(sinks) == 0 {
		sinks = []worker.Sink{worker.NewLogSink(s.logger.Named("alerts"))}
	}
	s.alerts = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(1, s.alerts, sinks)
	// the pool outlives the loop so pending alerts drain on Stop
	s.pool.Start(context.WithoutCancel(ctx))

	s.loopCtx, s.cancel = context.WithCancel(ctx)
	s.cmds = make(chan command, commandBuffer)
	s.done = make(chan struct{})
	s.timers = s.startTimers(s.loopCtx, s.settings)
	s.started = true

	s.cmds <- func(ctx context.Context) { s.startRefresh(ctx, nil) }
	go s.run(s.loopCtx, s.cmds, s.done)

	s.logger.Info(ctx, "board started",
		logger.String("view", st.String()),
		logger.Int("datasets", len(s.datasets)),
		logger.Duration("refresh", s.settings.RefreshInterval),
		logger.Duration("rotation", s.settings.RotationInterval),
		logger.Bool("autoRotate", s.settings.AutoRotate))
	return nil
}

// Stop unmounts the board. Every timer and the scroll animation stop,
// pending alerts are delivered, and the board, cache and leader records are
// cleared.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cancel()
	done, pool := s.done, s.pool
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping board...")

	<-done
	// the loop has exited, so its state is ours now
	s.timers.Stop()
	s.animator.Stop()
	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "alert worker shutdown", logger.Error(err))
	}

	s.board.Store(nil)
	s.store.Reset(ctx)
	s.tracker.Reset()
	s.logger.Info(ctx, "board stopped")
}

func (s *Service) run(ctx context.Context, cmds <-chan command, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-cmds:
			cmd(ctx)
		}
	}
}

// post hands cmd to the loop. It returns false when the board is stopped.
func (s *Service) post(cmd command) bool {
	s.mu.RLock()
	started, ctx, cmds := s.started, s.loopCtx, s.cmds
	s.mu.RUnlock()
	if !started {
		return false
	}
	select {
	case cmds <- cmd:
		return true
	case <-ctx.Done():
		return false
	}
}

// loopDone is closed when the current loop exits.
func (s *Service) loopDone() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

func (s *Service) startTimers(ctx context.Context, settings Settings) *schedule.Group {
	g := &schedule.Group{}
	g.Every(ctx, settings.RefreshInterval, func(context.Context, time.Time) {
		s.post(func(ctx context.Context) { s.startRefresh(ctx, nil) })
	})
	if settings.AutoRotate {
		g.Every(ctx, settings.RotationInterval, func(context.Context, time.Time) {
			s.post(s.rotate)
		})
	}
	return g
}

// startRefresh fetches every dataset in the background. Refreshes are not
// cancelled by later ones; results apply in completion order.
func (s *Service) startRefresh(ctx context.Context, done chan<- struct{}) {
	id := uuid.NewString()
	datasets := append([]types.DatasetID(nil), s.datasets...)
	s.inflight.Add(1)
	s.logger.Debug(ctx, "refresh started", logger.String("refresh", id))

	go func() {
		defer s.inflight.Add(-1)
		start := time.Now()
		results := source.FetchAll(ctx, s.source, datasets)
		took := time.Since(start)
		s.post(func(ctx context.Context) {
			s.apply(ctx, id, results, took)
			if done != nil {
				close(done)
			}
		})
	}()
}

func (s *Service) apply(ctx context.Context, id string, results []source.Result, took time.Duration) {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			s.failures.Add(1)
			if _, err := s.store.Fail(ctx, r.Dataset, r.Err); err != nil {
				s.logger.Error(ctx, "record fetch failure", logger.Error(err))
			}
			s.logger.Warn(ctx, "dataset fetch failed, keeping previous rows",
				logger.String("refresh", id),
				logger.String("dataset", string(r.Dataset)),
				logger.Error(r.Err))
			continue
		}
		if _, err := s.store.Replace(ctx, r.Dataset, r.Rows); err != nil {
			s.logger.Error(ctx, "replace dataset", logger.String("dataset", string(r.Dataset)), logger.Error(err))
			continue
		}
		s.detectLeaders(ctx, r.Dataset, r.Rows)
	}

	outcome := "ok"
	switch {
	case failed == len(results) && failed > 0:
		outcome = "failed"
	case failed > 0:
		outcome = "partial"
	}
	metrics.RecordRefresh(outcome)
	metrics.RecordRefreshDuration(float64(took.Milliseconds()))
	s.refreshes.Add(1)
	s.lastRefresh.Store(s.now().UnixNano())

	s.logger.Debug(ctx, "refresh applied",
		logger.String("refresh", id),
		logger.String("outcome", outcome),
		logger.Duration("took", took))
	s.render(ctx)
}

// detectLeaders ranks a fresh dataset in every mode and queues an alert for
// each board whose rank-one identity changed.
func (s *Service) detectLeaders(ctx context.Context, dataset types.DatasetID, rows []types.Row) {
	schema := s.schemas[dataset]
	for _, mode := range types.Modes {
		board := types.Board{Dataset: dataset, Mode: mode}
		name, score, _ := ranking.Leader(ranking.Rank(rows, mode, s.scorer), schema)
		previous, changed := s.tracker.Observe(board, name)
		if !changed {
			continue
		}

		change := model.NewLeaderChange(board, previous, name, score, s.now())
		s.leaderChanges.Add(1)
		metrics.RecordLeaderChange(string(dataset), string(mode))
		s.logger.Info(ctx, "leader changed",
			logger.String("board", board.String()),
			logger.String("previous", previous),
			logger.String("leader", name))
		if err := s.alerts.Enqueue(ctx, change); err != nil {
			s.alertsDropped.Add(1)
			s.logger.Warn(ctx, "leader alert dropped", logger.String("eventID", change.EventID), logger.Error(err))
		}
	}
}

func (s *Service) rotate(ctx context.Context) {
	st := s.selector.Advance()
	s.rotations.Add(1)
	metrics.RecordRotation()
	s.logger.Debug(ctx, "view rotated", logger.String("view", st.String()))
	s.render(ctx)
}

// render publishes the board of the current view, restarts the scroll and
// notifies listeners.
func (s *Service) render(ctx context.Context) {
	st := s.selector.Current()
	b := s.buildBoard(ctx, st)
	s.board.Store(&b)
	s.view.Store(&st)
	metrics.RecordRender()

	s.restartScroll(ctx, len(b.Records))
	for _, l := range s.listeners {
		l.OnBoard(b)
	}
}

func (s *Service) restartScroll(ctx context.Context, rows int) {
	content := float64(rows) * s.settings.RowHeight
	active := s.animator.Start(ctx, content, s.settings.ViewportHeight, s.settings.ScrollSpeed)
	metrics.RecordScrollRestart(active)
}

// buildBoard renders st from the cache. It only reads shared state and is
// safe from any goroutine.
func (s *Service) buildBoard(ctx context.Context, st view.State) render.Board {
	r := s.renderer.Load()
	snap, err := s.store.Get(ctx, st.Dataset)
	if err != nil {
		b := r.Render(nil, st, s.schemas[st.Dataset], s.scorer.Columns(st.Mode))
		b.Status = err.Error()
		b.Stale = true
		return b
	}
	ranked := ranking.Rank(snap.Rows, st.Mode, s.scorer)
	b := r.Render(ranked, st, s.schemas[st.Dataset], s.scorer.Columns(st.Mode))
	b.Status = status(snap)
	b.Stale = snap.Stale()
	b.FetchedAt = snap.FetchedAt
	return b
}

// status describes the freshness of a snapshot for the board footer.
func status(snap repository.Snapshot) string {
	const clock = "15:04:05"
	switch {
	case snap.Stale() && snap.Loaded():
		return fmt.Sprintf("Update failed at %s (%v); showing data from %s",
			snap.FailedAt.Format(clock), snap.Err, snap.FetchedAt.Format(clock))
	case snap.Stale():
		return fmt.Sprintf("No data: %v", snap.Err)
	case snap.Loaded():
		return "Updated " + snap.FetchedAt.Format(clock)
	default:
		return "Waiting for data"
	}
}

// Board returns the last rendered board of the current view.
func (s *Service) Board() (render.Board, bool) {
	b := s.board.Load()
	if b == nil {
		return render.Board{}, false
	}
	return *b, true
}

// BoardFor renders any dataset and mode from the cache without changing the
// current view. Invalid names return a view.ErrConfig error.
func (s *Service) BoardFor(ctx context.Context, mode, dataset string) (render.Board, error) {
	m, err := types.ParseMode(mode)
	if err != nil {
		return render.Board{}, fmt.Errorf("%w: %w", view.ErrConfig, err)
	}
	d, err := types.ParseDataset(dataset)
	if err != nil {
		return render.Board{}, fmt.Errorf("%w: %w", view.ErrConfig, err)
	}
	if _, ok := s.schemas[d]; !ok {
		return render.Board{}, fmt.Errorf("%w: %w: %q", view.ErrConfig, types.ErrUnknownDataset, dataset)
	}
	return s.buildBoard(ctx, view.State{Mode: m, Dataset: d}), nil
}

// CurrentView returns the selected view.
func (s *Service) CurrentView() view.State {
	if st := s.view.Load(); st != nil {
		return *st
	}
	return s.initial
}

// Datasets returns the configured datasets in registration order.
func (s *Service) Datasets() []types.DatasetID {
	return append([]types.DatasetID(nil), s.datasets...)
}

// Select switches mode and dataset together; an empty value keeps the
// current one. An invalid value returns a view.ErrConfig error and the view
// is unchanged. A successful selection re-renders immediately.
func (s *Service) Select(ctx context.Context, mode, dataset string) (view.State, error) {
	type reply struct {
		st  view.State
		err error
	}
	ch := make(chan reply, 1)
	ok := s.post(func(ctx context.Context) {
		st, err := s.selector.Select(mode, dataset)
		if err != nil {
			metrics.RecordConfigError()
			ch <- reply{st, err}
			return
		}
		metrics.RecordSelection(selectionKind(mode, dataset))
		s.render(ctx)
		ch <- reply{st, nil}
	})
	if !ok {
		return s.CurrentView(), ErrNotStarted
	}
	select {
	case r := <-ch:
		return r.st, r.err
	case <-ctx.Done():
		return s.CurrentView(), ctx.Err()
	case <-s.loopDone():
		return s.CurrentView(), ErrNotStarted
	}
}

// SelectMode switches the mode of the current view.
func (s *Service) SelectMode(ctx context.Context, mode string) (view.State, error) {
	if mode == "" {
		return s.CurrentView(), fmt.Errorf("%w: %w: empty", view.ErrConfig, types.ErrUnknownMode)
	}
	return s.Select(ctx, mode, "")
}

// SelectDataset switches the dataset of the current view.
func (s *Service) SelectDataset(ctx context.Context, dataset string) (view.State, error) {
	if dataset == "" {
		return s.CurrentView(), fmt.Errorf("%w: %w: empty", view.ErrConfig, types.ErrUnknownDataset)
	}
	return s.Select(ctx, "", dataset)
}

func selectionKind(mode, dataset string) string {
	switch {
	case mode != "" && dataset != "":
		return "view"
	case mode != "":
		return "mode"
	default:
		return "dataset"
	}
}

// Refresh fetches every dataset now and waits until the results are applied.
func (s *Service) Refresh(ctx context.Context) error {
	done := make(chan struct{})
	if !s.post(func(ctx context.Context) { s.startRefresh(ctx, done) }) {
		return ErrNotStarted
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.loopDone():
		return ErrNotStarted
	}
}

// Resize sets the visible height and restarts the scroll for it.
func (s *Service) Resize(viewportHeight float64) error {
	if !s.post(func(ctx context.Context) {
		s.settings.ViewportHeight = viewportHeight
		if b := s.board.Load(); b != nil {
			s.restartScroll(ctx, len(b.Records))
		}
	}) {
		return ErrNotStarted
	}
	return nil
}

// Reconfigure applies new settings while running: timers restart with the
// new intervals and the board re-renders. An invalid rotation is rejected
// and nothing changes.
func (s *Service) Reconfigure(ctx context.Context, settings Settings) error {
	errCh := make(chan error, 1)
	ok := s.post(func(ctx context.Context) {
		if err := s.selector.SetRotation(settings.Rotation); err != nil {
			metrics.RecordConfigError()
			errCh <- err
			return
		}
		s.settings = settings
		s.renderer.Store(s.newRenderer(settings))
		s.timers.Stop()
		s.timers = s.startTimers(ctx, settings)
		s.render(ctx)
		s.logger.Info(ctx, "board reconfigured",
			logger.Duration("refresh", settings.RefreshInterval),
			logger.Duration("rotation", settings.RotationInterval),
			logger.Bool("autoRotate", settings.AutoRotate))
		errCh <- nil
	})
	if !ok {
		return ErrNotStarted
	}
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.loopDone():
		return ErrNotStarted
	}
}

// ScrollOffset returns the current scroll offset, in [0, content height).
func (s *Service) ScrollOffset() float64 { return s.animator.Offset() }

// StepScroll advances the scroll by one frame for surfaces that drive frames
// themselves.
func (s *Service) StepScroll() float64 { return s.animator.Step() }

// Scrolling reports whether the scroll animation is running.
func (s *Service) Scrolling() bool { return s.animator.Active() }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started, alerts := s.started, s.alerts
	s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         started,
		"datasets":        s.Datasets(),
		"view":            s.CurrentView().String(),
		"refreshes":       s.refreshes.Load(),
		"fetchFailures":   s.failures.Load(),
		"rotations":       s.rotations.Load(),
		"leaderChanges":   s.leaderChanges.Load(),
		"alertsDropped":   s.alertsDropped.Load(),
		"refreshInFlight": s.inflight.Load(),
		"scrolling":       s.animator.Active(),
		"scrollOffset":    s.animator.Offset(),
	}
	if last := s.lastRefresh.Load(); last > 0 {
		stats["lastRefresh"] = time.Unix(0, last).UTC()
	}
	if started && alerts != nil {
		n := alerts.Len(context.Background())
		stats["alertQueueLength"] = n
	}
	if b, ok := s.Board(); ok {
		stats["rows"] = len(b.Records)
		stats["stale"] = b.Stale
		stats["status"] = b.Status
	}
	return stats
}
