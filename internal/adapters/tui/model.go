package tui

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	plot "github.com/chriskim06/drawille-go"

	service "github.com/okian/standings/internal/app"
	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/internal/domain/render"
	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/internal/domain/view"
)

const (
	defaultWidth       = 100
	defaultHistory     = 60
	defaultFrame       = 50 * time.Millisecond
	defaultAlertTTL    = 8 * time.Second
	commandTimeout     = 15 * time.Second
	plotWidthPercent   = 30
	minPlotWidth       = 16
	podiumLines        = 5
	fixedLines         = 5 // title, column header, alert, footer, help
	maxNameWidth       = 22
	metricColumnWidth  = 8
	rankColumnWidth    = 4
	scoreColumnWidth   = 8
	clockLayout        = "15:04:05"
	leaderSeries       = 0
	meanSeries         = 1
	seriesCount        = 2
	minViewportHeight  = 1
	minCanvasDimension = 1
)

// Board is the part of the board service the terminal drives.
type Board interface {
	Board() (render.Board, bool)
	CurrentView() view.State
	Datasets() []types.DatasetID
	SelectMode(ctx context.Context, mode string) (view.State, error)
	SelectDataset(ctx context.Context, dataset string) (view.State, error)
	Refresh(ctx context.Context) error
	Resize(viewportHeight float64) error
	Reconfigure(ctx context.Context, settings service.Settings) error
	ScrollOffset() float64
	Scrolling() bool
}

// Option applies a configuration option to the Model.
type Option func(*Model)

// WithSettings sets the running settings; rotation pause toggles AutoRotate
// on a copy of them.
func WithSettings(s service.Settings) Option {
	return func(m *Model) {
		m.settings = s
	}
}

// WithFrame sets how often the scroll offset is read back.
func WithFrame(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.frame = d
		}
	}
}

// WithHistory sets how many renders the score plot keeps per view.
func WithHistory(n int) Option {
	return func(m *Model) {
		if n > 1 {
			m.historySize = n
		}
	}
}

// WithBell rings w on every leader change.
func WithBell(w io.Writer) Option {
	return func(m *Model) {
		m.bell = w
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.clock = now
		}
	}
}

type (
	boardMsg    render.Board
	alertMsg    model.LeaderChange
	frameMsg    time.Time
	clockMsg    time.Time
	settingsMsg service.Settings
	errMsg      struct{ err error }
)

// Model is the bubbletea model of the terminal board.
type Model struct {
	board       Board
	feed        *Feed
	settings    service.Settings
	frame       time.Duration
	historySize int
	bell        io.Writer
	clock       func() time.Time

	width, height int
	viewport      viewport.Model
	plot          *plot.Canvas
	help          help.Model

	current  render.Board
	hasBoard bool
	lines    int
	history  map[types.Board][][]float64

	alert      *model.LeaderChange
	alertUntil time.Time
	now        time.Time
	err        error
}

// New creates the terminal model over board. feed must be registered with
// the service as a listener and a sink.
func New(board Board, feed *Feed, opts ...Option) *Model {
	m := &Model{
		board:       board,
		feed:        feed,
		settings:    service.DefaultSettings(),
		frame:       defaultFrame,
		historySize: defaultHistory,
		clock:       time.Now,
		help:        help.New(),
		history:     make(map[types.Board][][]float64),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.now = m.clock()
	m.viewport = viewport.New(defaultWidth, minViewportHeight)
	m.resizePlot(minPlotWidth, podiumLines)
	if b, ok := board.Board(); ok {
		m.setBoard(b)
	} else {
		m.fillPlot()
	}
	return m
}

// Init starts the feed readers and the frame and clock ticks.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitBoard(), m.waitAlert(), m.frameTick(), clockTick())
}

func (m *Model) waitBoard() tea.Cmd {
	return func() tea.Msg { return boardMsg(<-m.feed.boards) }
}

func (m *Model) waitAlert() tea.Cmd {
	return func() tea.Msg { return alertMsg(<-m.feed.alerts) }
}

func (m *Model) frameTick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func clockTick() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg { return clockMsg(t) })
}

// Update handles one message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m, m.resize(msg.Width, msg.Height)
	case boardMsg:
		m.setBoard(render.Board(msg))
		m.err = nil
		return m, m.waitBoard()
	case alertMsg:
		c := model.LeaderChange(msg)
		m.alert = &c
		m.alertUntil = m.clock().Add(defaultAlertTTL)
		return m, tea.Batch(m.waitAlert(), m.ring())
	case frameMsg:
		m.syncScroll()
		return m, m.frameTick()
	case clockMsg:
		m.now = time.Time(msg)
		if m.alert != nil && !m.now.Before(m.alertUntil) {
			m.alert = nil
		}
		return m, clockTick()
	case settingsMsg:
		m.settings = service.Settings(msg)
		return m, nil
	case errMsg:
		m.err = msg.err
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Quit):
		return tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m.resize(m.width, m.height)
	case key.Matches(msg, keys.Mode):
		next := nextMode(m.board.CurrentView().Mode)
		return m.call(func(ctx context.Context) error {
			_, err := m.board.SelectMode(ctx, string(next))
			return err
		})
	case key.Matches(msg, keys.Dataset):
		next, ok := nextDataset(m.board.Datasets(), m.board.CurrentView().Dataset)
		if !ok {
			return nil
		}
		return m.call(func(ctx context.Context) error {
			_, err := m.board.SelectDataset(ctx, string(next))
			return err
		})
	case key.Matches(msg, keys.Refresh):
		return m.call(m.board.Refresh)
	case key.Matches(msg, keys.Rotate):
		settings := m.settings
		settings.AutoRotate = !settings.AutoRotate
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()
			if err := m.board.Reconfigure(ctx, settings); err != nil {
				return errMsg{err}
			}
			return settingsMsg(settings)
		}
	}
	return nil
}

// call runs a blocking service operation off the update loop. A success is
// reported by the board the service publishes.
func (m *Model) call(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m *Model) ring() tea.Cmd {
	if m.bell == nil {
		return nil
	}
	w := m.bell
	return func() tea.Msg {
		_, _ = io.WriteString(w, "\a")
		return nil
	}
}

func nextMode(cur types.Mode) types.Mode {
	for i, mode := range types.Modes {
		if mode == cur {
			return types.Modes[(i+1)%len(types.Modes)]
		}
	}
	return types.Modes[0]
}

func nextDataset(ids []types.DatasetID, cur types.DatasetID) (types.DatasetID, bool) {
	if len(ids) == 0 {
		return "", false
	}
	for i, id := range ids {
		if id == cur {
			return ids[(i+1)%len(ids)], true
		}
	}
	return ids[0], true
}

// resize lays the screen out and tells the service how many rows show.
func (m *Model) resize(width, height int) tea.Cmd {
	m.width, m.height = width, height
	plotW := max(minPlotWidth, width*plotWidthPercent/100)
	listW := max(minCanvasDimension, width-plotW)

	helpLines := 1
	if m.help.ShowAll {
		helpLines = len(keys.FullHelp()[0])
	}
	vpH := max(minViewportHeight, height-podiumLines-fixedLines-helpLines+1)
	m.viewport.Width = listW
	m.viewport.Height = vpH
	m.help.Width = width
	// the plot border takes two lines and two columns
	m.resizePlot(max(minCanvasDimension, plotW-2), max(minCanvasDimension, vpH-2))
	m.fillPlot()
	m.setContent()

	rows := float64(vpH) * m.rowHeight()
	return func() tea.Msg {
		if err := m.board.Resize(rows); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m *Model) rowHeight() float64 {
	if m.settings.RowHeight > 0 {
		return m.settings.RowHeight
	}
	return 1
}

func (m *Model) resizePlot(w, h int) {
	p := plot.NewCanvas(w, h)
	p.NumDataPoints = m.historySize
	p.ShowAxis = false
	p.LineColors = []plot.Color{plot.Red, plot.DimGray}
	m.plot = &p
}

func (m *Model) setBoard(b render.Board) {
	m.current = b
	m.hasBoard = true
	m.record(b)
	m.fillPlot()
	m.setContent()
}

// record appends the leader score and the mean to the history of the view.
func (m *Model) record(b render.Board) {
	id := b.View.Board()
	series, ok := m.history[id]
	if !ok {
		series = make([][]float64, seriesCount)
	}
	leader := 0.0
	if r, ok := b.Leader(); ok {
		leader = r.RawScore
	}
	series[leaderSeries] = appendBounded(series[leaderSeries], leader, m.historySize)
	series[meanSeries] = appendBounded(series[meanSeries], b.Summary.Mean, m.historySize)
	m.history[id] = series
}

func appendBounded(s []float64, v float64, n int) []float64 {
	s = append(s, v)
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s
}

// fillPlot draws the history of the current view. Series shorter than the
// window are padded with their first value so the line starts flat; a view
// with no history draws flat at zero.
func (m *Model) fillPlot() {
	var series [][]float64
	if m.hasBoard {
		series = m.history[m.current.View.Board()]
	}
	data := make([][]float64, seriesCount)
	for i := range data {
		data[i] = make([]float64, m.historySize)
		if i >= len(series) || len(series[i]) == 0 {
			continue
		}
		s := series[i]
		pad := m.historySize - len(s)
		for j := range data[i] {
			if j < pad {
				data[i][j] = s[0]
			} else {
				data[i][j] = s[j-pad]
			}
		}
	}
	m.plot.Fill(data)
}

// setContent loads the rows into the viewport, twice over when they
// overflow so the scroll wraps without a jump.
func (m *Model) setContent() {
	if !m.hasBoard {
		return
	}
	rows := m.rowLines()
	m.lines = len(rows)
	content := joinLines(rows)
	if m.lines > m.viewport.Height {
		content = content + "\n" + content
	}
	m.viewport.SetContent(content)
	m.viewport.SetYOffset(0)
}

func (m *Model) syncScroll() {
	if !m.board.Scrolling() || m.lines == 0 {
		if m.viewport.YOffset != 0 {
			m.viewport.SetYOffset(0)
		}
		return
	}
	line := int(m.board.ScrollOffset()/m.rowHeight()) % m.lines
	m.viewport.SetYOffset(line)
}
