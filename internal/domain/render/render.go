// Package render projects ranked rows into display records for a view.
package render

import (
	"math"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/okian/standings/internal/domain/scoring"
	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/internal/domain/view"
)

const (
	defaultTopN        = 3
	defaultUnknownName = "Unknown"
	defaultPicture     = "https://via.placeholder.com/50?text=U"
	emptyCell          = "-"
)

// Metric is one labelled cell of a record.
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Record is a display row.
type Record struct {
	Rank     int      `json:"rank"`
	Name     string   `json:"name"`
	Picture  string   `json:"picture"`
	Metrics  []Metric `json:"metrics"`
	Score    int      `json:"score"`
	RawScore float64  `json:"raw_score"`
	// Unnamed is set when Name is the placeholder.
	Unnamed bool `json:"unnamed,omitempty"`
}

// Summary describes the score distribution of a board.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
	Max    float64 `json:"max"`
}

// Board is everything a display surface needs to draw one view.
type Board struct {
	Title       string     `json:"title"`
	View        view.State `json:"view"`
	Columns     []string   `json:"columns"`
	Records     []Record   `json:"records"`
	Top         []Record   `json:"top"`
	Summary     Summary    `json:"summary"`
	Status      string     `json:"status"`
	Stale       bool       `json:"stale"`
	FetchedAt   time.Time  `json:"fetched_at,omitempty"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// Leader returns the first record, if any.
func (b Board) Leader() (Record, bool) {
	if len(b.Records) == 0 {
		return Record{}, false
	}
	return b.Records[0], true
}

// Option applies a configuration option to the Renderer.
type Option func(*Renderer)

// WithTopN sets the size of the highlighted top group.
func WithTopN(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.topN = n
		}
	}
}

// WithTitlePrefix sets the text placed before "<Dataset> <Mode>" in titles.
func WithTitlePrefix(prefix string) Option {
	return func(r *Renderer) {
		r.titlePrefix = strings.TrimSpace(prefix)
	}
}

// WithUnknownName sets the placeholder used for rows without an identity.
func WithUnknownName(name string) Option {
	return func(r *Renderer) {
		if name != "" {
			r.unknownName = name
		}
	}
}

// WithPicturePlaceholder sets the image used for rows without a picture when
// the dataset schema names none.
func WithPicturePlaceholder(url string) Option {
	return func(r *Renderer) {
		if url != "" {
			r.picture = url
		}
	}
}

// WithClock replaces time.Now for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

// Renderer is a pure projection and safe for concurrent use.
type Renderer struct {
	topN        int
	titlePrefix string
	unknownName string
	picture     string
	now         func() time.Time
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		topN:        defaultTopN,
		unknownName: defaultUnknownName,
		picture:     defaultPicture,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Title returns the heading of a view, e.g. "Malappuram Advisor Today".
func (r *Renderer) Title(st view.State) string {
	return strings.TrimSpace(r.titlePrefix + " " + st.Dataset.Title() + " " + st.Mode.Title())
}

// Render builds the board for ranked rows. metrics names the three mode
// columns shown before the schema's extra columns. Inputs are not modified.
func (r *Renderer) Render(ranked []types.Row, st view.State, schema types.Schema, metrics scoring.Columns) Board {
	b := Board{
		Title:       r.Title(st),
		View:        st,
		Columns:     r.columns(schema),
		Records:     make([]Record, len(ranked)),
		GeneratedAt: r.now(),
	}

	scores := make([]float64, len(ranked))
	for i, row := range ranked {
		b.Records[i] = r.record(row, schema, metrics)
		scores[i] = row.Score
	}

	n := r.topN
	if n > len(b.Records) {
		n = len(b.Records)
	}
	b.Top = append([]Record(nil), b.Records[:n]...)
	b.Summary = summarize(scores)
	return b
}

func (r *Renderer) columns(schema types.Schema) []string {
	cols := []string{"Rank"}
	if schema.PictureColumn != "" {
		cols = append(cols, "Pic")
	}
	cols = append(cols, "Name", "Load", "Labour", "VAS")
	for _, c := range schema.Columns {
		cols = append(cols, c.Label)
	}
	return append(cols, "Score")
}

func (r *Renderer) record(row types.Row, schema types.Schema, metrics scoring.Columns) Record {
	rec := Record{
		Rank:     row.Rank,
		Name:     schema.Name(row),
		RawScore: row.Score,
		Score:    scoring.Display(row.Score),
	}
	if rec.Name == "" {
		rec.Name = r.unknownName
		rec.Unnamed = true
	}
	if schema.PictureColumn != "" {
		rec.Picture = schema.Picture(row)
		if rec.Picture == "" {
			rec.Picture = schema.PicturePlaceholder
		}
		if rec.Picture == "" {
			rec.Picture = r.picture
		}
	}
	rec.Metrics = make([]Metric, 0, 3+len(schema.Columns))
	rec.Metrics = append(rec.Metrics,
		Metric{Label: "Load", Value: cell(row, metrics.Load)},
		Metric{Label: "Labour", Value: cell(row, metrics.Labour)},
		Metric{Label: "VAS", Value: cell(row, metrics.VAS)},
	)
	for _, c := range schema.Columns {
		rec.Metrics = append(rec.Metrics, Metric{Label: c.Label, Value: cell(row, c.Field)})
	}
	return rec
}

func cell(row types.Row, column string) string {
	if v := row.Value(column); v != "" {
		return v
	}
	return emptyCell
}

func summarize(scores []float64) Summary {
	s := Summary{Count: len(scores)}
	if len(scores) == 0 {
		return s
	}
	data := stats.Float64Data(scores)
	s.Mean = orZero(data.Mean())
	s.Median = orZero(data.Median())
	s.Max = orZero(data.Max())
	// small samples fall outside the percentile bounds
	if p, err := data.Percentile(75); err == nil {
		s.P75 = p
	} else {
		s.P75 = s.Max
	}
	return s
}

func orZero(v float64, err error) float64 {
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return v
}
