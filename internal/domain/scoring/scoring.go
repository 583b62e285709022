// Package scoring turns a row's metric columns into a single comparable score.
package scoring

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/standings/internal/domain/types"
)

// Default weights: load counts double, labour triple, VAS once.
const (
	defaultLoadWeight   = 2
	defaultLabourWeight = 3
	defaultVASWeight    = 1
)

// Columns names the three metric fields read for one mode.
type Columns struct {
	Load   string `json:"load" koanf:"load"`
	Labour string `json:"labour" koanf:"labour"`
	VAS    string `json:"vas" koanf:"vas"`
}

// Weights are the multipliers applied to each metric.
type Weights struct {
	Load   float64 `json:"load" koanf:"load"`
	Labour float64 `json:"labour" koanf:"labour"`
	VAS    float64 `json:"vas" koanf:"vas"`
}

// DefaultWeights returns load*2 + labour*3 + vas.
func DefaultWeights() Weights {
	return Weights{Load: defaultLoadWeight, Labour: defaultLabourWeight, VAS: defaultVASWeight}
}

// DefaultColumns returns the spreadsheet headers read for each mode.
func DefaultColumns() map[types.Mode]Columns {
	return map[types.Mode]Columns{
		types.ModeToday: {Load: "Today Load", Labour: "Today Labour", VAS: "Today VAS"},
		types.ModeTotal: {Load: "Total Load", Labour: "Month Labour", VAS: "Total VAS"},
	}
}

// Scorer computes the score of a row in a mode.
type Scorer interface {
	Score(row types.Row, mode types.Mode) float64
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeights overrides the metric weights.
func WithWeights(w Weights) Option {
	return func(e *Engine) {
		e.weights = w
	}
}

// WithColumns overrides the columns read for mode. Empty names keep the default.
func WithColumns(mode types.Mode, c Columns) Option {
	return func(e *Engine) {
		cur := e.columns[mode]
		if c.Load != "" {
			cur.Load = c.Load
		}
		if c.Labour != "" {
			cur.Labour = c.Labour
		}
		if c.VAS != "" {
			cur.VAS = c.VAS
		}
		e.columns[mode] = cur
	}
}

// Engine is the weighted-sum Scorer. It is immutable after construction and
// safe for concurrent use.
type Engine struct {
	weights Weights
	columns map[types.Mode]Columns
}

// NewEngine creates an Engine with the default weights and columns.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		weights: DefaultWeights(),
		columns: DefaultColumns(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score returns load*wLoad + labour*wLabour + vas*wVAS for the mode's columns.
// Missing or unparseable fields contribute 0 and an unknown mode scores 0.
func (e *Engine) Score(row types.Row, mode types.Mode) float64 {
	cols, ok := e.columns[mode]
	if !ok {
		return 0
	}
	load := Number(row.Value(cols.Load))
	labour := Number(row.Value(cols.Labour))
	vas := Number(row.Value(cols.VAS))
	return load*e.weights.Load + labour*e.weights.Labour + vas*e.weights.VAS
}

// Columns returns the metric columns read for mode.
func (e *Engine) Columns(mode types.Mode) Columns {
	return e.columns[mode]
}

// Weights returns the configured weights.
func (e *Engine) Weights() Weights {
	return e.weights
}

var numericPrefix = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// Number coerces a spreadsheet cell to a float. Thousands separators and
// surrounding text are tolerated ("1,250" is 1250, "12 jobs" is 12); anything
// without a leading number, and any non-finite value, is 0.
func Number(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		m := numericPrefix.FindString(s)
		if m == "" {
			return 0
		}
		v, err = strconv.ParseFloat(m, 64)
		if err != nil {
			return 0
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Display rounds a score to the nearest integer for presentation.
func Display(score float64) int {
	return int(math.Round(score))
}
