// Package types contains the values shared by every layer of the board.
package types

import (
	"fmt"
	"strings"
)

// Mode selects which metric columns feed the score.
type Mode string

// Supported modes.
const (
	ModeToday Mode = "today"
	ModeTotal Mode = "total"
)

// Modes lists every mode in display order.
var Modes = []Mode{ModeToday, ModeTotal}

// ParseMode accepts a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeToday:
		return ModeToday, nil
	case ModeTotal:
		return ModeTotal, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Title returns the display form of the mode, e.g. "Today".
func (m Mode) Title() string { return titleCase(string(m)) }

// DatasetID names a tabular feed, e.g. "advisor".
type DatasetID string

// Default datasets.
const (
	DatasetAdvisor    DatasetID = "advisor"
	DatasetTechnician DatasetID = "technician"
)

// ParseDataset normalises a dataset name. Membership in the configured set
// is checked by the view layer.
func ParseDataset(s string) (DatasetID, error) {
	id := DatasetID(strings.ToLower(strings.TrimSpace(s)))
	if id == "" {
		return "", fmt.Errorf("%w: empty name", ErrUnknownDataset)
	}
	return id, nil
}

// Title returns the display form of the dataset, e.g. "Advisor".
func (d DatasetID) Title() string { return titleCase(string(d)) }

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Board identifies one ranked view: a dataset scored in a mode.
type Board struct {
	Dataset DatasetID `json:"dataset"`
	Mode    Mode      `json:"mode"`
}

func (b Board) String() string { return string(b.Dataset) + "/" + string(b.Mode) }

// Row is one record of a dataset. Fields hold the raw cell strings keyed by
// column header; Score and Rank are filled by ranking.
type Row struct {
	Fields map[string]string `json:"fields"`
	Score  float64           `json:"score"`
	Rank   int               `json:"rank"`
}

// Value returns the trimmed cell for column, or "" when absent.
func (r Row) Value(column string) string {
	if r.Fields == nil {
		return ""
	}
	return strings.TrimSpace(r.Fields[column])
}

// FirstValue returns the first non-empty cell among columns.
func (r Row) FirstValue(columns ...string) string {
	for _, c := range columns {
		if v := r.Value(c); v != "" {
			return v
		}
	}
	return ""
}

// Blank reports whether every cell of the row is empty.
func (r Row) Blank() bool {
	for _, v := range r.Fields {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Column is a display column: a header label and the source field it reads.
type Column struct {
	Label string `json:"label" koanf:"label"`
	Field string `json:"field" koanf:"field"`
}

// Schema describes how a dataset's rows are presented.
type Schema struct {
	// NameColumns are tried in order for the row's identity.
	NameColumns []string
	// PictureColumn holds an image URL, optional.
	PictureColumn string
	// PicturePlaceholder replaces an empty picture; empty uses the
	// renderer's fallback.
	PicturePlaceholder string
	// Columns are shown after the mode's metric columns.
	Columns []Column
}

// Name returns the row identity under the schema, "" when absent.
func (s Schema) Name(r Row) string {
	cols := s.NameColumns
	if len(cols) == 0 {
		cols = []string{"Name"}
	}
	return r.FirstValue(cols...)
}

// Picture returns the row's picture URL under the schema.
func (s Schema) Picture(r Row) string {
	if s.PictureColumn == "" {
		return ""
	}
	return r.Value(s.PictureColumn)
}
