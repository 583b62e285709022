// Package view holds the board's current (mode, dataset) selection and the
// automatic rotation through views.
package view

import (
	"fmt"
	"strings"

	"github.com/okian/standings/internal/domain/types"
)

// State is the selected view.
type State struct {
	Mode    types.Mode      `json:"mode"`
	Dataset types.DatasetID `json:"dataset"`
}

// Board returns the board key of the state.
func (s State) Board() types.Board {
	return types.Board{Dataset: s.Dataset, Mode: s.Mode}
}

func (s State) String() string { return string(s.Mode) + ":" + string(s.Dataset) }

// ParseState reads "mode:dataset", e.g. "today:advisor".
func ParseState(s string) (State, error) {
	mode, dataset, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return State{}, fmt.Errorf("%w: %q is not mode:dataset", ErrConfig, s)
	}
	m, err := types.ParseMode(mode)
	if err != nil {
		return State{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	d, err := types.ParseDataset(dataset)
	if err != nil {
		return State{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return State{Mode: m, Dataset: d}, nil
}

// DefaultRotation cycles both modes over datasets: for each mode, each dataset.
func DefaultRotation(datasets []types.DatasetID) []State {
	out := make([]State, 0, len(types.Modes)*len(datasets))
	for _, m := range types.Modes {
		for _, d := range datasets {
			out = append(out, State{Mode: m, Dataset: d})
		}
	}
	return out
}

// Selector owns the current State. It is not safe for concurrent use: the
// board controller mutates it from a single goroutine.
type Selector struct {
	state    State
	datasets []types.DatasetID
	known    map[types.DatasetID]struct{}
	rotation []State
	next     int
	// selected is set when a user selection moved the state since the last
	// Advance.
	selected bool
}

// NewSelector validates initial and rotation against datasets. An empty
// rotation uses DefaultRotation.
func NewSelector(initial State, datasets []types.DatasetID, rotation []State) (*Selector, error) {
	if len(datasets) == 0 {
		return nil, fmt.Errorf("%w: no datasets", ErrConfig)
	}
	s := &Selector{
		datasets: append([]types.DatasetID(nil), datasets...),
		known:    make(map[types.DatasetID]struct{}, len(datasets)),
	}
	for _, d := range datasets {
		s.known[d] = struct{}{}
	}
	if err := s.validate(initial); err != nil {
		return nil, err
	}
	if err := s.SetRotation(rotation); err != nil {
		return nil, err
	}
	s.state = initial
	s.syncRotation()
	return s, nil
}

func (s *Selector) validate(st State) error {
	if _, err := types.ParseMode(string(st.Mode)); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if _, ok := s.known[st.Dataset]; !ok {
		return fmt.Errorf("%w: %w: %q", ErrConfig, types.ErrUnknownDataset, st.Dataset)
	}
	return nil
}

// Current returns the selected state.
func (s *Selector) Current() State { return s.state }

// Datasets returns the selectable datasets.
func (s *Selector) Datasets() []types.DatasetID {
	return append([]types.DatasetID(nil), s.datasets...)
}

// Rotation returns the rotation sequence.
func (s *Selector) Rotation() []State {
	return append([]State(nil), s.rotation...)
}

// SelectMode switches the mode. An unknown mode returns an ErrConfig error and
// leaves the state unchanged.
func (s *Selector) SelectMode(mode string) (State, error) {
	m, err := types.ParseMode(mode)
	if err != nil {
		return s.state, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	s.state.Mode = m
	s.selected = true
	return s.state, nil
}

// SelectDataset switches the dataset. A dataset outside the configured set
// returns an ErrConfig error and leaves the state unchanged.
func (s *Selector) SelectDataset(dataset string) (State, error) {
	d, err := types.ParseDataset(dataset)
	if err != nil {
		return s.state, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if _, ok := s.known[d]; !ok {
		return s.state, fmt.Errorf("%w: %w: %q", ErrConfig, types.ErrUnknownDataset, dataset)
	}
	s.state.Dataset = d
	s.selected = true
	return s.state, nil
}

// Select applies both fields at once; an empty field keeps its current
// value. Nothing changes unless both are valid.
func (s *Selector) Select(mode, dataset string) (State, error) {
	next := s.state
	if strings.TrimSpace(mode) != "" {
		m, err := types.ParseMode(mode)
		if err != nil {
			return s.state, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		next.Mode = m
	}
	if strings.TrimSpace(dataset) != "" {
		d, err := types.ParseDataset(dataset)
		if err != nil {
			return s.state, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		next.Dataset = d
	}
	if err := s.validate(next); err != nil {
		return s.state, err
	}
	s.state = next
	s.selected = true
	return s.state, nil
}

// Advance moves to the next state of the rotation and returns it. The
// sequence is walked in order, repeated entries included. After a user
// selection that is part of the sequence, rotation continues after its first
// occurrence; otherwise it resumes where it last left off.
func (s *Selector) Advance() State {
	if len(s.rotation) == 0 {
		return s.state
	}
	if s.selected {
		s.syncRotation()
		s.selected = false
	}
	s.state = s.rotation[s.next]
	s.next = (s.next + 1) % len(s.rotation)
	return s.state
}

// syncRotation points next after the current state if it is in the sequence.
func (s *Selector) syncRotation() {
	for i, st := range s.rotation {
		if st == s.state {
			s.next = (i + 1) % len(s.rotation)
			return
		}
	}
}

// SetRotation replaces the rotation sequence after validating every entry.
func (s *Selector) SetRotation(rotation []State) error {
	if len(rotation) == 0 {
		rotation = DefaultRotation(s.datasets)
	}
	for _, st := range rotation {
		if err := s.validate(st); err != nil {
			return err
		}
	}
	s.rotation = append([]State(nil), rotation...)
	s.next = 0
	s.selected = false
	s.syncRotation()
	return nil
}
