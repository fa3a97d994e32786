// Package filters owns the per-dimension "select all" / explicit selection
// state and keeps the two consistent across every user action.
package filters

import (
	"fmt"

	"aidash/internal/models"
)

// State is the single source of truth for one session's filter selections.
// Every mutation is applied synchronously; the next Snapshot reflects it.
// State is not safe for concurrent use.
type State struct {
	vocab    models.Vocabulary
	sel      map[models.Dimension]models.Selection
	revision uint64
}

// New returns a state with every dimension fully selected.
func New(vocab models.Vocabulary) *State {
	s := &State{vocab: vocab, sel: make(map[models.Dimension]models.Selection, len(models.Dimensions))}
	s.reset()
	return s
}

func checkDimension(dim models.Dimension) error {
	for _, d := range models.Dimensions {
		if d == dim {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", models.ErrUnknownDimension, dim)
}

func all(vocab []string) models.Selection {
	values := make([]string, len(vocab))
	copy(values, vocab)
	return models.Selection{All: true, Values: values}
}

func (s *State) reset() {
	for _, d := range models.Dimensions {
		s.sel[d] = all(s.vocab.For(d))
	}
	s.revision++
}

// ToggleAll mirrors the select-all checkbox: checked selects the whole
// vocabulary, unchecked clears the selection.
func (s *State) ToggleAll(dim models.Dimension, checked bool) error {
	if err := checkDimension(dim); err != nil {
		return err
	}
	if checked {
		s.sel[dim] = all(s.vocab.For(dim))
	} else {
		s.sel[dim] = models.Selection{Values: []string{}}
	}
	s.revision++
	return nil
}

// SetSelection replaces the explicit selection of dim. Values outside the
// vocabulary and duplicates are dropped; the rest are kept in vocabulary order.
func (s *State) SetSelection(dim models.Dimension, values []string) error {
	if err := checkDimension(dim); err != nil {
		return err
	}
	s.sel[dim] = reconcile(s.vocab.For(dim), values)
	s.revision++
	return nil
}

// reconcile intersects values with vocab. All is set only when nothing was left out.
func reconcile(vocab, values []string) models.Selection {
	want := make(map[string]struct{}, len(values))
	for _, v := range values {
		want[v] = struct{}{}
	}
	kept := make([]string, 0, len(values))
	for _, v := range vocab {
		if _, ok := want[v]; ok {
			kept = append(kept, v)
		}
	}
	return models.Selection{All: len(kept) == len(vocab), Values: kept}
}

// Reset selects everything in all three dimensions at once.
func (s *State) Reset() {
	s.reset()
}

// Rebase moves the state onto a new vocabulary after a dataset reload.
// Fully selected dimensions follow the new vocabulary; explicit ones lose stale values.
func (s *State) Rebase(vocab models.Vocabulary) {
	s.vocab = vocab
	for _, d := range models.Dimensions {
		cur := s.sel[d]
		if cur.All {
			s.sel[d] = all(vocab.For(d))
			continue
		}
		next := reconcile(vocab.For(d), cur.Values)
		// An explicit subset stays explicit even if it now covers the whole vocabulary.
		next.All = false
		s.sel[d] = next
	}
	s.revision++
}

// Selection returns a copy of the selection of dim.
func (s *State) Selection(dim models.Dimension) (models.Selection, error) {
	if err := checkDimension(dim); err != nil {
		return models.Selection{}, err
	}
	cur := s.sel[dim]
	values := make([]string, len(cur.Values))
	copy(values, cur.Values)
	return models.Selection{All: cur.All, Values: values}, nil
}

// Snapshot returns a copy of all three selections, ready for the row filter.
func (s *State) Snapshot() models.FilterSet {
	get := func(d models.Dimension) models.Selection {
		sel, _ := s.Selection(d)
		return sel
	}
	return models.FilterSet{
		Countries:  get(models.Country),
		Industries: get(models.Industry),
		Tools:      get(models.Tool),
	}
}

// Vocabulary returns the vocabulary the state is checked against.
func (s *State) Vocabulary() models.Vocabulary { return s.vocab }

// Revision increases on every mutation, so callers can tell a redraw is due.
func (s *State) Revision() uint64 { return s.revision }
