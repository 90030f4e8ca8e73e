// Package sequence tracks the per-year counter behind estimate numbers.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/quotemaker-dev/quotemaker/internal/id"
	"github.com/quotemaker-dev/quotemaker/internal/model"
)

// Next returns the sequence of the current document: the stored value when
// state is from year, otherwise 1 (first run or year rollover).
func Next(state *model.SequenceState, year int) int {
	if state == nil || state.Year != year {
		return 1
	}
	return state.LastSequence
}

// Advance returns the state to persist when a new document is started.
func Advance(state *model.SequenceState, year int) model.SequenceState {
	if state == nil || state.Year != year {
		return model.SequenceState{Year: year, LastSequence: 1}
	}
	return model.SequenceState{Year: year, LastSequence: state.LastSequence + 1}
}

// Persister loads and saves the sequence state. LoadSequence returns nil
// when nothing has been stored yet.
type Persister interface {
	LoadSequence(ctx context.Context) (*model.SequenceState, error)
	SaveSequence(ctx context.Context, state model.SequenceState) error
}

// Tracker reads the state once on Open and writes it back only on Advance.
type Tracker struct {
	store Persister
	state *model.SequenceState
	now   func() time.Time
}

// Open loads the persisted state.
func Open(ctx context.Context, store Persister, now func() time.Time) (*Tracker, error) {
	state, err := store.LoadSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading sequence: %w", err)
	}
	return &Tracker{store: store, state: state, now: now}, nil
}

// Active reports whether any sequence state has been persisted.
func (t *Tracker) Active() bool {
	return t.state != nil
}

// Current returns the sequence for the current calendar year.
func (t *Tracker) Current() int {
	return Next(t.state, t.now().Year())
}

// CurrentEstimateNumber formats Current as an estimate number.
func (t *Tracker) CurrentEstimateNumber() string {
	return id.EstimateNumber(t.now(), t.Current())
}

// Advance moves to the next sequence, persists it and returns it.
func (t *Tracker) Advance(ctx context.Context) (int, error) {
	next := Advance(t.state, t.now().Year())
	if err := t.store.SaveSequence(ctx, next); err != nil {
		return 0, fmt.Errorf("saving sequence: %w", err)
	}
	t.state = &next
	return next.LastSequence, nil
}
