package sequence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotemaker-dev/quotemaker/internal/model"
)

type memPersister struct {
	state   *model.SequenceState
	saves   int
	saveErr error
}

func (m *memPersister) LoadSequence(context.Context) (*model.SequenceState, error) {
	return m.state, nil
}

func (m *memPersister) SaveSequence(_ context.Context, s model.SequenceState) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.state = &s
	return nil
}

func fixedClock(year int) func() time.Time {
	return func() time.Time { return time.Date(year, 6, 1, 12, 0, 0, 0, time.Local) }
}

func TestNext(t *testing.T) {
	assert.Equal(t, 1, Next(&model.SequenceState{Year: 2024, LastSequence: 9}, 2025))
	assert.Equal(t, 9, Next(&model.SequenceState{Year: 2025, LastSequence: 9}, 2025))
	assert.Equal(t, 1, Next(nil, 2025))
}

func TestAdvance(t *testing.T) {
	assert.Equal(t, model.SequenceState{Year: 2025, LastSequence: 10},
		Advance(&model.SequenceState{Year: 2025, LastSequence: 9}, 2025))
	assert.Equal(t, model.SequenceState{Year: 2025, LastSequence: 1},
		Advance(&model.SequenceState{Year: 2024, LastSequence: 9}, 2025))
	assert.Equal(t, model.SequenceState{Year: 2025, LastSequence: 1}, Advance(nil, 2025))
}

func TestTracker(t *testing.T) {
	ctx := context.Background()
	store := &memPersister{}

	tr, err := Open(ctx, store, fixedClock(2025))
	require.NoError(t, err)
	assert.False(t, tr.Active())
	assert.Equal(t, 1, tr.Current())
	assert.Equal(t, 0, store.saves, "reading must not persist")

	seq, err := tr.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
	assert.True(t, tr.Active())

	seq, err = tr.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, seq)
	assert.Equal(t, "INV-2025-002", tr.CurrentEstimateNumber())
	assert.Equal(t, &model.SequenceState{Year: 2025, LastSequence: 2}, store.state)
	assert.Equal(t, 2, store.saves)
}

func TestTrackerYearRollover(t *testing.T) {
	ctx := context.Background()
	store := &memPersister{state: &model.SequenceState{Year: 2024, LastSequence: 41}}

	tr, err := Open(ctx, store, fixedClock(2025))
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Current())

	seq, err := tr.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
	assert.Equal(t, "INV-2025-001", tr.CurrentEstimateNumber())
}

func TestTrackerMonotonic(t *testing.T) {
	ctx := context.Background()
	tr, err := Open(ctx, &memPersister{}, fixedClock(2025))
	require.NoError(t, err)

	prev := 0
	for i := 0; i < 1005; i++ {
		seq, err := tr.Advance(ctx)
		require.NoError(t, err)
		require.Greater(t, seq, prev)
		prev = seq
	}
	assert.Equal(t, "INV-2025-1005", tr.CurrentEstimateNumber())
}

func TestTrackerSaveError(t *testing.T) {
	ctx := context.Background()
	store := &memPersister{state: &model.SequenceState{Year: 2025, LastSequence: 3}, saveErr: errors.New("disk full")}

	tr, err := Open(ctx, store, fixedClock(2025))
	require.NoError(t, err)

	_, err = tr.Advance(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 3, tr.Current(), "failed advance must not move the counter")
}
