package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/mmgsem/selection"
	"github.com/katalvlaran/mmgsem/store"
)

func open(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func summary(id string, maxK int) selection.Summary {
	sum := selection.Summary{
		RunID:        id,
		Created:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		MinK:         1,
		MaxK:         maxK,
		Groups:       []string{"g1", "g2"},
		Coefficients: []string{"Y~X"},
	}
	for k := 1; k <= maxK; k++ {
		sum.Table = append(sum.Table, selection.Row{K: k, LogLik: -100 / float64(k), Params: 3 * k})
		sum.Models = append(sum.Models, selection.ModelSummary{K: k, Weights: make([]float64, k)})
	}

	return sum
}

func TestStore_SaveLoad(t *testing.T) {
	s := open(t)
	want := summary("a1", 3)
	require.NoError(t, s.Save(want))

	got, err := s.Load("a1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	m, ok := got.Model(2)
	require.True(t, ok)
	assert.Equal(t, 2, m.K)
}

func TestStore_LatestAndList(t *testing.T) {
	s := open(t)
	_, err := s.Latest()
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Save(summary("b", 2)))
	require.NoError(t, s.Save(summary("a", 4)))

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, "a", latest.RunID)
	assert.Equal(t, 4, latest.MaxK)

	ids, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestStore_Errors(t *testing.T) {
	s := open(t)
	_, err := s.Load("missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Error(t, s.Save(selection.Summary{}))

	_, err = store.Open(store.Config{})
	assert.Error(t, err)
}

func TestStore_Persistent(t *testing.T) {
	dir := t.TempDir()
	s, err := store.Open(store.Config{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, s.Save(summary("p", 1)))
	require.NoError(t, s.Close())

	s, err = store.Open(store.Config{Path: dir})
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, "p", got.RunID)
}
