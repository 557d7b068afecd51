package rules

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type allowAllStops struct{}

func (allowAllStops) Known(string) bool { return true }

type fixedStops map[string]bool

func (f fixedStops) Known(stopID string) bool { return f[stopID] }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openMemoryStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", allowAllStops{}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func davisRule() Rule {
	return Rule{CheckpointStopID: "place-davis", RouteID: "Red", DirectionID: 0}
}

func TestAddAssignsIDAndLists(t *testing.T) {
	s := openMemoryStore(t)

	added, err := s.Add(davisRule())
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)

	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, added, list[0])
}

func TestAddRejectsInvalidRule(t *testing.T) {
	s := openMemoryStore(t)

	_, err := s.Add(Rule{RouteID: "Red"})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = s.Add(Rule{CheckpointStopID: "place-davis"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestAddRejectsDuplicateTriple(t *testing.T) {
	s := openMemoryStore(t)

	_, err := s.Add(davisRule())
	require.NoError(t, err)

	_, err = s.Add(davisRule())
	assert.ErrorIs(t, err, ErrDuplicate)

	// Same stop and route in the other direction is a distinct rule.
	other := davisRule()
	other.DirectionID = 1
	_, err = s.Add(other)
	assert.NoError(t, err)
}

func TestAddEnforcesRuleLimit(t *testing.T) {
	s := openMemoryStore(t)

	for i := 0; i < MaxRules; i++ {
		r := davisRule()
		r.DirectionID = i
		_, err := s.Add(r)
		require.NoError(t, err)
	}

	r := davisRule()
	r.DirectionID = MaxRules
	_, err := s.Add(r)
	assert.ErrorIs(t, err, ErrRuleLimit)

	// Removing one frees a slot.
	removed := s.Remove(s.List()[0].ID)
	require.True(t, removed)
	_, err = s.Add(r)
	assert.NoError(t, err)
}

func TestRemoveUnknownID(t *testing.T) {
	s := openMemoryStore(t)
	assert.False(t, s.Remove("nope"))
}

func TestListReturnsACopy(t *testing.T) {
	s := openMemoryStore(t)
	_, err := s.Add(davisRule())
	require.NoError(t, err)

	list := s.List()
	list[0].RouteID = "Mutated"
	assert.Equal(t, "Red", s.List()[0].RouteID)
}

func TestPauseFlag(t *testing.T) {
	s := openMemoryStore(t)
	assert.False(t, s.Paused())

	s.SetPaused(true)
	assert.True(t, s.Paused())

	s.SetPaused(false)
	assert.False(t, s.Paused())
}

func TestRulesPersistAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.db")

	s, err := Open(path, allowAllStops{}, testLogger())
	require.NoError(t, err)

	added, err := s.Add(davisRule())
	require.NoError(t, err)
	terminus := Rule{CheckpointStopID: "place-alfcl", RouteID: "Red", DirectionID: 0, Terminus: true}
	_, err = s.Add(terminus)
	require.NoError(t, err)
	s.SetPaused(true)
	require.NoError(t, s.Close())

	reopened, err := Open(path, allowAllStops{}, testLogger())
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	list := reopened.List()
	require.Len(t, list, 2)
	assert.Equal(t, added.ID, list[0].ID)
	assert.Equal(t, "place-davis", list[0].CheckpointStopID)
	assert.True(t, list[1].Terminus)
	assert.True(t, reopened.Paused())
}

func TestLoadDropsRulesWithUnknownStops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.db")

	s, err := Open(path, allowAllStops{}, testLogger())
	require.NoError(t, err)
	_, err = s.Add(davisRule())
	require.NoError(t, err)
	_, err = s.Add(Rule{CheckpointStopID: "place-gone", RouteID: "Red", DirectionID: 1})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// The catalog changed between sessions and no longer knows one stop.
	reopened, err := Open(path, fixedStops{"place-davis": true}, testLogger())
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	list := reopened.List()
	require.Len(t, list, 1)
	assert.Equal(t, "place-davis", list[0].CheckpointStopID)
}

func TestRemovePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.db")

	s, err := Open(path, allowAllStops{}, testLogger())
	require.NoError(t, err)
	added, err := s.Add(davisRule())
	require.NoError(t, err)
	require.True(t, s.Remove(added.ID))
	require.NoError(t, s.Close())

	reopened, err := Open(path, allowAllStops{}, testLogger())
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	assert.Empty(t, reopened.List())
}
