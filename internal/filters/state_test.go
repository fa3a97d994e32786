package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aidash/internal/models"
)

var vocab = models.Vocabulary{
	Countries:  []string{"Brazil", "India", "USA"},
	Industries: []string{"Health", "Tech"},
	Tools:      []string{"ChatGPT", "Claude"},
}

// assertConsistent checks that a set "all" flag always carries the whole vocabulary.
func assertConsistent(t *testing.T, s *State) {
	t.Helper()
	for _, d := range models.Dimensions {
		sel, err := s.Selection(d)
		require.NoError(t, err)
		if sel.All {
			assert.Equal(t, s.Vocabulary().For(d), sel.Values, "dimension %s", d)
		}
	}
}

func TestNewStartsFullySelected(t *testing.T) {
	s := New(vocab)
	snap := s.Snapshot()

	assert.Equal(t, models.Selection{All: true, Values: vocab.Countries}, snap.Countries)
	assert.Equal(t, models.Selection{All: true, Values: vocab.Industries}, snap.Industries)
	assert.Equal(t, models.Selection{All: true, Values: vocab.Tools}, snap.Tools)
}

func TestToggleAll(t *testing.T) {
	s := New(vocab)

	require.NoError(t, s.ToggleAll(models.Country, false))
	sel, _ := s.Selection(models.Country)
	assert.False(t, sel.All)
	assert.Empty(t, sel.Values)

	// Other dimensions are independent.
	other, _ := s.Selection(models.Tool)
	assert.True(t, other.All)

	require.NoError(t, s.ToggleAll(models.Country, true))
	sel, _ = s.Selection(models.Country)
	assert.Equal(t, models.Selection{All: true, Values: vocab.Countries}, sel)
	assertConsistent(t, s)
}

func TestSetSelection(t *testing.T) {
	s := New(vocab)

	require.NoError(t, s.SetSelection(models.Country, []string{"USA", "Atlantis", "Brazil", "USA"}))
	sel, _ := s.Selection(models.Country)
	assert.Equal(t, models.Selection{All: false, Values: []string{"Brazil", "USA"}}, sel)
	assertConsistent(t, s)

	// Selecting every value by hand turns the flag back on.
	require.NoError(t, s.SetSelection(models.Industry, []string{"Tech", "Health"}))
	sel, _ = s.Selection(models.Industry)
	assert.True(t, sel.All)
	assert.Equal(t, vocab.Industries, sel.Values)

	require.NoError(t, s.SetSelection(models.Tool, nil))
	sel, _ = s.Selection(models.Tool)
	assert.False(t, sel.All)
	assert.Empty(t, sel.Values)
	assertConsistent(t, s)
}

func TestReset(t *testing.T) {
	s := New(vocab)
	require.NoError(t, s.ToggleAll(models.Country, false))
	require.NoError(t, s.SetSelection(models.Industry, []string{"Tech"}))
	require.NoError(t, s.SetSelection(models.Tool, []string{"Claude"}))
	before := s.Revision()

	s.Reset()

	assert.Greater(t, s.Revision(), before)
	assert.Equal(t, New(vocab).Snapshot(), s.Snapshot())
}

func TestUnknownDimension(t *testing.T) {
	s := New(vocab)
	rev := s.Revision()

	assert.ErrorIs(t, s.ToggleAll("Region", true), models.ErrUnknownDimension)
	assert.ErrorIs(t, s.SetSelection("Region", []string{"x"}), models.ErrUnknownDimension)
	_, err := s.Selection("Region")
	assert.ErrorIs(t, err, models.ErrUnknownDimension)
	assert.Equal(t, rev, s.Revision())
}

func TestRebaseDropsStaleValues(t *testing.T) {
	s := New(vocab)
	require.NoError(t, s.SetSelection(models.Country, []string{"India", "USA"}))
	require.NoError(t, s.SetSelection(models.Tool, []string{"Claude"}))

	next := models.Vocabulary{
		Countries:  []string{"Chile", "USA"},
		Industries: []string{"Finance", "Health", "Tech"},
		Tools:      []string{"Claude"},
	}
	s.Rebase(next)

	c, _ := s.Selection(models.Country)
	assert.Equal(t, models.Selection{All: false, Values: []string{"USA"}}, c)

	// An explicit subset that now covers the whole vocabulary stays explicit.
	tl, _ := s.Selection(models.Tool)
	assert.Equal(t, models.Selection{All: false, Values: []string{"Claude"}}, tl)

	// Fully selected dimensions follow the new vocabulary.
	i, _ := s.Selection(models.Industry)
	assert.Equal(t, models.Selection{All: true, Values: next.Industries}, i)
	assertConsistent(t, s)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New(vocab)
	snap := s.Snapshot()
	snap.Countries.Values[0] = "Mutated"

	sel, _ := s.Selection(models.Country)
	assert.Equal(t, "Brazil", sel.Values[0])
}
