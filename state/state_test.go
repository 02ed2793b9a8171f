package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hedge_pair_go/profit"
	"hedge_pair_go/risk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJournalCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.json")
	j, err := NewJournal(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)
	assert.True(t, j.GetFullState().RealizedProfit.IsZero())
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.json")
	j, err := NewJournal(path)
	require.NoError(t, err)

	a := profit.NewAccountant()
	a.RecordEntry(true)
	a.RecordGroupClose(profit.GroupClose{Label: "HMSTA-BUY", Mode: risk.TargetExit, NetProfit: 380.25})
	a.RecordGroupClose(profit.GroupClose{Label: "HMSTA-SELL", Mode: risk.BreakEvenExit, NetProfit: 1.5})
	require.NoError(t, j.Save(a.GetSummary()))

	reopened, err := NewJournal(path)
	require.NoError(t, err)
	restored := profit.NewAccountant()
	reopened.Restore(restored)

	s := restored.GetSummary()
	assert.Equal(t, "381.75", s.RealizedProfit.String())
	assert.Equal(t, 1, s.CompletedCycles)
	assert.Equal(t, 1, s.EntryRounds)
	assert.False(t, reopened.GetFullState().UpdatedAt.IsZero())
}

func TestJournalNeverStoresExitFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.json")
	j, err := NewJournal(path)
	require.NoError(t, err)
	require.NoError(t, j.Save(profit.Summary{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(strings.ToLower(string(data)), "break_even_flag"))
	assert.False(t, strings.Contains(strings.ToLower(string(data)), "exit_at_break_even"))
}

func TestCorruptJournalIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err := NewJournal(path)
	assert.Error(t, err)
}
