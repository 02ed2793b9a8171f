// state/state.go
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"hedge_pair_go/logs"
	"hedge_pair_go/profit"

	"github.com/shopspring/decimal"
)

// JournalInterface is what the orchestrator needs from the session journal.
type JournalInterface interface {
	GetFullState() SessionState
	Restore(a *profit.Accountant)
	Save(s profit.Summary) error
}

// SessionState is persisted to the journal file. The exit-mode flag is deliberately absent: it is
// always re-derived from the broker at startup.
type SessionState struct {
	RealizedProfit  decimal.Decimal `json:"realized_profit"`
	TargetExits     int             `json:"target_exits"`
	BreakEvenExits  int             `json:"break_even_exits"`
	CompletedCycles int             `json:"completed_cycles"`
	EntryRounds     int             `json:"entry_rounds"`
	FailedEntries   int             `json:"failed_entries"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Journal is the file implementation of JournalInterface.
type Journal struct {
	mu       sync.RWMutex
	filePath string
	state    SessionState
	now      func() time.Time
}

var _ JournalInterface = (*Journal)(nil)

// NewJournal loads an existing journal, or creates an empty one if the file does not exist.
func NewJournal(filePath string) (*Journal, error) {
	j := &Journal{filePath: filePath, now: time.Now}

	if err := j.load(); err != nil {
		if os.IsNotExist(err) {
			logs.Infof("[State] Journal not found at %s, starting fresh", filePath)
			if err := j.save(); err != nil {
				return nil, fmt.Errorf("failed to create initial journal: %w", err)
			}
			return j, nil
		}
		return nil, fmt.Errorf("failed to load journal: %w", err)
	}
	return j, nil
}

// save writes atomically while holding the lock.
func (j *Journal) save() error {
	data, err := json.MarshalIndent(j.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %w", err)
	}
	if dir := filepath.Dir(j.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	tmpFilePath := j.filePath + ".tmp"
	if err := os.WriteFile(tmpFilePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary journal: %w", err)
	}
	return os.Rename(tmpFilePath, j.filePath)
}

func (j *Journal) load() error {
	data, err := os.ReadFile(j.filePath)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, &j.state)
}

func (j *Journal) GetFullState() SessionState {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// Restore seeds an accountant with the journaled totals.
func (j *Journal) Restore(a *profit.Accountant) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	a.Restore(profit.Summary{
		RealizedProfit:  j.state.RealizedProfit,
		TargetExits:     j.state.TargetExits,
		BreakEvenExits:  j.state.BreakEvenExits,
		CompletedCycles: j.state.CompletedCycles,
		EntryRounds:     j.state.EntryRounds,
		FailedEntries:   j.state.FailedEntries,
	})
}

// Save replaces the journaled totals with s.
func (j *Journal) Save(s profit.Summary) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = SessionState{
		RealizedProfit:  s.RealizedProfit,
		TargetExits:     s.TargetExits,
		BreakEvenExits:  s.BreakEvenExits,
		CompletedCycles: s.CompletedCycles,
		EntryRounds:     s.EntryRounds,
		FailedEntries:   s.FailedEntries,
		UpdatedAt:       j.now().UTC(),
	}
	return j.save()
}
