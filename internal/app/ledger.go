package app

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Ledger records which accounts completed the daily task in the current
// cycle. It is a flat JSON file mapping account id to the unix time of
// completion, rewritten whole on every update so a crash can lose at most
// the in-flight write.
type Ledger struct {
	logger    *zap.Logger
	path      string
	resetHour int
	now       func() time.Time

	mu sync.Mutex
}

func NewLedger(logger *zap.Logger, path string, resetHour int) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		logger:    logger,
		path:      path,
		resetHour: resetHour,
		now:       time.Now,
	}
}

// cycleStart returns the start of the current daily cycle: the most recent
// occurrence of resetHour:00 local time at or before now.
func (l *Ledger) cycleStart() time.Time {
	now := l.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), l.resetHour, 0, 0, 0, now.Location())
	if now.Before(start) {
		start = start.AddDate(0, 0, -1)
	}
	return start
}

// load reads the ledger file. A missing or corrupt file yields an empty map;
// corruption is logged and the next write replaces the file.
func (l *Ledger) load() map[string]float64 {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.Warn("Failed to read completion ledger, starting empty",
				zap.String("path", l.path),
				zap.Error(err))
		}
		return make(map[string]float64)
	}

	records := make(map[string]float64)
	if err := json.Unmarshal(data, &records); err != nil {
		l.logger.Warn("Completion ledger is corrupt, starting empty",
			zap.String("path", l.path),
			zap.Error(err))
		return make(map[string]float64)
	}
	return records
}

func (l *Ledger) save(records map[string]float64) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode completion ledger: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write completion ledger: %w", err)
	}
	return nil
}

// IsCompleted reports whether the account already completed the task in the
// current cycle. Records from before the cycle boundary do not count.
func (l *Ledger) IsCompleted(accountID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts, ok := l.load()[accountID]
	if !ok {
		return false
	}
	return ts >= float64(l.cycleStart().Unix())
}

// MarkCompleted records the account as completed now. Re-marking an already
// completed account just refreshes its timestamp.
func (l *Ledger) MarkCompleted(accountID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := l.load()
	records[accountID] = float64(l.now().Unix())
	return l.save(records)
}
