package app

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestLedger(t *testing.T, resetHour int) *Ledger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "completed.json")
	return NewLedger(nil, path, resetHour)
}

func TestLedgerMissingFileIsEmpty(t *testing.T) {
	ledger := newTestLedger(t, 8)
	if ledger.IsCompleted("acc1") {
		t.Error("expected account to be incomplete with no ledger file")
	}
}

func TestLedgerCorruptFileIsEmpty(t *testing.T) {
	ledger := newTestLedger(t, 8)
	if err := os.WriteFile(ledger.path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}
	if ledger.IsCompleted("acc1") {
		t.Error("expected account to be incomplete with corrupt ledger")
	}
	if err := ledger.MarkCompleted("acc1"); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	if !ledger.IsCompleted("acc1") {
		t.Error("expected account completed after marking over corrupt file")
	}
}

func TestLedgerMarkAndCheck(t *testing.T) {
	ledger := newTestLedger(t, 8)
	if err := ledger.MarkCompleted("acc1"); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	if !ledger.IsCompleted("acc1") {
		t.Error("expected acc1 completed")
	}
	if ledger.IsCompleted("acc2") {
		t.Error("expected acc2 incomplete")
	}
}

func TestLedgerMarkIsIdempotent(t *testing.T) {
	ledger := newTestLedger(t, 8)
	for i := 0; i < 3; i++ {
		if err := ledger.MarkCompleted("acc1"); err != nil {
			t.Fatalf("MarkCompleted failed: %v", err)
		}
	}
	if !ledger.IsCompleted("acc1") {
		t.Error("expected acc1 completed after repeated marks")
	}
}

func TestLedgerCycleBoundary(t *testing.T) {
	ledger := newTestLedger(t, 8)

	// Fixed clock: 10:00 local, so the cycle started at 08:00 today.
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.Local)
	ledger.now = func() time.Time { return now }

	boundary := time.Date(2026, 3, 10, 8, 0, 0, 0, time.Local)

	cases := []struct {
		name      string
		ts        time.Time
		completed bool
	}{
		{"before boundary", boundary.Add(-time.Second), false},
		{"exactly at boundary", boundary, true},
		{"after boundary", boundary.Add(time.Second), true},
		{"yesterday", boundary.AddDate(0, 0, -1), false},
	}

	for _, tc := range cases {
		ledger.now = func() time.Time { return tc.ts }
		if err := ledger.MarkCompleted("acc1"); err != nil {
			t.Fatalf("%s: MarkCompleted failed: %v", tc.name, err)
		}
		ledger.now = func() time.Time { return now }
		if got := ledger.IsCompleted("acc1"); got != tc.completed {
			t.Errorf("%s: IsCompleted = %v, want %v", tc.name, got, tc.completed)
		}
	}
}

func TestLedgerCycleBoundaryBeforeResetHour(t *testing.T) {
	ledger := newTestLedger(t, 8)

	// 06:00 local: the current cycle started at 08:00 yesterday.
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.Local)

	// Completed at 09:00 yesterday, inside the current cycle.
	ledger.now = func() time.Time { return time.Date(2026, 3, 9, 9, 0, 0, 0, time.Local) }
	if err := ledger.MarkCompleted("acc1"); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	ledger.now = func() time.Time { return now }
	if !ledger.IsCompleted("acc1") {
		t.Error("expected completion from yesterday 09:00 to count before today's reset")
	}
}

func TestLedgerConcurrentMarks(t *testing.T) {
	ledger := newTestLedger(t, 8)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			if err := ledger.MarkCompleted(id); err != nil {
				t.Errorf("MarkCompleted(%s) failed: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		id := string(rune('a' + i))
		if !ledger.IsCompleted(id) {
			t.Errorf("expected %s completed after concurrent marks", id)
		}
	}
}
