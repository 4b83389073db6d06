package notifier

import "time"

// AccountResult summarizes one account's run for notification purposes.
type AccountResult struct {
	AccountID string
	Completed bool
	Reason    string // short failure description when not completed
	Duration  time.Duration
}

// RunSummary summarizes a whole batch pass.
type RunSummary struct {
	Pass      int // 1 for the first pass, 2 for the retry pass
	Total     int
	Completed int
	Failed    int
	Skipped   int
	StartedAt time.Time
	Elapsed   time.Duration
}

// Notifier is the interface for pushing run events to an external channel.
type Notifier interface {
	// NotifyAccountResult reports a finished (or failed) account run.
	NotifyAccountResult(result AccountResult) error

	// NotifyRunSummary reports a completed batch pass.
	NotifyRunSummary(summary RunSummary) error

	// Close cleans up any resources.
	Close() error
}

// NoopNotifier discards all events.
type NoopNotifier struct{}

func (NoopNotifier) NotifyAccountResult(AccountResult) error { return nil }
func (NoopNotifier) NotifyRunSummary(RunSummary) error       { return nil }
func (NoopNotifier) Close() error                            { return nil }
