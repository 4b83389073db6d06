package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aixbot/clients/notifier"
	"aixbot/config"
)

// accountRunner runs the daily task for a single account.
type accountRunner interface {
	RunAccount(ctx context.Context, account config.Account) notifier.AccountResult
}

// BatchRunner fans accounts out over a bounded worker pool, then makes a
// second pass over whatever is still incomplete.
type BatchRunner struct {
	logger   *zap.Logger
	ledger   *Ledger
	tasks    accountRunner
	notifier notifier.Notifier

	threads int
	spacing time.Duration
}

func NewBatchRunner(logger *zap.Logger, ledger *Ledger, tasks accountRunner, n notifier.Notifier, threads int, spacing time.Duration) *BatchRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if n == nil {
		n = notifier.NoopNotifier{}
	}
	if threads < 1 {
		threads = 1
	}
	return &BatchRunner{
		logger:   logger,
		ledger:   ledger,
		tasks:    tasks,
		notifier: n,
		threads:  threads,
		spacing:  spacing,
	}
}

// Run executes every account, then retries the ones that did not complete.
// Returns the summary of the final pass.
func (b *BatchRunner) Run(ctx context.Context, accounts []config.Account) notifier.RunSummary {
	summary := b.runPass(ctx, 1, accounts)

	if ctx.Err() != nil {
		return summary
	}

	var remaining []config.Account
	for _, acc := range accounts {
		if !b.ledger.IsCompleted(acc.ID) {
			remaining = append(remaining, acc)
		}
	}
	if len(remaining) == 0 {
		return summary
	}

	b.logger.Info("Retrying incomplete accounts", zap.Int("remaining", len(remaining)))
	return b.runPass(ctx, 2, remaining)
}

func (b *BatchRunner) runPass(ctx context.Context, pass int, accounts []config.Account) notifier.RunSummary {
	b.logger.Info("Starting pass",
		zap.Int("pass", pass),
		zap.Int("accounts", len(accounts)),
		zap.Int("threads", b.threads))

	summary := notifier.RunSummary{
		Pass:      pass,
		Total:     len(accounts),
		StartedAt: time.Now(),
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(b.threads)

	for i, acc := range accounts {
		if ctx.Err() != nil {
			b.logger.Info("Run cancelled, not submitting further accounts")
			break
		}

		// An earlier worker may have finished this account while it waited
		// in the queue.
		if b.ledger.IsCompleted(acc.ID) {
			b.logger.Info("Account completed while queued, skipping", zap.String("account", acc.ID))
			mu.Lock()
			summary.Skipped++
			mu.Unlock()
			continue
		}

		account := acc
		g.Go(func() error {
			res := b.tasks.RunAccount(ctx, account)
			if err := b.notifier.NotifyAccountResult(res); err != nil {
				b.logger.Warn("Account notification failed", zap.Error(err))
			}
			mu.Lock()
			if res.Completed {
				summary.Completed++
			} else {
				summary.Failed++
			}
			mu.Unlock()
			return nil
		})

		// Stagger submissions so profile starts do not hammer the
		// orchestrator API.
		if i < len(accounts)-1 && b.spacing > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(b.spacing):
			}
		}
	}

	_ = g.Wait()
	summary.Elapsed = time.Since(summary.StartedAt)

	b.logger.Info("Pass finished",
		zap.Int("pass", pass),
		zap.Int("completed", summary.Completed),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("elapsed", summary.Elapsed.Round(time.Second)))

	if err := b.notifier.NotifyRunSummary(summary); err != nil {
		b.logger.Warn("Summary notification failed", zap.Error(err))
	}
	return summary
}
