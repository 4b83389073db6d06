package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// runCtx carries the per-account cancellation context and tagged logger
// through one account's task run.
type runCtx struct {
	ctx    context.Context
	logger *zap.Logger

	// sleepFn overrides sleep in tests.
	sleepFn func(d time.Duration) bool
}

func newRunCtx(ctx context.Context, logger *zap.Logger, accountID string) *runCtx {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &runCtx{
		ctx:    ctx,
		logger: logger.With(zap.String("account", accountID)),
	}
}

// stopped reports whether the run has been cancelled.
func (r *runCtx) stopped() bool {
	select {
	case <-r.ctx.Done():
		return true
	default:
		return false
	}
}

// sleep waits for d unless the run is cancelled first. Returns false on
// cancellation.
func (r *runCtx) sleep(d time.Duration) bool {
	if r.sleepFn != nil {
		return r.sleepFn(d)
	}
	select {
	case <-r.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
