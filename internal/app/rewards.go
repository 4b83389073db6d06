package app

import (
	"time"

	"go.uber.org/zap"

	"aixbot/internal/browser"
)

// RewardClaimer clicks every claim button on the tasks page, rescanning
// until none are left. Claims can spawn wallet popups, so the sweep runs
// between clicks.
type RewardClaimer struct {
	logger *zap.Logger
	popups *PopupHandler

	loadDelay  time.Duration
	clickDelay time.Duration
	roundDelay time.Duration
}

func NewRewardClaimer(logger *zap.Logger, popups *PopupHandler) *RewardClaimer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RewardClaimer{
		logger:     logger,
		popups:     popups,
		loadDelay:  2 * time.Second,
		clickDelay: 300 * time.Millisecond,
		roundDelay: 1 * time.Second,
	}
}

// ClaimAll opens the tasks page and clicks claim buttons until a scan finds
// none. Returns false only on cancellation.
func (c *RewardClaimer) ClaimAll(r *runCtx, session browser.Session, mainTab browser.Tab, tasksURL string) bool {
	_ = mainTab.Activate()
	if err := mainTab.Navigate(tasksURL); err != nil {
		r.logger.Warn("Failed to open tasks page", zap.Error(err))
	}
	if !r.sleep(c.loadDelay) {
		return false
	}

	for {
		c.popups.Sweep(r, session, mainTab.ID())
		if r.stopped() {
			return false
		}

		buttons := mainTab.FindAll(claimRewardButtons)
		if len(buttons) == 0 {
			r.logger.Info("No claim buttons left")
			return true
		}
		r.logger.Info("Claiming rewards", zap.Int("buttons", len(buttons)))

		for _, btn := range buttons {
			c.popups.Sweep(r, session, mainTab.ID())
			if err := clickWithFallback(btn); err != nil {
				r.logger.Debug("Claim click failed", zap.Error(err))
			}
			if !r.sleep(c.clickDelay) {
				return false
			}
		}
		if !r.sleep(c.roundDelay) {
			return false
		}
	}
}
