package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"aixbot/clients/notifier"
	"aixbot/clients/profileapi"
	"aixbot/config"
	"aixbot/internal/browser"
)

// TaskRunner runs the full daily task for one account: start the profile,
// unlock the wallet, connect to the site, play out the market rounds and
// claim rewards.
type TaskRunner struct {
	logger  *zap.Logger
	cfg     *config.Config
	ledger  *Ledger
	profiles *profileapi.Client

	unlocker *WalletUnlocker
	login    *LoginFlow
	popups   *PopupHandler
	market   *MarketRunner
	rewards  *RewardClaimer

	// connect, probePort and sleep are swapped out in tests.
	connect   func(addr string) (browser.Session, error)
	probePort func(addr string) bool
	sleep     func(d time.Duration) bool

	endpointDir string
}

func NewTaskRunner(logger *zap.Logger, cfg *config.Config, ledger *Ledger, profiles *profileapi.Client) *TaskRunner {
	if logger == nil {
		logger = zap.NewNop()
	}

	popups := NewPopupHandler(logger)
	return &TaskRunner{
		logger:   logger,
		cfg:      cfg,
		ledger:   ledger,
		profiles: profiles,
		unlocker: NewWalletUnlocker(logger, cfg.Wallet.Password, cfg.Wallet.PopupURL),
		login:    NewLoginFlow(logger),
		popups:   popups,
		market:   NewMarketRunner(logger, popups, cfg.Runner.StallTimeout),
		rewards:  NewRewardClaimer(logger, popups),
		connect: func(addr string) (browser.Session, error) {
			return browser.Connect(logger, addr)
		},
		probePort: func(addr string) bool {
			conn, err := net.DialTimeout("tcp", addr, time.Second)
			if err != nil {
				return false
			}
			conn.Close()
			return true
		},
		endpointDir: filepath.Dir(cfg.Ledger.Path),
	}
}

// RunAccount processes one account end to end and reports the outcome.
func (t *TaskRunner) RunAccount(ctx context.Context, account config.Account) notifier.AccountResult {
	r := newRunCtx(ctx, t.logger, account.ID)
	r.sleepFn = t.sleep
	started := time.Now()

	result := func(completed bool, reason string) notifier.AccountResult {
		return notifier.AccountResult{
			AccountID: account.ID,
			Completed: completed,
			Reason:    reason,
			Duration:  time.Since(started),
		}
	}

	if t.ledger.IsCompleted(account.ID) {
		r.logger.Info("Task already completed this cycle, skipping")
		return result(true, "already completed")
	}

	session, addr, reused, err := t.openProfile(r, account.ID)
	if err != nil {
		r.logger.Error("Failed to open browser profile", zap.Error(err))
		return result(false, fmt.Sprintf("profile start failed: %v", err))
	}
	r.logger.Info("Connected to browser profile",
		zap.String("addr", addr),
		zap.Bool("reused", reused))

	defer func() {
		_ = session.Close()
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := t.profiles.Stop(stopCtx, account.ID); err != nil {
			r.logger.Warn("Failed to stop browser profile", zap.Error(err))
		}
		t.clearEndpoint(account.ID)
	}()

	mainTab, ok := session.LatestTab()
	if !ok {
		var err error
		mainTab, err = session.NewTab(t.cfg.Site.MarketURL)
		if err != nil {
			r.logger.Error("No usable tab in profile", zap.Error(err))
			return result(false, "no usable tab")
		}
	}
	if err := mainTab.Navigate(t.cfg.Site.MarketURL); err != nil {
		r.logger.Warn("Failed to open market page", zap.Error(err))
	}

	if t.unlocker.Unlock(r, session) {
		r.logger.Info("Wallet ready")
	} else {
		r.logger.Warn("Wallet unlock failed, continuing anyway")
	}

	t.ensureLoggedIn(r, session, mainTab)

	// Leftover sign popups from the login sometimes surface late and would
	// block the first placement.
	r.logger.Debug("Clearing leftover wallet popups before the task")
	for i := 0; i < 3; i++ {
		t.popups.Sweep(r, session, mainTab.ID())
		if !r.sleep(1500 * time.Millisecond) {
			return result(false, "cancelled")
		}
	}

	placeDone := t.market.Run(r, session, mainTab, t.cfg.Site.MarketURL)
	if r.stopped() {
		r.logger.Info("Cancelled, completion not recorded")
		return result(false, "cancelled")
	}
	claimDone := t.rewards.ClaimAll(r, session, mainTab, t.cfg.Site.TasksURL)
	if r.stopped() {
		r.logger.Info("Cancelled, completion not recorded")
		return result(false, "cancelled")
	}

	if placeDone && claimDone {
		if err := t.ledger.MarkCompleted(account.ID); err != nil {
			r.logger.Error("Failed to record completion", zap.Error(err))
			return result(false, fmt.Sprintf("ledger write failed: %v", err))
		}
		r.logger.Info("Task completed and recorded")
		return result(true, "")
	}

	r.logger.Warn("Task incomplete, not recorded",
		zap.Bool("placements", placeDone),
		zap.Bool("claims", claimDone))
	if !placeDone {
		return result(false, "placements incomplete")
	}
	return result(false, "claims incomplete")
}

// ensureLoggedIn checks the login state on the home page and, when needed,
// runs the connect flow plus its wallet approvals.
func (t *TaskRunner) ensureLoggedIn(r *runCtx, session browser.Session, mainTab browser.Tab) {
	if err := mainTab.Navigate(t.cfg.Site.HomeURL); err != nil {
		r.logger.Warn("Failed to open home page", zap.Error(err))
	}
	if !r.sleep(2 * time.Second) {
		return
	}

	if t.login.CheckState(mainTab, 3*time.Second) == StateLoggedIn {
		r.logger.Info("Already logged in")
		return
	}

	popup, clicked := t.login.Login(r, session, mainTab)
	if popup != nil || clicked {
		if !r.sleep(2 * time.Second) {
			return
		}
		t.popups.HandleApproval(r, session, mainTab, popup, 30*time.Second)
		return
	}

	if t.login.CheckState(mainTab, 3*time.Second) == StateLoggedIn {
		r.logger.Info("Logged in automatically after connect")
		return
	}

	// Salvage: reopen the home page and click the wallet option directly.
	r.logger.Info("Login incomplete, retrying the wallet connect")
	if err := mainTab.Navigate(t.cfg.Site.HomeURL); err != nil {
		r.logger.Debug("Home page reopen failed", zap.Error(err))
	}
	if !r.sleep(2 * time.Second) {
		return
	}

	if okxOption, found := mainTab.Find(8*time.Second, okxWalletOptions...); found {
		baseline := session.TabIDs()
		if err := clickWithFallback(okxOption); err == nil {
			if popup, ok := session.WaitForNewTab(r.ctx, baseline, 15*time.Second); ok {
				_ = popup.Activate()
				t.popups.HandleApproval(r, session, mainTab, popup, 30*time.Second)
				return
			}
		}
	}
	if !r.sleep(2 * time.Second) {
		return
	}
	t.popups.HandleApproval(r, session, mainTab, nil, 25*time.Second)
}

// openProfile connects to the account's browser, reusing a still-open
// debug endpoint before asking the orchestrator to start the profile.
func (t *TaskRunner) openProfile(r *runCtx, accountID string) (browser.Session, string, bool, error) {
	if addr := t.loadEndpoint(accountID); addr != "" {
		if t.probePort(addr) {
			if session, err := t.connect(addr); err == nil {
				return session, addr, true, nil
			}
			r.logger.Debug("Saved endpoint open but connect failed", zap.String("addr", addr))
		}
		t.clearEndpoint(accountID)
	}

	addr, err := t.profiles.Start(r.ctx, accountID)
	if err != nil {
		return nil, "", false, err
	}
	session, err := t.connect(addr)
	if err != nil {
		return nil, "", false, fmt.Errorf("connect to %s: %w", addr, err)
	}
	t.saveEndpoint(r, accountID, addr)
	return session, addr, false, nil
}

func (t *TaskRunner) endpointFile(accountID string) string {
	return filepath.Join(t.endpointDir, "last_debug_port_"+accountID+".txt")
}

func (t *TaskRunner) loadEndpoint(accountID string) string {
	data, err := os.ReadFile(t.endpointFile(accountID))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (t *TaskRunner) saveEndpoint(r *runCtx, accountID, addr string) {
	if err := os.WriteFile(t.endpointFile(accountID), []byte(addr), 0644); err != nil {
		r.logger.Warn("Failed to save debug endpoint", zap.Error(err))
	}
}

func (t *TaskRunner) clearEndpoint(accountID string) {
	_ = os.Remove(t.endpointFile(accountID))
}
