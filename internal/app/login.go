package app

import (
	"time"

	"go.uber.org/zap"

	"aixbot/internal/browser"
)

// LoginState is the wallet connection state read off the site header.
type LoginState string

const (
	StateLoggedIn    LoginState = "logged_in"
	StateNotLoggedIn LoginState = "not_logged_in"
	StateUnknown     LoginState = "unknown"
)

// LoginFlow connects the site to the wallet extension: it clicks through the
// connect dialog and captures the wallet's approval popup.
type LoginFlow struct {
	logger *zap.Logger

	detectTimeout time.Duration
	walletTimeout time.Duration
	popupTimeout  time.Duration
}

func NewLoginFlow(logger *zap.Logger) *LoginFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoginFlow{
		logger:        logger,
		detectTimeout: 5 * time.Second,
		walletTimeout: 8 * time.Second,
		popupTimeout:  15 * time.Second,
	}
}

// CheckState reads the login state from the page header. The address element
// is matched by style only, never by a concrete address.
func (f *LoginFlow) CheckState(tab browser.Tab, timeout time.Duration) LoginState {
	if tab.Exists(timeout, notConnectedMarkers...) {
		return StateNotLoggedIn
	}
	if tab.Exists(timeout, walletAddressMarkers...) {
		return StateLoggedIn
	}
	return StateUnknown
}

// Login runs the connect flow on mainTab. Returns the captured wallet popup
// tab when one appeared, or clicked=true when the wallet option was clicked
// but no popup could be captured (the caller should sweep for it), or
// (nil, false) when the site logged in by itself or nothing was clicked.
func (f *LoginFlow) Login(r *runCtx, session browser.Session, mainTab browser.Tab) (popup browser.Tab, clicked bool) {
	f.clickConnectWallet(r, mainTab)

	if !r.sleep(3 * time.Second) {
		return nil, false
	}
	if f.CheckState(mainTab, 2*time.Second) == StateLoggedIn {
		r.logger.Info("Site logged in after connect click, skipping wallet selection")
		return nil, false
	}

	// Skipping this intermediate click makes the wallet popup uncapturable
	// on some profiles.
	if tryClick(mainTab, 3*time.Second, continueWithWallet...) {
		r.logger.Debug("Clicked wallet continue option")
		if !r.sleep(1 * time.Second) {
			return nil, false
		}
	}

	okxOption, found := mainTab.Find(f.walletTimeout, okxWalletOptions...)
	if !found {
		r.logger.Warn("Wallet option not found in connect dialog")
		return nil, false
	}

	baseline := session.TabIDs()
	if err := okxOption.Click(); err != nil {
		r.logger.Debug("Wallet option click failed", zap.Error(err))
	}
	if tab, ok := session.WaitForNewTab(r.ctx, baseline, f.popupTimeout); ok {
		r.logger.Info("Captured wallet approval popup", zap.String("tab", tab.ID()))
		return tab, true
	}

	r.logger.Debug("No popup after click, retrying through script click")
	if err := okxOption.ClickJS(); err != nil {
		r.logger.Debug("Script click on wallet option failed", zap.Error(err))
	}
	if tab, ok := session.WaitForNewTab(r.ctx, baseline, f.popupTimeout); ok {
		r.logger.Info("Captured wallet approval popup after script click", zap.String("tab", tab.ID()))
		return tab, true
	}

	r.logger.Warn("Wallet option clicked but popup not captured, relying on sweep")
	return nil, true
}

// clickConnectWallet clicks the connect button until the wallet chooser
// appears, tolerating the transition lag where the button lingers after a
// click already registered.
func (f *LoginFlow) clickConnectWallet(r *runCtx, mainTab browser.Tab) {
	connectLoc := connectWalletButtons[:1]
	if !mainTab.Exists(f.detectTimeout, connectLoc...) {
		// Older site builds expose a plain Login entry instead.
		if tryClick(mainTab, f.detectTimeout, connectWalletButtons[1:]...) {
			r.logger.Debug("Clicked legacy login button")
		}
		return
	}

	for attempt := 0; attempt < 5; attempt++ {
		if mainTab.Exists(500*time.Millisecond, continueWithWallet...) {
			r.logger.Debug("Wallet chooser already open")
			return
		}
		if !tryClick(mainTab, 1*time.Second, connectLoc...) {
			return
		}
		if !r.sleep(1500 * time.Millisecond) {
			return
		}
		if mainTab.Exists(500*time.Millisecond, continueWithWallet...) {
			r.logger.Debug("Wallet chooser opened", zap.Int("clicks", attempt+1))
			return
		}
		if !mainTab.Exists(1*time.Second, connectLoc...) {
			r.logger.Debug("Connect button gone after click")
			return
		}
		r.logger.Debug("Connect button still present, clicking again", zap.Int("attempt", attempt+2))
	}
}
