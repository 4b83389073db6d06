package app

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"aixbot/internal/browser"
)

// DefaultWalletPassword unlocks profiles provisioned with the shared password.
const DefaultWalletPassword = "DD112211"

// Wallet page text that marks a failed extension load.
var walletBlockedKeywords = []string{
	"ERR_BLOCKED_BY_CLIENT",
	"This site can’t be reached",
	"无法访问此网站",
	"ERR_FAILED",
}

// Wallet page text that marks a still-locked wallet.
var walletLockKeywords = []string{
	"解锁",
	"Unlock",
	"请输入密码",
	"输入密码",
	"Password",
}

// Deep DOM probe: finds a password input across the document, shadow roots
// and same-origin iframes, fills it and clicks the submit button. Some
// profiles render the unlock form where normal selectors cannot reach it.
const walletFillDeepJS = `(pwd) => {
  function findInputInDoc(doc) {
    if (!doc) return null;
    try {
      var el = doc.querySelector('input[type="password"]');
      if (el) return el;
      var all = doc.querySelectorAll('*');
      for (var i = 0; i < all.length; i++) {
        var n = all[i];
        if (n && n.shadowRoot) {
          var found = findInputInDoc(n.shadowRoot);
          if (found) return found;
        }
      }
    } catch (e) {}
    return null;
  }
  function findBtnInDoc(doc) {
    if (!doc) return null;
    try {
      return doc.querySelector('button[data-testid="okd-button"][type="submit"]') ||
             doc.querySelector('button[type="submit"]');
    } catch (e) {}
    return null;
  }
  var input = findInputInDoc(document);
  var btn = findBtnInDoc(document);
  try {
    var iframes = document.querySelectorAll('iframe');
    for (var i = 0; i < iframes.length && !input; i++) {
      try {
        var idoc = iframes[i].contentDocument;
        if (idoc) {
          input = findInputInDoc(idoc);
          if (input && !btn) btn = findBtnInDoc(idoc);
        }
      } catch (e) {}
    }
  } catch (e) {}
  if (!input) return false;
  try {
    input.focus();
    input.value = pwd;
    input.dispatchEvent(new Event('input', { bubbles: true }));
    input.dispatchEvent(new Event('change', { bubbles: true }));
  } catch (e) {}
  if (btn) {
    try { btn.click(); } catch (e) {}
  }
  return true;
}`

const walletProbeLockedJS = `() => {
  function findInputInDoc(doc) {
    if (!doc) return null;
    try {
      var el = doc.querySelector('input[type="password"]');
      if (el) return el;
      var all = doc.querySelectorAll('*');
      for (var i = 0; i < all.length; i++) {
        var n = all[i];
        if (n && n.shadowRoot) {
          var found = findInputInDoc(n.shadowRoot);
          if (found) return found;
        }
      }
    } catch (e) {}
    return null;
  }
  if (findInputInDoc(document)) return true;
  try {
    var iframes = document.querySelectorAll('iframe');
    for (var i = 0; i < iframes.length; i++) {
      try {
        var idoc = iframes[i].contentDocument;
        if (findInputInDoc(idoc)) return true;
      } catch (e) {}
    }
  } catch (e) {}
  return false;
}`

// WalletUnlocker drives the wallet extension's unlock screen.
type WalletUnlocker struct {
	logger   *zap.Logger
	password string
	popupURL string
}

func NewWalletUnlocker(logger *zap.Logger, password, popupURL string) *WalletUnlocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if password == "" {
		password = DefaultWalletPassword
	}
	return &WalletUnlocker{
		logger:   logger,
		password: password,
		popupURL: popupURL,
	}
}

// Unlock opens the extension popup and enters the password. Returns true when
// the wallet ends up unlocked, including the case where it was never locked.
func (w *WalletUnlocker) Unlock(r *runCtx, session browser.Session) bool {
	baseline := session.TabIDs()

	tab, ok := session.LatestTab()
	if !ok {
		r.logger.Warn("No open tab to unlock wallet from")
		return false
	}
	if err := tab.Navigate(w.popupURL); err != nil {
		r.logger.Warn("Failed to open wallet popup", zap.Error(err))
	}
	if !r.sleep(2 * time.Second) {
		return false
	}

	unlockTab := w.pickUnlockTab(session, baseline)
	if unlockTab == nil {
		r.logger.Warn("No tab available for wallet unlock")
		return false
	}
	r.logger.Debug("Wallet popup opened", zap.String("url", unlockTab.URL()))

	unlockTab = w.escapeOffscreen(r, session, unlockTab)

	input := w.findPasswordInput(r, unlockTab)
	if input == nil {
		return w.handleMissingPasswordInput(r, session, unlockTab)
	}

	r.logger.Info("Wallet unlock screen found, entering password")
	if err := input.Click(); err != nil {
		r.logger.Debug("Password input click failed", zap.Error(err))
	}
	if err := input.Fill(w.password); err != nil {
		r.logger.Debug("Password fill failed, falling back to script", zap.Error(err))
	}
	// Redundant script write covers inputs that drop driver keystrokes.
	if err := input.SetValueJS(w.password); err != nil {
		r.logger.Debug("Script password write failed", zap.Error(err))
	}

	btn, found := unlockTab.Find(5*time.Second, walletUnlockButtons...)
	if !found {
		r.logger.Warn("Wallet unlock button not found", zap.String("url", unlockTab.URL()))
		return false
	}
	if err := btn.Click(); err != nil {
		r.logger.Warn("Wallet unlock button click failed", zap.Error(err))
		return false
	}
	if !r.sleep(2 * time.Second) {
		return false
	}

	if unlockTab.Exists(3*time.Second, walletPasswordInputs...) {
		r.logger.Warn("Password input still present after unlock, wrong password or unlock failed")
		return false
	}
	r.logger.Info("Wallet unlocked")
	return true
}

// pickUnlockTab prefers a tab that appeared after opening the popup, falling
// back to the latest tab.
func (w *WalletUnlocker) pickUnlockTab(session browser.Session, baseline []string) browser.Tab {
	known := make(map[string]bool, len(baseline))
	for _, id := range baseline {
		known[id] = true
	}
	for _, t := range session.Tabs() {
		if !known[t.ID()] {
			return t
		}
	}
	tab, ok := session.LatestTab()
	if !ok {
		return nil
	}
	return tab
}

// escapeOffscreen handles the popup landing on the extension's headless
// offscreen.html page instead of the unlock UI.
func (w *WalletUnlocker) escapeOffscreen(r *runCtx, session browser.Session, tab browser.Tab) browser.Tab {
	if !strings.HasSuffix(tab.URL(), "/offscreen.html") {
		return tab
	}

	r.logger.Info("Wallet popup landed on offscreen page, reopening")
	baseline := session.TabIDs()
	if _, err := tab.Eval("url => window.open(url, '_blank')", w.popupURL); err != nil {
		r.logger.Debug("window.open from offscreen page failed", zap.Error(err))
	}
	r.sleep(2 * time.Second)

	known := make(map[string]bool, len(baseline))
	for _, id := range baseline {
		known[id] = true
	}
	for _, t := range session.Tabs() {
		if !known[t.ID()] {
			return t
		}
	}

	if newTab, err := session.NewTab(w.popupURL + "#/unlock"); err == nil {
		return newTab
	}
	return tab
}

func (w *WalletUnlocker) findPasswordInput(r *runCtx, tab browser.Tab) browser.Element {
	for attempt := 0; attempt < 3; attempt++ {
		if input, found := tab.Find(5*time.Second, walletPasswordInputs...); found {
			return input
		}
		r.logger.Debug("Password input not found, retrying", zap.Int("attempt", attempt+1))
		if !r.sleep(2 * time.Second) {
			return nil
		}
	}
	return nil
}

// handleMissingPasswordInput decides what a missing unlock form means: the
// wallet may already be unlocked, the extension page may not have rendered,
// or the extension may be blocked entirely.
func (w *WalletUnlocker) handleMissingPasswordInput(r *runCtx, session browser.Session, tab browser.Tab) bool {
	if !strings.HasPrefix(tab.URL(), "chrome-extension://") {
		r.logger.Warn("Wallet popup never reached the extension origin",
			zap.String("url", tab.URL()))
		return false
	}

	bodyText, loaded := w.waitForBody(r, session, &tab)
	if !loaded {
		return w.unlockViaDeepProbe(r, session, tab)
	}

	for _, kw := range walletBlockedKeywords {
		if strings.Contains(bodyText, kw) {
			r.logger.Warn("Wallet extension page failed to load", zap.String("keyword", kw))
			return false
		}
	}
	for _, kw := range walletLockKeywords {
		if strings.Contains(bodyText, kw) {
			r.logger.Warn("Wallet shows a lock prompt but no password input was found")
			return false
		}
	}
	r.logger.Info("No unlock form and no lock prompt, treating wallet as unlocked")
	return true
}

// waitForBody reloads a blank extension page up to three times. The tab
// pointer may be replaced when a fresh popup tab works where the original
// stays blank.
func (w *WalletUnlocker) waitForBody(r *runCtx, session browser.Session, tab *browser.Tab) (string, bool) {
	for i := 0; i < 3; i++ {
		text, err := (*tab).BodyText()
		if err == nil && strings.TrimSpace(text) != "" {
			return text, true
		}

		r.logger.Debug("Wallet page body is blank, reloading", zap.Int("attempt", i+1))
		if err := (*tab).Navigate(w.popupURL + "#/unlock"); err != nil {
			if _, evalErr := (*tab).Eval("() => location.reload()"); evalErr != nil {
				r.logger.Debug("Reload failed", zap.Error(evalErr))
			}
		}
		if !r.sleep(2 * time.Second) {
			return "", false
		}

		if newTab, err := session.NewTab(w.popupURL + "#/unlock"); err == nil {
			*tab = newTab
		}
	}
	return "", false
}

// unlockViaDeepProbe runs the in-page probe when the extension DOM is not
// reachable through selectors, then falls back to waiting for a manual
// unlock.
func (w *WalletUnlocker) unlockViaDeepProbe(r *runCtx, session browser.Session, tab browser.Tab) bool {
	res, err := tab.Eval(walletFillDeepJS, w.password)
	if err != nil {
		r.logger.Debug("Deep unlock probe failed", zap.Error(err))
	}
	if filled, ok := res.(bool); ok && filled {
		r.logger.Info("Deep probe filled the password, verifying")
		if !r.sleep(2 * time.Second) {
			return false
		}
		lockedRes, err := tab.Eval(walletProbeLockedJS)
		if err == nil {
			if locked, ok := lockedRes.(bool); ok && !locked {
				r.logger.Info("Wallet unlocked via deep probe")
				return true
			}
		}
		r.logger.Warn("Password input still present after deep probe")
		return false
	}

	r.logger.Warn("Wallet DOM unreachable, waiting for manual unlock")
	for i := 0; i < 15; i++ {
		if !r.sleep(2 * time.Second) {
			return false
		}
		if tab.Closed() {
			r.logger.Info("Unlock popup closed, treating as manually unlocked")
			return true
		}
		if _, stillOpen := session.TabByID(tab.ID()); !stillOpen {
			r.logger.Info("Unlock popup gone, treating as manually unlocked")
			return true
		}
		url := tab.URL()
		if !strings.Contains(url, "#/unlock") && strings.Contains(url, "popup.html") {
			r.logger.Info("Unlock screen dismissed, treating as manually unlocked")
			return true
		}
	}
	r.logger.Warn("Manual unlock wait timed out")
	return false
}
