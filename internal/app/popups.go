package app

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"aixbot/internal/browser"
)

// In-page confirm click for the wallet approval popup. The confirm control is
// a styled div whose click handler may sit on an ancestor button, so the
// script clicks the div, its enclosing button, and finally dispatches a raw
// mouse event.
const popupConfirmJS = `() => {
  try {
    let divs = document.querySelectorAll('div');
    for (let d of divs) {
      if (d.innerText.trim() === '确认' && d.className.includes('_typography-text')) {
        d.click();
        let btn = d.closest('button');
        if (btn) { btn.click(); return true; }
        let event = new MouseEvent('click', { bubbles: true, cancelable: true, view: window });
        d.dispatchEvent(event);
        return true;
      }
    }
    let btns = document.querySelectorAll('button');
    for (let b of btns) {
      if (b.innerText.includes('确认')) { b.click(); return true; }
    }
  } catch (e) { return false; }
  return false;
}`

// Broader variant used by the background sweep: also accepts sign and
// approve prompts in both languages.
const popupSweepConfirmJS = `() => {
  try {
    let divs = document.querySelectorAll('div');
    for (let d of divs) {
      let t = (d.innerText || '').trim();
      if ((t === '确认' || t === '签名' || t === 'Confirm' || t === 'Sign') && d.className.includes('_typography-text')) {
        d.click();
        let btn = d.closest('button');
        if (btn) { btn.click(); return true; }
        let event = new MouseEvent('click', { bubbles: true, cancelable: true, view: window });
        d.dispatchEvent(event);
        return true;
      }
    }
    let btns = document.querySelectorAll('button');
    for (let b of btns) {
      let t = (b.innerText || '').trim();
      if (t === '确认' || t === '签名' || t === 'Confirm' || t === 'Sign' || t === 'Approve') {
        b.click();
        return true;
      }
    }
  } catch (e) { return false; }
  return false;
}`

// Tab url/title fragments that mark a wallet popup during the sweep.
var popupTabMarkers = []string{"okx", "extension", "Wallet", "Notification", "签名", "Sign", "Request"}

// PopupHandler clicks through the wallet extension's connect, confirm and
// sign popups.
type PopupHandler struct {
	logger *zap.Logger

	connectTabTimeout time.Duration
	chainedTimeout    time.Duration
	loadDelay         time.Duration
}

func NewPopupHandler(logger *zap.Logger) *PopupHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PopupHandler{
		logger:            logger,
		connectTabTimeout: 10 * time.Second,
		chainedTimeout:    8 * time.Second,
		loadDelay:         2 * time.Second,
	}
}

// HandleApproval drives a freshly captured wallet popup through connect plus
// any chained confirm popups. When popup is nil it waits up to timeout for
// one to appear, falling back to clicking on mainTab directly.
func (h *PopupHandler) HandleApproval(r *runCtx, session browser.Session, mainTab browser.Tab, popup browser.Tab, timeout time.Duration) bool {
	if popup == nil {
		baseline := session.TabIDs()
		if tab, ok := session.WaitForNewTab(r.ctx, baseline, timeout); ok {
			popup = tab
		} else {
			r.logger.Debug("No approval popup appeared, trying the current page")
			popup = mainTab
		}
	}
	if popup == nil {
		r.logger.Warn("No tab available for wallet approval")
		return false
	}

	// Connect usually spawns a second popup that carries the confirm button.
	baseline := session.TabIDs()
	if tryClick(popup, 3*time.Second, popupConnectButtons...) {
		r.logger.Debug("Clicked connect in approval popup")
		if confirmTab, ok := session.WaitForNewTab(r.ctx, baseline, h.connectTabTimeout); ok {
			_ = confirmTab.Activate()
			if h.confirmInTab(r, confirmTab) {
				h.handleChainedConfirms(r, session)
				return true
			}
			r.logger.Debug("Confirm click in chained popup failed")
		}
	}

	// Fallback: hammer the connect/confirm selector chain on whatever tab we
	// have, three rounds.
	for round := 0; round < 3; round++ {
		if tryClick(popup, 1*time.Second, popupConnectButtons...) {
			if confirmTab, ok := session.WaitForNewTab(r.ctx, session.TabIDs(), timeout); ok {
				_ = confirmTab.Activate()
				if h.confirmInTab(r, confirmTab) {
					return true
				}
			}
			return true
		}
		if tryClick(popup, 1*time.Second, popupConfirmButtons...) {
			return true
		}
		if !r.sleep(1 * time.Second) {
			return false
		}
	}
	r.logger.Warn("Could not click confirm in wallet popup")
	return false
}

// handleChainedConfirms waits for follow-up confirm popups, up to two.
func (h *PopupHandler) handleChainedConfirms(r *runCtx, session browser.Session) {
	for i := 0; i < 2; i++ {
		baseline := session.TabIDs()
		next, ok := session.WaitForNewTab(r.ctx, baseline, h.chainedTimeout)
		if !ok {
			return
		}
		r.logger.Debug("Handling chained confirm popup", zap.Int("index", i+2))
		_ = next.Activate()
		if !h.confirmInTab(r, next) {
			r.logger.Debug("Chained confirm click failed", zap.Int("index", i+2))
		}
	}
}

// confirmInTab clicks confirm in a popup tab: script click first, then the
// selector chain.
func (h *PopupHandler) confirmInTab(r *runCtx, tab browser.Tab) bool {
	if !r.sleep(h.loadDelay) {
		return false
	}

	res, err := tab.Eval(popupConfirmJS)
	if err == nil {
		if clicked, ok := res.(bool); ok && clicked {
			r.logger.Debug("Confirm clicked via script", zap.String("tab", tab.ID()))
			return true
		}
	}

	return tryClick(tab, 2*time.Second, popupConfirmButtons...)
}

// Sweep scans every tab except the main one for wallet popups and clicks
// confirm or sign in each.
func (h *PopupHandler) Sweep(r *runCtx, session browser.Session, mainTabID string) {
	for _, tab := range session.Tabs() {
		if tab.ID() == mainTabID {
			continue
		}
		if !looksLikeWalletPopup(tab) {
			continue
		}

		res, err := tab.Eval(popupSweepConfirmJS)
		if err == nil {
			if clicked, ok := res.(bool); ok && clicked {
				r.logger.Debug("Swept wallet popup via script", zap.String("tab", tab.ID()))
				continue
			}
		}
		if tryClick(tab, 500*time.Millisecond, popupConfirmButtons...) {
			r.logger.Debug("Swept wallet popup via selectors", zap.String("tab", tab.ID()))
		}
	}
}

func looksLikeWalletPopup(tab browser.Tab) bool {
	url := tab.URL()
	title := tab.Title()
	for _, marker := range popupTabMarkers {
		if strings.Contains(url, marker) || strings.Contains(title, marker) {
			return true
		}
	}
	return false
}
