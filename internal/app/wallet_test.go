package app

import (
	"strings"
	"testing"

	"aixbot/internal/browser"
)

const testPopupURL = "chrome-extension://abc123/popup.html"

func newUnlockFixture() (*WalletUnlocker, *fakeSession, *fakeTab) {
	tab := newFakeTab("main", testPopupURL)
	session := newFakeSession(tab)
	unlocker := NewWalletUnlocker(nil, "secret-pass", testPopupURL)
	return unlocker, session, tab
}

func TestUnlockHappyPath(t *testing.T) {
	unlocker, session, tab := newUnlockFixture()

	input := &fakeElement{}
	tab.setElement("okd password input", input)
	tab.setElement("okd submit button", &fakeElement{onClick: func() {
		tab.setElement("okd password input", nil)
	}})

	if !unlocker.Unlock(testRunCtx(), session) {
		t.Fatal("expected unlock to succeed")
	}
	if len(input.fills) == 0 || input.fills[0] != "secret-pass" {
		t.Errorf("expected password filled, got %v", input.fills)
	}
	if len(input.setValues) == 0 || input.setValues[0] != "secret-pass" {
		t.Errorf("expected script password write, got %v", input.setValues)
	}
}

func TestUnlockWrongPassword(t *testing.T) {
	unlocker, session, tab := newUnlockFixture()

	// Submit leaves the password input in place.
	tab.setElement("okd password input", &fakeElement{})
	tab.setElement("okd submit button", &fakeElement{})

	if unlocker.Unlock(testRunCtx(), session) {
		t.Error("expected unlock to fail when password input persists")
	}
}

func TestUnlockFallsBackToGenericSelectors(t *testing.T) {
	unlocker, session, tab := newUnlockFixture()

	input := &fakeElement{}
	tab.setElement("generic password input", input)
	tab.setElement("generic submit button", &fakeElement{onClick: func() {
		tab.setElement("generic password input", nil)
	}})

	if !unlocker.Unlock(testRunCtx(), session) {
		t.Fatal("expected unlock via generic selectors")
	}
	if len(input.fills) == 0 {
		t.Error("expected password filled through generic input")
	}
}

func TestUnlockOutsideExtensionOrigin(t *testing.T) {
	// The tab never reaches the extension origin and shows no unlock form.
	tab := newFakeTab("main", "https://example.com/")
	tab.navigateOverride = "https://example.com/blocked"
	session := newFakeSession(tab)
	unlocker := NewWalletUnlocker(nil, "secret-pass", testPopupURL)

	if unlocker.Unlock(testRunCtx(), session) {
		t.Error("expected unlock to fail outside the extension origin")
	}
}

func TestUnlockAlreadyUnlocked(t *testing.T) {
	unlocker, session, tab := newUnlockFixture()
	tab.body = "Portfolio\nTokens\nNFTs"

	if !unlocker.Unlock(testRunCtx(), session) {
		t.Error("expected missing unlock form with normal content to count as unlocked")
	}
}

func TestUnlockLockPromptWithoutInput(t *testing.T) {
	unlocker, session, tab := newUnlockFixture()
	tab.body = "Unlock your wallet\nPassword"

	if unlocker.Unlock(testRunCtx(), session) {
		t.Error("expected unlock to fail when lock prompt shows but input is missing")
	}
}

func TestUnlockBlockedExtension(t *testing.T) {
	unlocker, session, tab := newUnlockFixture()
	tab.body = "ERR_BLOCKED_BY_CLIENT"

	if unlocker.Unlock(testRunCtx(), session) {
		t.Error("expected unlock to fail on blocked extension page")
	}
}

func TestUnlockDeepProbe(t *testing.T) {
	unlocker, session, tab := newUnlockFixture()
	tab.body = "" // blank body forces reload attempts then the deep probe

	probeTab := newFakeTab("probe", testPopupURL+"#/unlock")
	probeTab.evalFn = func(js string, arg ...any) (any, error) {
		if strings.Contains(js, "input.focus()") {
			return true, nil // fill succeeded
		}
		return false, nil // re-probe: input gone
	}
	session.newTabFn = func(url string) (browser.Tab, error) { return probeTab, nil }

	if !unlocker.Unlock(testRunCtx(), session) {
		t.Error("expected deep probe unlock to succeed")
	}
}

func TestUnlockManualWaitOnClosedPopup(t *testing.T) {
	unlocker, session, tab := newUnlockFixture()
	tab.body = ""

	probeTab := newFakeTab("probe", testPopupURL+"#/unlock")
	probeTab.evalFn = func(js string, arg ...any) (any, error) { return false, nil }
	probeTab.closed = true
	session.newTabFn = func(url string) (browser.Tab, error) { return probeTab, nil }

	if !unlocker.Unlock(testRunCtx(), session) {
		t.Error("expected closed popup during manual wait to count as unlocked")
	}
}

func TestUnlockEscapesOffscreenPage(t *testing.T) {
	offscreen := newFakeTab("off", testPopupURL)
	session := newFakeSession(offscreen)
	unlocker := NewWalletUnlocker(nil, "secret-pass", testPopupURL)

	popup := newFakeTab("popup", testPopupURL+"#/unlock")
	input := &fakeElement{}
	popup.setElement("okd password input", input)
	popup.setElement("okd submit button", &fakeElement{onClick: func() {
		popup.setElement("okd password input", nil)
	}})

	// Opening the popup URL lands on the headless offscreen page; the
	// window.open escape hatch spawns the real popup tab.
	offscreen.navigateOverride = testPopupURL + "/offscreen.html"
	offscreen.evalFn = func(js string, arg ...any) (any, error) {
		if strings.Contains(js, "window.open") {
			session.addTab(popup)
		}
		return nil, nil
	}

	if !unlocker.Unlock(testRunCtx(), session) {
		t.Fatal("expected unlock to succeed after escaping offscreen page")
	}
	if len(input.fills) == 0 {
		t.Error("expected password filled on the popup tab")
	}
}
