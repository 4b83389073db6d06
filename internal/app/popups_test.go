package app

import (
	"strings"
	"testing"
	"time"
)

func newPopupFixture() (*PopupHandler, *fakeSession, *fakeTab) {
	mainTab := newFakeTab("main", "https://hub.example.com/market")
	session := newFakeSession(mainTab)
	h := NewPopupHandler(nil)
	h.connectTabTimeout = 50 * time.Millisecond
	h.chainedTimeout = 20 * time.Millisecond
	h.loadDelay = time.Millisecond
	return h, session, mainTab
}

func TestHandleApprovalConnectThenConfirm(t *testing.T) {
	h, session, mainTab := newPopupFixture()

	confirmTab := newFakeTab("confirm", "chrome-extension://abc/notification.html")
	confirmTab.evalFn = func(js string, arg ...any) (any, error) { return true, nil }

	popup := newFakeTab("popup", "chrome-extension://abc/connect.html")
	popup.setElement("connect button cn", &fakeElement{onClick: func() {
		session.addTab(confirmTab)
	}})
	session.addTab(popup)

	if !h.HandleApproval(testRunCtx(), session, mainTab, popup, 50*time.Millisecond) {
		t.Fatal("expected approval to succeed")
	}
	if confirmTab.activations == 0 {
		t.Error("expected confirm popup to be activated")
	}
}

func TestHandleApprovalConfirmViaSelectors(t *testing.T) {
	h, session, mainTab := newPopupFixture()

	confirmTab := newFakeTab("confirm", "chrome-extension://abc/notification.html")
	confirmTab.evalFn = func(js string, arg ...any) (any, error) { return false, nil }
	confirmTab.setElement("confirm button div", &fakeElement{})

	popup := newFakeTab("popup", "chrome-extension://abc/connect.html")
	popup.setElement("connect button en", &fakeElement{onClick: func() {
		session.addTab(confirmTab)
	}})
	session.addTab(popup)

	if !h.HandleApproval(testRunCtx(), session, mainTab, popup, 50*time.Millisecond) {
		t.Error("expected approval via selector fallback to succeed")
	}
}

func TestHandleApprovalDirectConfirm(t *testing.T) {
	h, session, mainTab := newPopupFixture()

	// Popup carries the confirm button itself, no connect step.
	popup := newFakeTab("popup", "chrome-extension://abc/notification.html")
	popup.setElement("confirm typography", &fakeElement{})
	session.addTab(popup)

	if !h.HandleApproval(testRunCtx(), session, mainTab, popup, 50*time.Millisecond) {
		t.Error("expected direct confirm to succeed")
	}
}

func TestHandleApprovalNothingToConfirm(t *testing.T) {
	h, session, mainTab := newPopupFixture()

	popup := newFakeTab("popup", "chrome-extension://abc/connect.html")
	session.addTab(popup)

	if h.HandleApproval(testRunCtx(), session, mainTab, popup, 20*time.Millisecond) {
		t.Error("expected approval to fail with no clickable controls")
	}
}

func TestHandleApprovalWaitsForPopup(t *testing.T) {
	h, session, mainTab := newPopupFixture()

	popup := newFakeTab("popup", "chrome-extension://abc/notification.html")
	popup.setElement("confirm button div", &fakeElement{})

	// popup=nil: the popup opens shortly after and the handler captures it.
	go func() {
		time.Sleep(10 * time.Millisecond)
		session.addTab(popup)
	}()

	if !h.HandleApproval(testRunCtx(), session, mainTab, nil, 100*time.Millisecond) {
		t.Error("expected handler to capture and confirm the popup")
	}
}

func TestSweepConfirmsWalletTabs(t *testing.T) {
	h, session, _ := newPopupFixture()

	walletTab := newFakeTab("w1", "chrome-extension://abc/notification.html")
	var swept bool
	walletTab.evalFn = func(js string, arg ...any) (any, error) {
		if strings.Contains(js, "Approve") {
			swept = true
			return true, nil
		}
		return false, nil
	}
	session.addTab(walletTab)

	otherTab := newFakeTab("w2", "https://news.example.com/")
	var touched bool
	otherTab.evalFn = func(js string, arg ...any) (any, error) {
		touched = true
		return false, nil
	}
	session.addTab(otherTab)

	h.Sweep(testRunCtx(), session, "main")

	if !swept {
		t.Error("expected wallet tab to be swept")
	}
	if touched {
		t.Error("expected unrelated tab to be left alone")
	}
}

func TestSweepSkipsMainTab(t *testing.T) {
	h, session, mainTab := newPopupFixture()

	var touched bool
	mainTab.evalFn = func(js string, arg ...any) (any, error) {
		touched = true
		return true, nil
	}
	mainTab.url = "https://hub.example.com/Wallet" // would match the markers

	h.Sweep(testRunCtx(), session, "main")
	if touched {
		t.Error("expected main tab to be skipped")
	}
}

func TestLooksLikeWalletPopup(t *testing.T) {
	cases := []struct {
		url   string
		title string
		want  bool
	}{
		{"chrome-extension://abc/popup.html", "", true},
		{"https://web3.okx.com/connect", "", true},
		{"https://example.com/", "Notification", true},
		{"https://example.com/", "签名请求", true},
		{"https://example.com/", "News", false},
	}
	for _, tc := range cases {
		tab := newFakeTab("t", tc.url)
		tab.title = tc.title
		if got := looksLikeWalletPopup(tab); got != tc.want {
			t.Errorf("looksLikeWalletPopup(%q, %q) = %v, want %v", tc.url, tc.title, got, tc.want)
		}
	}
}
