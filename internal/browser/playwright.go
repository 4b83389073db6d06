package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

const (
	findPollInterval = 100 * time.Millisecond
	actionTimeoutMs  = 5000.0
	readTimeoutMs    = 2000.0
)

var (
	// Playwright driver process (singleton, shared across sessions).
	pwOnce     sync.Once
	pwInstance *playwright.Playwright
	pwErr      error
)

func getPlaywright() (*playwright.Playwright, error) {
	pwOnce.Do(func() {
		// Only the driver is needed; the browser is remote.
		if err := playwright.Install(&playwright.RunOptions{SkipInstallBrowsers: true}); err != nil {
			pwErr = fmt.Errorf("failed to install playwright driver: %w", err)
			return
		}

		pw, err := playwright.Run()
		if err != nil {
			pwErr = fmt.Errorf("failed to start playwright: %w", err)
			return
		}
		pwInstance = pw
	})

	return pwInstance, pwErr
}

type session struct {
	logger  *zap.Logger
	browser playwright.Browser

	mu    sync.Mutex
	tabs  map[playwright.Page]*tab
	order []*tab
}

// Connect attaches to a running browser over CDP at addr ("host:port" or a
// full URL) and indexes its open tabs.
func Connect(logger *zap.Logger, addr string) (Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pw, err := getPlaywright()
	if err != nil {
		return nil, err
	}

	endpoint := addr
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "ws://") {
		endpoint = "http://" + endpoint
	}

	browser, err := pw.Chromium.ConnectOverCDP(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to browser at %s: %w", endpoint, err)
	}

	s := &session{
		logger:  logger,
		browser: browser,
		tabs:    make(map[playwright.Page]*tab),
	}
	s.refresh()

	return s, nil
}

// refresh reconciles the tab index with the browser's current pages. Known
// pages keep their ids; closed pages are dropped; new pages are appended in
// discovery order. Caller must hold s.mu or be the constructor.
func (s *session) refresh() {
	seen := make(map[playwright.Page]bool)
	for _, bctx := range s.browser.Contexts() {
		for _, page := range bctx.Pages() {
			if page.IsClosed() {
				continue
			}
			seen[page] = true
			if _, ok := s.tabs[page]; !ok {
				t := &tab{
					// Playwright pages carry no usable target id over CDP,
					// so tabs get synthetic ids stable for their lifetime.
					id:   "tab-" + uuid.New().String()[:8],
					page: page,
				}
				s.tabs[page] = t
				s.order = append(s.order, t)
			}
		}
	}

	for page := range s.tabs {
		if !seen[page] {
			delete(s.tabs, page)
		}
	}

	alive := s.order[:0]
	for _, t := range s.order {
		if seen[t.page] {
			alive = append(alive, t)
		}
	}
	s.order = alive
}

func (s *session) Tabs() []Tab {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refresh()
	out := make([]Tab, len(s.order))
	for i, t := range s.order {
		out[i] = t
	}
	return out
}

func (s *session) TabIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refresh()
	ids := make([]string, len(s.order))
	for i, t := range s.order {
		ids[i] = t.id
	}
	return ids
}

func (s *session) TabByID(id string) (Tab, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refresh()
	for _, t := range s.order {
		if t.id == id {
			return t, true
		}
	}
	return nil, false
}

func (s *session) LatestTab() (Tab, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refresh()
	if len(s.order) == 0 {
		return nil, false
	}
	return s.order[len(s.order)-1], true
}

func (s *session) NewTab(url string) (Tab, error) {
	contexts := s.browser.Contexts()
	if len(contexts) == 0 {
		return nil, fmt.Errorf("browser has no contexts")
	}

	page, err := contexts[0].NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	s.mu.Lock()
	s.refresh()
	t := s.tabs[page]
	s.mu.Unlock()

	if t == nil {
		// refresh races page close; treat as failure
		return nil, fmt.Errorf("new tab closed before it could be indexed")
	}

	if url != "" {
		if err := t.Navigate(url); err != nil {
			return t, err
		}
	}
	return t, nil
}

func (s *session) WaitForNewTab(ctx context.Context, baseline []string, timeout time.Duration) (Tab, bool) {
	known := make(map[string]bool, len(baseline))
	for _, id := range baseline {
		known[id] = true
	}

	deadline := time.Now().Add(timeout)
	for {
		s.mu.Lock()
		s.refresh()
		var found *tab
		for _, t := range s.order {
			if !known[t.id] {
				found = t
				break
			}
		}
		s.mu.Unlock()

		if found != nil {
			return found, true
		}
		if time.Now().After(deadline) {
			return nil, false
		}

		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(findPollInterval):
		}
	}
}

func (s *session) Close() error {
	// Disconnect only. Stopping the remote browser is the profile
	// orchestrator's job.
	return s.browser.Close()
}

type tab struct {
	id   string
	page playwright.Page
}

func (t *tab) ID() string { return t.id }

func (t *tab) URL() string { return t.page.URL() }

func (t *tab) Title() string {
	title, err := t.page.Title()
	if err != nil {
		return ""
	}
	return title
}

func (t *tab) Closed() bool { return t.page.IsClosed() }

func (t *tab) Navigate(url string) error {
	_, err := t.page.Goto(url)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (t *tab) Reload() error {
	_, err := t.page.Reload()
	if err != nil {
		return fmt.Errorf("failed to reload: %w", err)
	}
	return nil
}

func (t *tab) Activate() error {
	return t.page.BringToFront()
}

func (t *tab) BodyText() (string, error) {
	text, err := t.page.Locator("body").InnerText(playwright.LocatorInnerTextOptions{
		Timeout: playwright.Float(readTimeoutMs),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read page body: %w", err)
	}
	return text, nil
}

func (t *tab) Eval(js string, arg ...any) (any, error) {
	if len(arg) > 0 {
		return t.page.Evaluate(js, arg[0])
	}
	return t.page.Evaluate(js)
}

func (t *tab) Find(timeout time.Duration, locators ...Locator) (Element, bool) {
	deadline := time.Now().Add(timeout)
	for {
		for _, loc := range locators {
			l := t.page.Locator(selectorFor(loc)).First()
			count, err := t.page.Locator(selectorFor(loc)).Count()
			if err == nil && count > 0 {
				return &element{loc: l}, true
			}
		}
		if !time.Now().Before(deadline) {
			return nil, false
		}
		time.Sleep(findPollInterval)
	}
}

func (t *tab) FindAll(locator Locator) []Element {
	base := t.page.Locator(selectorFor(locator))
	count, err := base.Count()
	if err != nil || count == 0 {
		return nil
	}

	out := make([]Element, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, &element{loc: base.Nth(i)})
	}
	return out
}

func (t *tab) Exists(timeout time.Duration, locators ...Locator) bool {
	_, ok := t.Find(timeout, locators...)
	return ok
}

type element struct {
	loc playwright.Locator
}

func (e *element) Text() (string, error) {
	return e.loc.InnerText(playwright.LocatorInnerTextOptions{
		Timeout: playwright.Float(readTimeoutMs),
	})
}

func (e *element) Click() error {
	_ = e.loc.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{
		Timeout: playwright.Float(readTimeoutMs),
	})
	return e.loc.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(actionTimeoutMs),
	})
}

func (e *element) ClickJS() error {
	_, err := e.loc.Evaluate("el => el.click()", nil)
	return err
}

func (e *element) Fill(text string) error {
	return e.loc.Fill(text, playwright.LocatorFillOptions{
		Timeout: playwright.Float(actionTimeoutMs),
	})
}

func (e *element) SetValueJS(value string) error {
	_, err := e.loc.Evaluate(`(el, value) => {
		el.value = value;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
	}`, value)
	return err
}
