package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aixbot/internal/browser"
)

// Shared fakes for the browser capability interfaces.

func testRunCtx() *runCtx {
	r := newRunCtx(context.Background(), nil, "test-account")
	r.sleepFn = func(time.Duration) bool { return true }
	return r
}

type fakeElement struct {
	text      string
	clickErr  error
	clicks    int
	jsClicks  int
	fills     []string
	setValues []string

	// onClick fires on every Click/ClickJS, letting tests mutate page state
	// in response.
	onClick func()
}

func (e *fakeElement) Text() (string, error) { return e.text, nil }

func (e *fakeElement) Click() error {
	e.clicks++
	if e.onClick != nil {
		e.onClick()
	}
	return e.clickErr
}

func (e *fakeElement) ClickJS() error {
	e.jsClicks++
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

func (e *fakeElement) Fill(text string) error {
	e.fills = append(e.fills, text)
	return nil
}

func (e *fakeElement) SetValueJS(value string) error {
	e.setValues = append(e.setValues, value)
	return nil
}

type fakeTab struct {
	mu sync.Mutex

	id     string
	url    string
	title  string
	closed bool

	body    string
	bodyErr error

	// navigateOverride pins the URL Navigate lands on, simulating redirects
	// and blocked pages.
	navigateOverride string

	// elements maps locator Name to the element Find returns for it.
	elements map[string]*fakeElement
	// all maps locator Name to the elements FindAll returns.
	all map[string][]browser.Element

	evalFn   func(js string, arg ...any) (any, error)
	onReload func()

	navigations []string
	reloads     int
	activations int
}

func newFakeTab(id, url string) *fakeTab {
	return &fakeTab{
		id:       id,
		url:      url,
		elements: make(map[string]*fakeElement),
		all:      make(map[string][]browser.Element),
	}
}

func (t *fakeTab) setURL(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.url = url
}

func (t *fakeTab) setElement(name string, e *fakeElement) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e == nil {
		delete(t.elements, name)
		return
	}
	t.elements[name] = e
}

func (t *fakeTab) setAll(name string, els ...browser.Element) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(els) == 0 {
		delete(t.all, name)
		return
	}
	t.all[name] = els
}

func (t *fakeTab) ID() string { return t.id }

func (t *fakeTab) URL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url
}

func (t *fakeTab) Title() string { return t.title }

func (t *fakeTab) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *fakeTab) Navigate(url string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.navigations = append(t.navigations, url)
	if t.navigateOverride != "" {
		t.url = t.navigateOverride
	} else {
		t.url = url
	}
	return nil
}

func (t *fakeTab) Reload() error {
	t.mu.Lock()
	t.reloads++
	fn := t.onReload
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (t *fakeTab) Activate() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activations++
	return nil
}

func (t *fakeTab) BodyText() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.body, t.bodyErr
}

func (t *fakeTab) Eval(js string, arg ...any) (any, error) {
	if t.evalFn != nil {
		return t.evalFn(js, arg...)
	}
	return nil, nil
}

func (t *fakeTab) Find(timeout time.Duration, locators ...browser.Locator) (browser.Element, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, loc := range locators {
		if e, ok := t.elements[loc.Name]; ok && e != nil {
			return e, true
		}
	}
	return nil, false
}

func (t *fakeTab) FindAll(locator browser.Locator) []browser.Element {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.all[locator.Name]
}

func (t *fakeTab) Exists(timeout time.Duration, locators ...browser.Locator) bool {
	_, ok := t.Find(timeout, locators...)
	return ok
}

type fakeSession struct {
	mu   sync.Mutex
	tabs []*fakeTab

	// newTabFn overrides NewTab; the default appends a blank tab.
	newTabFn func(url string) (browser.Tab, error)

	nextID int
	closed bool
}

func newFakeSession(tabs ...*fakeTab) *fakeSession {
	return &fakeSession{tabs: tabs, nextID: 100}
}

func (s *fakeSession) addTab(t *fakeTab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs = append(s.tabs, t)
}

func (s *fakeSession) alive() []*fakeTab {
	var out []*fakeTab
	for _, t := range s.tabs {
		if !t.Closed() {
			out = append(out, t)
		}
	}
	return out
}

func (s *fakeSession) Tabs() []browser.Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []browser.Tab
	for _, t := range s.alive() {
		out = append(out, t)
	}
	return out
}

func (s *fakeSession) TabIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, t := range s.alive() {
		out = append(out, t.id)
	}
	return out
}

func (s *fakeSession) TabByID(id string) (browser.Tab, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.alive() {
		if t.id == id {
			return t, true
		}
	}
	return nil, false
}

func (s *fakeSession) LatestTab() (browser.Tab, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	live := s.alive()
	if len(live) == 0 {
		return nil, false
	}
	return live[len(live)-1], true
}

func (s *fakeSession) NewTab(url string) (browser.Tab, error) {
	if s.newTabFn != nil {
		return s.newTabFn(url)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t := newFakeTab(fmt.Sprintf("tab-%d", s.nextID), url)
	s.tabs = append(s.tabs, t)
	return t, nil
}

func (s *fakeSession) WaitForNewTab(ctx context.Context, baseline []string, timeout time.Duration) (browser.Tab, bool) {
	known := make(map[string]bool, len(baseline))
	for _, id := range baseline {
		known[id] = true
	}
	deadline := time.Now().Add(timeout)
	for {
		s.mu.Lock()
		var found browser.Tab
		for _, t := range s.alive() {
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
		case <-time.After(time.Millisecond):
		}
	}
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
