package browser

import (
	"context"
	"time"
)

// Kind selects the element-finding strategy for a Locator.
type Kind string

const (
	KindCSS          Kind = "css"
	KindXPath        Kind = "xpath"
	KindText         Kind = "text"          // exact visible text
	KindTextContains Kind = "text_contains" // substring of visible text
)

// Locator is one element-finding strategy. The automation code works with
// ordered lists of locators tried in sequence, so new fallback strategies can
// be appended without touching control flow.
type Locator struct {
	// Name identifies the strategy in logs.
	Name string
	Kind Kind
	Value string
}

// Element is a handle to a DOM element found on a tab.
type Element interface {
	// Text returns the element's visible text.
	Text() (string, error)

	// Click scrolls the element into view and clicks it.
	Click() error

	// ClickJS dispatches a click through in-page script. Used as a fallback
	// when the driver-level click silently no-ops.
	ClickJS() error

	// Fill types text into the element.
	Fill(text string) error

	// SetValueJS sets the element's value through script and dispatches
	// input/change events, for framework-managed inputs that ignore
	// driver-level typing.
	SetValueJS(value string) error
}

// Tab is one open browser tab.
type Tab interface {
	// ID is a stable identifier for the tab's lifetime.
	ID() string

	URL() string
	Title() string
	Closed() bool

	Navigate(url string) error
	Reload() error

	// Activate brings the tab to the foreground.
	Activate() error

	// BodyText returns the visible text of the page body.
	BodyText() (string, error)

	// Eval runs script in the page and returns its result. An optional single
	// argument is passed through to the script.
	Eval(js string, arg ...any) (any, error)

	// Find tries each locator in order, polling until one matches or the
	// timeout elapses. A zero timeout does a single pass.
	Find(timeout time.Duration, locators ...Locator) (Element, bool)

	// FindAll returns every element currently matching the locator.
	FindAll(locator Locator) []Element

	// Exists reports whether any of the locators currently matches.
	Exists(timeout time.Duration, locators ...Locator) bool
}

// Session is a live connection to one remote browser instance.
type Session interface {
	// Tabs lists the currently open tabs.
	Tabs() []Tab

	// TabIDs lists the ids of the currently open tabs.
	TabIDs() []string

	TabByID(id string) (Tab, bool)

	// LatestTab returns the most recently opened tab still alive.
	LatestTab() (Tab, bool)

	// NewTab opens a new tab and navigates it to url.
	NewTab(url string) (Tab, error)

	// WaitForNewTab polls for a tab whose id is not in baseline, returning it
	// as soon as one appears or (nil, false) on timeout/cancellation.
	WaitForNewTab(ctx context.Context, baseline []string, timeout time.Duration) (Tab, bool)

	// Close disconnects from the browser. It does not stop the remote
	// instance; that is the profile orchestrator's job.
	Close() error
}
