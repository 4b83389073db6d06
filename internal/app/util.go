package app

import (
	"time"

	"aixbot/internal/browser"
)

// clickWithFallback clicks an element, retrying through in-page script when
// the driver-level click fails.
func clickWithFallback(e browser.Element) error {
	if err := e.Click(); err != nil {
		return e.ClickJS()
	}
	return nil
}

// tryClick finds the first matching locator and clicks it. Returns false when
// nothing matched or the click failed both ways.
func tryClick(tab browser.Tab, timeout time.Duration, locators ...browser.Locator) bool {
	e, found := tab.Find(timeout, locators...)
	if !found {
		return false
	}
	return clickWithFallback(e) == nil
}
