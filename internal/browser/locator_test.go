package browser

import "testing"

func TestSelectorForCSS(t *testing.T) {
	got := selectorFor(Locator{Name: "button", Kind: KindCSS, Value: "button[type=submit]"})
	if got != "button[type=submit]" {
		t.Errorf("expected css selector passed through, got %q", got)
	}
}

func TestSelectorForXPath(t *testing.T) {
	got := selectorFor(Locator{Name: "claim", Kind: KindXPath, Value: "//button[contains(normalize-space(),'Claim Reward')]"})
	want := "xpath=//button[contains(normalize-space(),'Claim Reward')]"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSelectorForExactText(t *testing.T) {
	got := selectorFor(Locator{Name: "won", Kind: KindText, Value: "You Won"})
	if got != `text="You Won"` {
		t.Errorf("expected quoted text selector, got %q", got)
	}
}

func TestSelectorForTextContains(t *testing.T) {
	got := selectorFor(Locator{Name: "countdown", Kind: KindTextContains, Value: "chances in"})
	if got != "text=chances in" {
		t.Errorf("expected substring text selector, got %q", got)
	}
}
