package browser

import "fmt"

// selectorFor translates a Locator into a playwright selector string.
// Text kinds quote the value so playwright matches exact text; the contains
// variant uses the unquoted substring form.
func selectorFor(loc Locator) string {
	switch loc.Kind {
	case KindXPath:
		return "xpath=" + loc.Value
	case KindText:
		return fmt.Sprintf("text=%q", loc.Value)
	case KindTextContains:
		return "text=" + loc.Value
	default:
		return loc.Value
	}
}
