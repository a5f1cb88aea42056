package lineage

import "time"

// Default scan window around a quote's document date. Orders confirming a
// quote are almost always raised within a month of it; the window is a
// coarse pre-filter only, confirmation happens via line back-references.
const (
	DefaultWindowBack    = 7 * 24 * time.Hour
	DefaultWindowForward = 30 * 24 * time.Hour
)

// windowDateLayout is the only accepted shape of a window override.
const windowDateLayout = "2006-01-02"

// ScanWindow bounds the candidate search around a quote's document date.
type ScanWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// WindowOverride carries caller-supplied window bounds as raw strings.
// Values that do not match the strict YYYY-MM-DD shape are ignored.
type WindowOverride struct {
	From string
	To   string
}

// ParseWindowDate parses a strict YYYY-MM-DD date. The second return is
// false for any other shape, including valid dates in other layouts.
func ParseWindowDate(s string) (time.Time, bool) {
	if len(s) != len(windowDateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(windowDateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ComputeWindow derives the scan window from the quote date, applying any
// well-formed override bounds.
func ComputeWindow(docDate time.Time, override *WindowOverride, back, forward time.Duration) ScanWindow {
	w := ScanWindow{
		From: docDate.Add(-back),
		To:   docDate.Add(forward),
	}
	if override == nil {
		return w
	}
	if from, ok := ParseWindowDate(override.From); ok {
		w.From = from
	}
	if to, ok := ParseWindowDate(override.To); ok {
		w.To = to
	}
	return w
}

// FilterDate renders a window bound in the remote store's date literal form.
func FilterDate(t time.Time) string {
	return t.Format(windowDateLayout)
}
