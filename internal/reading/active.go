package reading

// DefaultVisibilityThreshold is the share of a section's box that must be in
// the viewport before the section counts as visible.
const DefaultVisibilityThreshold = 0.3

// VisibilityEvent reports that a section crossed the visibility threshold.
type VisibilityEvent struct {
	SectionID string `json:"section_id"`
	Visible   bool   `json:"visible"`
}

// ActiveSection folds visibility events into the current active section.
//
// The last event with Visible=true wins, in arrival order. Events with
// Visible=false are ignored: a section scrolling out never clears or moves the
// active section, and once set it never returns to undefined. Under fast
// scrolling this can flicker between neighbours; that matches how
// intersection-based highlighting behaves and is kept as is.
type ActiveSection struct {
	id  string
	set bool
}

// Observe applies one event and reports whether the active section changed.
func (a *ActiveSection) Observe(ev VisibilityEvent) bool {
	if !ev.Visible || ev.SectionID == "" {
		return false
	}
	if a.set && a.id == ev.SectionID {
		return false
	}
	a.id = ev.SectionID
	a.set = true
	return true
}

// Current returns the active section id, or false if none has been seen.
func (a *ActiveSection) Current() (string, bool) {
	return a.id, a.set
}

// DetermineActiveSection replays events in order and returns the resulting
// active section.
func DetermineActiveSection(events []VisibilityEvent) (string, bool) {
	var a ActiveSection
	for _, ev := range events {
		a.Observe(ev)
	}
	return a.Current()
}
