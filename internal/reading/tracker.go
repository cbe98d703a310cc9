package reading

import (
	"errors"
	"fmt"
	"maps"
)

// ErrDuplicateSection is returned when a section id is registered twice.
var ErrDuplicateSection = errors.New("section already registered")

// Layout measures the page hosting the tracked document.
type Layout interface {
	// Viewport returns the current visible window.
	Viewport() Viewport
	// Container returns the content block, or false while it is not mounted.
	Container() (Box, bool)
}

// IntersectionSource reports the share of a section visible in the viewport.
// It returns false when the section cannot be measured yet.
type IntersectionSource interface {
	IntersectionRatio() (float64, bool)
}

// PositionSource reports the top of an inline marker, in the same coordinate
// space as the container. It returns false when the marker is not laid out.
type PositionSource interface {
	MarkerTop() (float64, bool)
}

// IntersectionFunc adapts a function to IntersectionSource.
type IntersectionFunc func() (float64, bool)

func (f IntersectionFunc) IntersectionRatio() (float64, bool) { return f() }

// PositionFunc adapts a function to PositionSource.
type PositionFunc func() (float64, bool)

func (f PositionFunc) MarkerTop() (float64, bool) { return f() }

// IntersectionEntry is one notification from an intersection observer.
type IntersectionEntry struct {
	SectionID string  `json:"section_id"`
	Ratio     float64 `json:"ratio"`
}

// Snapshot is a copy of the tracker's derived values.
type Snapshot struct {
	Progress      float64            `json:"progress"`
	ActiveSection string             `json:"active_section,omitempty"`
	HasActive     bool               `json:"has_active"`
	Offsets       map[string]float64 `json:"footnote_offsets"`
}

type sectionEntry struct {
	id       string
	src      IntersectionSource
	visible  bool
	reported bool
}

type markerEntry struct {
	footnoteID string
	src        PositionSource
}

// Tracker keeps reading progress, the active section and footnote offsets in
// step with a host-reported layout.
//
// A Tracker is owned by a single host and is not safe for concurrent use.
// Every Handle method runs to completion synchronously; the host calls them
// from its scroll, resize, mutation and intersection callbacks.
type Tracker struct {
	layout    Layout
	threshold float64

	sections     []*sectionEntry
	sectionIndex map[string]*sectionEntry
	markers      []markerEntry

	progress float64
	active   ActiveSection
	offsets  map[string]float64

	listeners []func(Snapshot)
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithThreshold overrides the visibility threshold. Values outside (0,1] are
// ignored.
func WithThreshold(threshold float64) Option {
	return func(t *Tracker) {
		if threshold > 0 && threshold <= 1 {
			t.threshold = threshold
		}
	}
}

// New creates a tracker measuring the given layout.
func New(layout Layout, opts ...Option) *Tracker {
	t := &Tracker{
		layout:       layout,
		threshold:    DefaultVisibilityThreshold,
		sectionIndex: make(map[string]*sectionEntry),
		offsets:      map[string]float64{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Threshold returns the visibility threshold in use.
func (t *Tracker) Threshold() float64 {
	return t.threshold
}

// RegisterSection adds a section in document order.
func (t *Tracker) RegisterSection(id string, src IntersectionSource) error {
	if id == "" {
		return fmt.Errorf("register section: empty id")
	}
	if _, ok := t.sectionIndex[id]; ok {
		return fmt.Errorf("register section %q: %w", id, ErrDuplicateSection)
	}
	e := &sectionEntry{id: id, src: src}
	t.sections = append(t.sections, e)
	t.sectionIndex[id] = e
	return nil
}

// RegisterMarker adds an inline marker anchoring the given footnote.
func (t *Tracker) RegisterMarker(footnoteID string, src PositionSource) {
	t.markers = append(t.markers, markerEntry{footnoteID: footnoteID, src: src})
}

// Subscribe registers fn to be called after any handler that changed a
// derived value.
func (t *Tracker) Subscribe(fn func(Snapshot)) {
	t.listeners = append(t.listeners, fn)
}

// HandleScroll recomputes reading progress.
func (t *Tracker) HandleScroll() {
	if t.updateProgress() {
		t.notify()
	}
}

// HandleResize recomputes progress and footnote offsets.
func (t *Tracker) HandleResize() {
	changed := t.updateProgress()
	if t.updateOffsets() {
		changed = true
	}
	if changed {
		t.notify()
	}
}

// HandleMutation recomputes footnote offsets after the content changed.
func (t *Tracker) HandleMutation() {
	if t.updateOffsets() {
		t.notify()
	}
}

// HandleIntersection applies observer notifications in arrival order.
// Entries for unregistered sections are ignored.
func (t *Tracker) HandleIntersection(entries ...IntersectionEntry) {
	changed := false
	for _, en := range entries {
		s, ok := t.sectionIndex[en.SectionID]
		if !ok {
			continue
		}
		if t.apply(s, en.Ratio) {
			changed = true
		}
	}
	if changed {
		t.notify()
	}
}

// SampleIntersections polls every registered section's source and applies
// the ones whose visibility changed, in document order. The first sample of
// a section always counts as a change, the way an observer reports every
// target once when it starts observing.
func (t *Tracker) SampleIntersections() {
	if _, ok := t.layout.Container(); !ok {
		return
	}
	changed := false
	for _, s := range t.sections {
		if s.src == nil {
			continue
		}
		ratio, ok := s.src.IntersectionRatio()
		if !ok {
			continue
		}
		visible := ratio >= t.threshold
		if s.reported && visible == s.visible {
			continue
		}
		if t.apply(s, ratio) {
			changed = true
		}
	}
	if changed {
		t.notify()
	}
}

func (t *Tracker) apply(s *sectionEntry, ratio float64) bool {
	s.visible = ratio >= t.threshold
	s.reported = true
	return t.active.Observe(VisibilityEvent{SectionID: s.id, Visible: s.visible})
}

// Progress returns reading progress in [0,1]; 0 while the container is not
// mounted.
func (t *Tracker) Progress() float64 {
	if _, ok := t.layout.Container(); !ok {
		return 0
	}
	return t.progress
}

// ActiveSection returns the active section id, or false if there is none or
// the container is not mounted.
func (t *Tracker) ActiveSection() (string, bool) {
	if _, ok := t.layout.Container(); !ok {
		return "", false
	}
	return t.active.Current()
}

// FootnoteOffset returns the offset for a footnote, or false if the id is
// unknown.
func (t *Tracker) FootnoteOffset(id string) (float64, bool) {
	if _, ok := t.layout.Container(); !ok {
		return 0, false
	}
	v, ok := t.offsets[id]
	return v, ok
}

// Snapshot returns a copy of all derived values.
func (t *Tracker) Snapshot() Snapshot {
	if _, ok := t.layout.Container(); !ok {
		return Snapshot{Offsets: map[string]float64{}}
	}
	id, has := t.active.Current()
	return Snapshot{
		Progress:      t.progress,
		ActiveSection: id,
		HasActive:     has,
		Offsets:       maps.Clone(t.offsets),
	}
}

func (t *Tracker) updateProgress() bool {
	next := 0.0
	if box, ok := t.layout.Container(); ok {
		vp := t.layout.Viewport()
		next = ComputeProgress(vp.Top, vp.Height, box.Top, box.Height)
	}
	if next == t.progress {
		return false
	}
	t.progress = next
	return true
}

func (t *Tracker) updateOffsets() bool {
	next := map[string]float64{}
	if box, ok := t.layout.Container(); ok {
		positions := make([]MarkerPosition, 0, len(t.markers))
		for _, m := range t.markers {
			if m.src == nil {
				continue
			}
			top, ok := m.src.MarkerTop()
			if !ok {
				continue
			}
			positions = append(positions, MarkerPosition{FootnoteID: m.footnoteID, Top: top})
		}
		next = RecomputeFootnotePositions(box.Top, positions)
	}
	if maps.Equal(next, t.offsets) {
		return false
	}
	t.offsets = next
	return true
}

func (t *Tracker) notify() {
	if len(t.listeners) == 0 {
		return
	}
	snap := t.Snapshot()
	for _, fn := range t.listeners {
		fn(snap)
	}
}
