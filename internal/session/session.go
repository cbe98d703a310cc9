// Package session bridges browser reading events to a reading.Tracker over
// HTTP. Each Session tracks one reader on one essay.
package session

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dgallion1/marginalia/internal/content"
	"github.com/dgallion1/marginalia/internal/reading"
	"github.com/google/uuid"
)

// ErrInvalidCause is returned for a layout report with an unknown cause.
var ErrInvalidCause = errors.New("invalid layout cause")

// ErrInvalidReport is returned for a report carrying a non-finite or
// out-of-range measurement.
var ErrInvalidReport = errors.New("invalid report")

// maxCoordinate bounds reported positions and sizes so that sums and
// differences of them stay finite.
const maxCoordinate = 1e9

// Cause says why the layout changed.
type Cause string

const (
	CauseResize   Cause = "resize"
	CauseMutation Cause = "mutation"
)

// ScrollReport is the viewport after a scroll, in document coordinates.
type ScrollReport struct {
	ViewportTop    float64 `json:"viewport_top"`
	ViewportHeight float64 `json:"viewport_height"`
}

// IntersectionReport is one intersection observer entry.
type IntersectionReport struct {
	SectionID string  `json:"section_id"`
	Ratio     float64 `json:"ratio"`
}

// MarkerReport is the measured top of one inline footnote marker.
type MarkerReport struct {
	FootnoteID string  `json:"footnote_id"`
	Top        float64 `json:"top"`
}

// LayoutReport carries fresh measurements after a resize or a content
// mutation. A nil Container means the content block is not mounted.
type LayoutReport struct {
	Cause     Cause                  `json:"cause"`
	Viewport  *ScrollReport          `json:"viewport,omitempty"`
	Container *reading.Box           `json:"container"`
	Sections  map[string]reading.Box `json:"sections,omitempty"`
	Markers   []MarkerReport         `json:"markers,omitempty"`
}

// View is what a reader's page renders from: tracker output plus the margin
// notes owned by the active section.
type View struct {
	ID                string               `json:"session_id"`
	Slug              string               `json:"slug"`
	Version           int64                `json:"version"`
	Progress          float64              `json:"progress"`
	ActiveSection     string               `json:"active_section,omitempty"`
	HasActive         bool                 `json:"has_active"`
	ActiveAnnotations []content.Annotation `json:"active_annotations"`
	FootnoteOffsets   map[string]float64   `json:"footnote_offsets"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// Session owns a tracker and the board it measures. All methods are safe for
// concurrent use; they are serialized so the tracker only ever sees one
// handler at a time.
type Session struct {
	mu sync.Mutex

	id      string
	essay   *content.Essay
	board   *board
	tracker *reading.Tracker
	version int64

	createdAt time.Time
	updatedAt time.Time
	now       func() time.Time
}

func newSession(e *content.Essay, threshold float64, now func() time.Time) (*Session, error) {
	b := newBoard(e.Markers())
	t := reading.New(b, reading.WithThreshold(threshold))
	for _, sec := range e.Sections {
		if err := t.RegisterSection(sec.ID, b.sectionSource(sec.ID)); err != nil {
			return nil, fmt.Errorf("essay %q: %w", e.Slug, err)
		}
	}
	for i, m := range b.markers {
		t.RegisterMarker(m.footnoteID, b.markerSource(i))
	}

	ts := now()
	s := &Session{
		id:        uuid.NewString(),
		essay:     e,
		board:     b,
		tracker:   t,
		createdAt: ts,
		updatedAt: ts,
		now:       now,
	}
	t.Subscribe(func(reading.Snapshot) { s.version++ })
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Slug returns the slug of the tracked essay.
func (s *Session) Slug() string { return s.essay.Slug }

// Scroll records a new viewport, recomputes progress and re-samples section
// visibility against the last reported section boxes.
func (s *Session) Scroll(r ScrollReport) (View, error) {
	if err := r.validate(); err != nil {
		return View{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.board.viewport = reading.Viewport{Top: r.ViewportTop, Height: r.ViewportHeight}
	s.tracker.HandleScroll()
	s.tracker.SampleIntersections()
	return s.touch(), nil
}

// Intersect applies observer entries in the order given.
func (s *Session) Intersect(reports []IntersectionReport) (View, error) {
	for _, r := range reports {
		if math.IsNaN(r.Ratio) || r.Ratio < 0 || r.Ratio > 1 {
			return View{}, fmt.Errorf("%w: ratio %v for section %q", ErrInvalidReport, r.Ratio, r.SectionID)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]reading.IntersectionEntry, len(reports))
	for i, r := range reports {
		entries[i] = reading.IntersectionEntry{SectionID: r.SectionID, Ratio: r.Ratio}
	}
	s.tracker.HandleIntersection(entries...)
	return s.touch(), nil
}

// Layout replaces the board's measurements and runs the resize or mutation
// handler named by the report's cause.
func (s *Session) Layout(r LayoutReport) (View, error) {
	if r.Cause != CauseResize && r.Cause != CauseMutation {
		return View{}, fmt.Errorf("%w: %q", ErrInvalidCause, r.Cause)
	}
	if err := r.validate(); err != nil {
		return View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Viewport != nil {
		s.board.viewport = reading.Viewport{Top: r.Viewport.ViewportTop, Height: r.Viewport.ViewportHeight}
	}
	if r.Container != nil {
		s.board.container = *r.Container
		s.board.mounted = true
	} else {
		s.board.container = reading.Box{}
		s.board.mounted = false
	}
	if r.Sections != nil {
		s.board.sections = r.Sections
	}
	s.board.placeMarkers(r.Markers)

	switch r.Cause {
	case CauseResize:
		s.tracker.HandleResize()
	case CauseMutation:
		s.tracker.HandleMutation()
	}
	s.tracker.SampleIntersections()
	return s.touch(), nil
}

func (r ScrollReport) validate() error {
	if err := checkCoordinate("viewport_top", r.ViewportTop); err != nil {
		return err
	}
	return checkCoordinate("viewport_height", r.ViewportHeight)
}

func (r LayoutReport) validate() error {
	if r.Viewport != nil {
		if err := r.Viewport.validate(); err != nil {
			return err
		}
	}
	if r.Container != nil {
		if err := checkBox("container", *r.Container); err != nil {
			return err
		}
	}
	for id, box := range r.Sections {
		if err := checkBox("section "+id, box); err != nil {
			return err
		}
	}
	for _, m := range r.Markers {
		if err := checkCoordinate("marker "+m.FootnoteID, m.Top); err != nil {
			return err
		}
	}
	return nil
}

func checkBox(name string, b reading.Box) error {
	if err := checkCoordinate(name+" top", b.Top); err != nil {
		return err
	}
	return checkCoordinate(name+" height", b.Height)
}

func checkCoordinate(name string, v float64) error {
	if math.IsNaN(v) || math.Abs(v) > maxCoordinate {
		return fmt.Errorf("%w: %s %v out of range", ErrInvalidReport, name, v)
	}
	return nil
}

// Snapshot returns the current view without changing anything.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

// FootnoteOffset returns the current offset of one footnote.
func (s *Session) FootnoteOffset(id string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.FootnoteOffset(id)
}

func (s *Session) lastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) touch() View {
	s.updatedAt = s.now()
	return s.view()
}

func (s *Session) view() View {
	snap := s.tracker.Snapshot()
	v := View{
		ID:                s.id,
		Slug:              s.essay.Slug,
		Version:           s.version,
		Progress:          snap.Progress,
		ActiveSection:     snap.ActiveSection,
		HasActive:         snap.HasActive,
		ActiveAnnotations: []content.Annotation{},
		FootnoteOffsets:   snap.Offsets,
		UpdatedAt:         s.updatedAt,
	}
	if snap.HasActive {
		v.ActiveAnnotations = append(v.ActiveAnnotations, s.essay.AnnotationsFor(snap.ActiveSection)...)
	}
	return v
}
