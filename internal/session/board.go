package session

import "github.com/dgallion1/marginalia/internal/reading"

// board holds the latest layout the browser reported for one page. It
// implements reading.Layout and feeds the tracker's section and marker
// sources.
type board struct {
	viewport  reading.Viewport
	container reading.Box
	mounted   bool
	sections  map[string]reading.Box
	markers   []markerSlot
}

type markerSlot struct {
	footnoteID string
	top        float64
	placed     bool
}

func newBoard(markerIDs []string) *board {
	b := &board{sections: make(map[string]reading.Box)}
	for _, id := range markerIDs {
		b.markers = append(b.markers, markerSlot{footnoteID: id})
	}
	return b
}

func (b *board) Viewport() reading.Viewport { return b.viewport }

func (b *board) Container() (reading.Box, bool) { return b.container, b.mounted }

func (b *board) sectionSource(id string) reading.IntersectionSource {
	return reading.IntersectionFunc(func() (float64, bool) {
		box, ok := b.sections[id]
		if !ok || !b.mounted {
			return 0, false
		}
		return reading.IntersectionRatio(b.viewport, box), true
	})
}

func (b *board) markerSource(i int) reading.PositionSource {
	return reading.PositionFunc(func() (float64, bool) {
		m := b.markers[i]
		return m.top, m.placed
	})
}

// placeMarkers assigns reported positions to marker slots. The n-th report
// for a footnote id lands on the n-th marker referencing it; reports for ids
// the essay never references are dropped.
func (b *board) placeMarkers(reports []MarkerReport) {
	for i := range b.markers {
		b.markers[i].placed = false
	}
	seen := make(map[string]int)
	for _, r := range reports {
		n := seen[r.FootnoteID]
		seen[r.FootnoteID] = n + 1
		for i := range b.markers {
			m := &b.markers[i]
			if m.footnoteID != r.FootnoteID {
				continue
			}
			if n > 0 {
				n--
				continue
			}
			m.top = r.Top
			m.placed = true
			break
		}
	}
}
