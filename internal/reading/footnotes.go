package reading

import "math"

// MarkerPosition is the measured top of an inline footnote marker.
type MarkerPosition struct {
	FootnoteID string  `json:"footnote_id"`
	Top        float64 `json:"top"`
}

// RecomputeFootnotePositions maps each footnote id to the distance between
// its marker and the top of the content container. When a footnote is
// referenced more than once the last marker wins. The result depends only on
// the inputs, so calling it again with the same measurements is a no-op.
// Offsets that do not come out finite are dropped.
func RecomputeFootnotePositions(containerTop float64, markers []MarkerPosition) map[string]float64 {
	offsets := make(map[string]float64, len(markers))
	for _, m := range markers {
		if m.FootnoteID == "" {
			continue
		}
		off := m.Top - containerTop
		if math.IsNaN(off) || math.IsInf(off, 0) {
			continue
		}
		offsets[m.FootnoteID] = off
	}
	return offsets
}
