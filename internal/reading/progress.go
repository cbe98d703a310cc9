package reading

import "math"

// Viewport is the visible window, in document coordinates.
type Viewport struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Box is the vertical extent of a laid-out element, in document coordinates.
type Box struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Bottom returns the lower edge of the box.
func (b Box) Bottom() float64 {
	return b.Top + b.Height
}

// ComputeProgress returns how far the bottom of the viewport has travelled
// through the content block, clamped to [0,1]. A content block with no height
// reports 0.
func ComputeProgress(viewportTop, viewportHeight, contentTop, contentHeight float64) float64 {
	if contentHeight <= 0 {
		return 0
	}
	return clamp01((viewportTop + viewportHeight - contentTop) / contentHeight)
}

// IntersectionRatio returns the fraction of the box's height that lies inside
// the viewport. Zero-height boxes report 0.
func IntersectionRatio(vp Viewport, box Box) float64 {
	if box.Height <= 0 {
		return 0
	}
	top := max(vp.Top, box.Top)
	bottom := min(vp.Top+vp.Height, box.Bottom())
	if bottom <= top {
		return 0
	}
	return clamp01((bottom - top) / box.Height)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
