package transitions

import "github.com/go-drift/mountref/pkg/geometry"

// BoundsCallback is implemented by content that wants to observe bounds
// applied by a running animation.
type BoundsCallback interface {
	OnWidthHeightBoundsApplied(width, height float64)
	OnXYBoundsApplied(x, y float64)
}

// ApplySize resizes bounds from its top-left corner and notifies content if
// it implements BoundsCallback.
func ApplySize(bounds geometry.Rect, width, height float64, content any) geometry.Rect {
	next := geometry.RectFromLTWH(bounds.Left, bounds.Top, width, height)
	if cb, ok := content.(BoundsCallback); ok {
		cb.OnWidthHeightBoundsApplied(width, height)
	}
	return next
}

// ApplyXY moves bounds to (x, y) keeping its size and notifies content if it
// implements BoundsCallback.
func ApplyXY(bounds geometry.Rect, x, y float64, content any) geometry.Rect {
	next := geometry.RectFromLTWH(x, y, bounds.Width(), bounds.Height())
	if cb, ok := content.(BoundsCallback); ok {
		cb.OnXYBoundsApplied(x, y)
	}
	return next
}
