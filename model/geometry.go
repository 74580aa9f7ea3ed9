package model

import (
	"fmt"
	"math"

	tmodel "github.com/tsawler/tabula/model"
)

// Rect is an axis-aligned rectangle in page space given by its two corners.
// X0/Y0 is the minimum corner, X1/Y1 the maximum corner.
type Rect struct {
	X0, Y0 float64
	X1, Y1 float64
}

// NewRect creates a rectangle from corner coordinates
func NewRect(x0, y0, x1, y1 float64) Rect {
	return Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// RectFromBBox converts a tabula bounding box (origin plus extent) to a Rect
func RectFromBBox(b tmodel.BBox) Rect {
	return Rect{X0: b.X, Y0: b.Y, X1: b.X + b.Width, Y1: b.Y + b.Height}
}

// BBox converts the rectangle back to the tabula representation
func (r Rect) BBox() tmodel.BBox {
	return tmodel.NewBBox(r.X0, r.Y0, r.X1-r.X0, r.Y1-r.Y0)
}

// Width returns the horizontal extent
func (r Rect) Width() float64 {
	return r.X1 - r.X0
}

// Height returns the vertical extent
func (r Rect) Height() float64 {
	return r.Y1 - r.Y0
}

// Area returns the area, zero for degenerate rectangles
func (r Rect) Area() float64 {
	return math.Max(0, r.Width()) * math.Max(0, r.Height())
}

// Intersects reports whether r and other overlap. Rectangles that only share
// an edge or a corner are considered overlapping. The result is false only
// when one rectangle lies strictly to one side of the other.
func (r Rect) Intersects(other Rect) bool {
	return !(r.X1 < other.X0 ||
		r.X0 > other.X1 ||
		r.Y1 < other.Y0 ||
		r.Y0 > other.Y1)
}

// IntersectsAny reports whether r overlaps at least one of others
func (r Rect) IntersectsAny(others []Rect) bool {
	for _, o := range others {
		if r.Intersects(o) {
			return true
		}
	}
	return false
}

// Union returns the smallest rectangle containing both r and other
func (r Rect) Union(other Rect) Rect {
	return Rect{
		X0: math.Min(r.X0, other.X0),
		Y0: math.Min(r.Y0, other.Y0),
		X1: math.Max(r.X1, other.X1),
		Y1: math.Max(r.Y1, other.Y1),
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f, %.2f)", r.X0, r.Y0, r.X1, r.Y1)
}
