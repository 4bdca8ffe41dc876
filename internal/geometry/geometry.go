package geometry

import "fmt"

// DefaultCellSize is the edge length, in pixels, of one grid cell.
const DefaultCellSize = 130

// ScreenPoint is an absolute position in screen pixels. Persisted anchors use it.
type ScreenPoint struct {
	X int
	Y int
}

// Add returns p translated by d.
func (p ScreenPoint) Add(d ScreenPoint) ScreenPoint {
	return ScreenPoint{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns the vector from q to p.
func (p ScreenPoint) Sub(q ScreenPoint) ScreenPoint {
	return ScreenPoint{X: p.X - q.X, Y: p.Y - q.Y}
}

func (p ScreenPoint) String() string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

// GridCell is a (column, row) position on one surface's grid.
type GridCell struct {
	Col int
	Row int
}

func (c GridCell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Col, c.Row)
}

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Intersects reports whether r and o overlap. Shared edges do not count; a
// zero-size rect strictly inside o does.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.Width && r.X+r.Width > o.X &&
		r.Y < o.Y+o.Height && r.Y+r.Height > o.Y
}

// RectFromPoints returns the normalized rectangle spanned by two corners.
func RectFromPoints(a, b ScreenPoint) Rect {
	x1, x2 := a.X, b.X
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	y1, y2 := a.Y, b.Y
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Surface is the usable area of one monitor, excluding panels and docks.
type Surface struct {
	Index  int
	Name   string
	X      int
	Y      int
	Width  int
	Height int
}

// Rect returns the surface's usable rectangle.
func (s Surface) Rect() Rect {
	return Rect{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height}
}

// Origin returns the top-left screen point of the surface.
func (s Surface) Origin() ScreenPoint {
	return ScreenPoint{X: s.X, Y: s.Y}
}

// Contains reports whether p lies inside the surface's usable rectangle.
func (s Surface) Contains(p ScreenPoint) bool {
	return p.X >= s.X && p.X < s.X+s.Width && p.Y >= s.Y && p.Y < s.Y+s.Height
}

// Columns returns ceil(width / cellSize).
func Columns(s Surface, cellSize int) int {
	return ceilDiv(s.Width, cellSize)
}

// Rows returns ceil(height / cellSize).
func Rows(s Surface, cellSize int) int {
	return ceilDiv(s.Height, cellSize)
}

// CellOfPoint maps a screen point onto the surface grid. Points outside the
// surface clamp to the nearest edge cell.
func CellOfPoint(s Surface, cellSize int, p ScreenPoint) GridCell {
	if cellSize <= 0 || s.Width <= 0 || s.Height <= 0 {
		return GridCell{}
	}
	x := clamp(p.X-s.X, 0, s.Width-1)
	y := clamp(p.Y-s.Y, 0, s.Height-1)
	return GridCell{Col: x / cellSize, Row: y / cellSize}
}

// PointOfCell returns the top-left screen coordinate of a cell.
func PointOfCell(s Surface, cellSize int, c GridCell) ScreenPoint {
	return ScreenPoint{X: s.X + c.Col*cellSize, Y: s.Y + c.Row*cellSize}
}

// CellRect returns the screen rectangle covered by a cell.
func CellRect(s Surface, cellSize int, c GridCell) Rect {
	p := PointOfCell(s, cellSize, c)
	return Rect{X: p.X, Y: p.Y, Width: cellSize, Height: cellSize}
}

// SurfaceFor returns the index (into surfaces) of the surface that contains p,
// or primary when none does.
func SurfaceFor(surfaces []Surface, p ScreenPoint, primary int) int {
	for i, s := range surfaces {
		if s.Contains(p) {
			return i
		}
	}
	return primary
}

func ceilDiv(n, d int) int {
	if d <= 0 || n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
