package selection

import (
	"github.com/1broseidon/deskgrid/internal/geometry"
	"github.com/1broseidon/deskgrid/internal/layout"
)

// DefaultDragThreshold is how far, in pixels, the pointer must travel from the
// press point before a drag starts.
const DefaultDragThreshold = 8

// Gesture follows one primary-button press and decides when it becomes a drag.
type Gesture struct {
	threshold int
	press     geometry.ScreenPoint
	pressed   bool
	dragging  bool
}

// NewGesture creates a gesture tracker. threshold <= 0 uses the default.
func NewGesture(threshold int) *Gesture {
	if threshold <= 0 {
		threshold = DefaultDragThreshold
	}
	return &Gesture{threshold: threshold}
}

// Press records the button-down point.
func (g *Gesture) Press(p geometry.ScreenPoint) {
	g.press = p
	g.pressed = true
	g.dragging = false
}

// Motion reports true exactly once: on the first movement that takes the
// pointer strictly beyond the threshold from the press point.
func (g *Gesture) Motion(p geometry.ScreenPoint) bool {
	if !g.pressed || g.dragging {
		return false
	}
	d := p.Sub(g.press)
	if d.X*d.X+d.Y*d.Y <= g.threshold*g.threshold {
		return false
	}
	g.dragging = true
	return true
}

// Release ends the gesture and reports whether it had become a drag.
func (g *Gesture) Release() bool {
	dragged := g.dragging
	g.pressed = false
	g.dragging = false
	return dragged
}

// Origin returns the press point.
func (g *Gesture) Origin() geometry.ScreenPoint {
	return g.press
}

// Dragging reports whether the threshold has been crossed.
func (g *Gesture) Dragging() bool {
	return g.dragging
}

// RubberBand is a selection rectangle stretched from a press point on empty
// desktop space.
type RubberBand struct {
	origin  geometry.ScreenPoint
	current geometry.ScreenPoint
	active  bool
}

// Begin starts a rubber band at p.
func (r *RubberBand) Begin(p geometry.ScreenPoint) {
	r.origin, r.current, r.active = p, p, true
}

// Update moves the free corner to p and recomputes the selection from scratch.
func (r *RubberBand) Update(p geometry.ScreenPoint, sel *Set, bounds map[string]geometry.Rect) []string {
	if !r.active {
		return sel.URIs()
	}
	r.current = p
	return sel.SelectRect(r.Rect(), bounds)
}

// End stops the rubber band.
func (r *RubberBand) End() {
	r.active = false
}

// Active reports whether a rubber band is in progress.
func (r *RubberBand) Active() bool {
	return r.active
}

// Rect returns the current rectangle.
func (r *RubberBand) Rect() geometry.Rect {
	return geometry.RectFromPoints(r.origin, r.current)
}

// DragSession holds the pre-drag anchors of the icons being dragged.
type DragSession struct {
	Start   geometry.ScreenPoint
	order   []string
	anchors map[string]geometry.ScreenPoint
}

// NewDragSession starts a drag at start. anchors maps each dragged icon to
// its position before the drag; uris fixes the drop order.
func NewDragSession(start geometry.ScreenPoint, uris []string, anchors map[string]geometry.ScreenPoint) *DragSession {
	d := &DragSession{
		Start:   start,
		anchors: make(map[string]geometry.ScreenPoint, len(uris)),
	}
	for _, uri := range uris {
		a, ok := anchors[uri]
		if !ok {
			continue
		}
		d.order = append(d.order, uri)
		d.anchors[uri] = a
	}
	return d
}

// URIs returns the dragged icons in drop order.
func (d *DragSession) URIs() []string {
	return append([]string(nil), d.order...)
}

// Len returns the number of dragged icons.
func (d *DragSession) Len() int {
	return len(d.order)
}

// Targets returns the drop anchors for a release at drop. Every icon moves
// by the same delta so the group keeps its shape.
func (d *DragSession) Targets(drop geometry.ScreenPoint) []layout.Move {
	delta := drop.Sub(d.Start)
	moves := make([]layout.Move, 0, len(d.order))
	for _, uri := range d.order {
		moves = append(moves, layout.Move{URI: uri, Target: d.anchors[uri].Add(delta)})
	}
	return moves
}
