// Package layout assigns desktop icons to grid cells across monitor surfaces.
package layout

import (
	"log/slog"
	"sort"

	"github.com/1broseidon/deskgrid/internal/geometry"
	"github.com/1broseidon/deskgrid/internal/placement"
	"github.com/1broseidon/deskgrid/internal/registry"
)

// ChangeReason describes what caused a LayoutChanged notification.
type ChangeReason string

const (
	ReasonLayout   ChangeReason = "layout"
	ReasonDrop     ChangeReason = "drop"
	ReasonSurfaces ChangeReason = "surfaces"
	ReasonRename   ChangeReason = "rename"
	ReasonRemove   ChangeReason = "remove"
)

// Change is sent on the engine's Changes channel after the grid is mutated.
type Change struct {
	Reason ChangeReason
	Seq    uint64
}

// Placement is where one icon currently sits.
type Placement struct {
	URI     string
	Surface int
	Cell    geometry.GridCell
	Point   geometry.ScreenPoint
}

// Report summarises a full layout pass.
type Report struct {
	Placed   int
	Unplaced []string
}

// Options configures an Engine.
type Options struct {
	CellSize    int
	SearchLimit int
	// Primary is the surface used for anchors outside every surface and as the
	// seed for unanchored icons.
	Primary int
	Logger  *slog.Logger
}

// Engine owns one placement index per surface. It is not safe for concurrent
// use; the desktop session drives it from a single goroutine.
type Engine struct {
	cellSize    int
	searchLimit int
	primary     int
	logger      *slog.Logger

	surfaces []geometry.Surface
	indexes  []*placement.Index

	seq     uint64
	changes chan Change
}

// New creates an engine with no surfaces.
func New(opts Options) *Engine {
	if opts.CellSize <= 0 {
		opts.CellSize = geometry.DefaultCellSize
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = placement.MaxSearchSteps
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		cellSize:    opts.CellSize,
		searchLimit: opts.SearchLimit,
		primary:     opts.Primary,
		logger:      opts.Logger,
		changes:     make(chan Change, 1),
	}
}

// Changes delivers LayoutChanged notifications. Notifications coalesce when
// the receiver falls behind; read Snapshot for the current state.
func (e *Engine) Changes() <-chan Change {
	return e.changes
}

func (e *Engine) notify(reason ChangeReason) {
	e.seq++
	ch := Change{Reason: reason, Seq: e.seq}
	select {
	case e.changes <- ch:
	default:
		// Replace the pending notification with the newer one.
		select {
		case <-e.changes:
		default:
		}
		select {
		case e.changes <- ch:
		default:
		}
	}
}

// CellSize returns the configured cell size in pixels.
func (e *Engine) CellSize() int {
	return e.cellSize
}

// Surfaces returns a copy of the current surfaces.
func (e *Engine) Surfaces() []geometry.Surface {
	return append([]geometry.Surface(nil), e.surfaces...)
}

// SetSurfaces discards every index and builds fresh, empty ones for the new
// display configuration. Callers re-run Layout afterwards.
func (e *Engine) SetSurfaces(surfaces []geometry.Surface) {
	e.surfaces = append([]geometry.Surface(nil), surfaces...)
	e.indexes = make([]*placement.Index, len(surfaces))
	for i, s := range surfaces {
		ix := placement.New(s, e.cellSize)
		ix.SetSearchLimit(e.searchLimit)
		ix.Reset()
		e.indexes[i] = ix
	}
	e.logger.Info("surfaces rebuilt", "count", len(surfaces), "cell_size", e.cellSize)
	e.notify(ReasonSurfaces)
}

// Configure changes the cell size and search limit and rebuilds every index.
// Callers re-run Layout afterwards.
func (e *Engine) Configure(cellSize, searchLimit int) {
	if cellSize <= 0 {
		cellSize = geometry.DefaultCellSize
	}
	if searchLimit <= 0 {
		searchLimit = placement.MaxSearchSteps
	}
	if cellSize == e.cellSize && searchLimit == e.searchLimit {
		return
	}
	e.cellSize = cellSize
	e.searchLimit = searchLimit
	e.SetSurfaces(e.surfaces)
}

// SetPrimary selects the surface that receives unanchored icons and anchors
// lying outside every surface.
func (e *Engine) SetPrimary(i int) {
	e.primary = i
}

// Primary returns the effective primary surface.
func (e *Engine) Primary() int {
	return e.primaryIndex()
}

func (e *Engine) primaryIndex() int {
	if e.primary >= 0 && e.primary < len(e.indexes) {
		return e.primary
	}
	return 0
}

// Index returns the placement index of surface i.
func (e *Engine) Index(i int) (*placement.Index, bool) {
	if i < 0 || i >= len(e.indexes) {
		return nil, false
	}
	return e.indexes[i], true
}

// Reset clears every cell on every surface to a placeholder.
func (e *Engine) Reset() {
	for _, ix := range e.indexes {
		ix.Reset()
	}
}

// Layout resets all indexes and places every icon in two passes: icons with
// an anchor first (in the given order), then icons without one, packed from
// the primary surface origin. Icons that find no free cell are left unplaced
// and reported.
func (e *Engine) Layout(icons []*registry.Icon) Report {
	e.Reset()

	var report Report
	if len(e.indexes) == 0 {
		for _, icon := range icons {
			report.Unplaced = append(report.Unplaced, icon.URI)
		}
		if len(icons) > 0 {
			e.logger.Warn("no surfaces available; icons left unplaced", "count", len(icons))
		}
		e.notify(ReasonLayout)
		return report
	}

	seen := make(map[string]bool, len(icons))

	for _, icon := range icons {
		if !icon.HasAnchor() || seen[icon.URI] {
			continue
		}
		seen[icon.URI] = true
		si := geometry.SurfaceFor(e.surfaces, *icon.Anchor, e.primaryIndex())
		start := geometry.CellOfPoint(e.surfaces[si], e.cellSize, *icon.Anchor)
		if e.placeNear(icon.URI, si, start) {
			report.Placed++
			continue
		}
		e.logger.Warn("no free cell for icon", "uri", icon.URI, "pass", 1)
		report.Unplaced = append(report.Unplaced, icon.URI)
	}

	for _, icon := range icons {
		if icon.HasAnchor() || seen[icon.URI] {
			continue
		}
		seen[icon.URI] = true
		if e.placeUnanchored(icon.URI) {
			report.Placed++
			continue
		}
		e.logger.Warn("no free cell for icon", "uri", icon.URI, "pass", 2)
		report.Unplaced = append(report.Unplaced, icon.URI)
	}

	e.logger.Debug("layout complete", "placed", report.Placed, "unplaced", len(report.Unplaced))
	e.notify(ReasonLayout)
	return report
}

func (e *Engine) placeNear(uri string, si int, start geometry.GridCell) bool {
	ix := e.indexes[si]
	cell, ok := ix.FindNearestFree(start)
	if !ok {
		return false
	}
	return ix.Set(cell, placement.IconOccupant(uri)) == nil
}

// Unanchored icons seed at the primary surface origin and overflow onto the
// remaining surfaces in order.
func (e *Engine) placeUnanchored(uri string) bool {
	p := e.primaryIndex()
	if e.placeNear(uri, p, geometry.GridCell{}) {
		return true
	}
	for i := range e.indexes {
		if i == p {
			continue
		}
		if e.placeNear(uri, i, geometry.GridCell{}) {
			return true
		}
	}
	return false
}

// Locate returns the current placement of uri.
func (e *Engine) Locate(uri string) (Placement, bool) {
	for i, ix := range e.indexes {
		if c, ok := ix.Find(uri); ok {
			return e.placementOf(uri, i, c), true
		}
	}
	return Placement{}, false
}

func (e *Engine) placementOf(uri string, si int, c geometry.GridCell) Placement {
	return Placement{
		URI:     uri,
		Surface: si,
		Cell:    c,
		Point:   geometry.PointOfCell(e.surfaces[si], e.cellSize, c),
	}
}

// Snapshot returns every placement ordered by surface, column, row.
func (e *Engine) Snapshot() []Placement {
	var out []Placement
	for i, ix := range e.indexes {
		for _, uri := range ix.URIs() {
			c, _ := ix.Find(uri)
			out = append(out, e.placementOf(uri, i, c))
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Surface != out[b].Surface {
			return out[a].Surface < out[b].Surface
		}
		if out[a].Cell.Col != out[b].Cell.Col {
			return out[a].Cell.Col < out[b].Cell.Col
		}
		return out[a].Cell.Row < out[b].Cell.Row
	})
	return out
}

// Bounds returns the screen rectangle of every placed icon, for hit testing.
func (e *Engine) Bounds() map[string]geometry.Rect {
	out := make(map[string]geometry.Rect)
	for i, ix := range e.indexes {
		for uri, c := range ix.Icons() {
			out[uri] = geometry.CellRect(e.surfaces[i], e.cellSize, c)
		}
	}
	return out
}

// IconAt returns the icon whose cell contains p.
func (e *Engine) IconAt(p geometry.ScreenPoint) (string, bool) {
	for i, s := range e.surfaces {
		if !s.Contains(p) {
			continue
		}
		occ, err := e.indexes[i].Get(geometry.CellOfPoint(s, e.cellSize, p))
		if err != nil || occ.Kind != placement.Icon {
			return "", false
		}
		return occ.URI, true
	}
	return "", false
}

// Rename moves the cell held by oldURI over to newURI.
func (e *Engine) Rename(oldURI, newURI string) bool {
	for _, ix := range e.indexes {
		if c, ok := ix.Find(oldURI); ok {
			_ = ix.Set(c, placement.IconOccupant(newURI))
			e.notify(ReasonRename)
			return true
		}
	}
	return false
}

// Remove frees the cell held by uri.
func (e *Engine) Remove(uri string) bool {
	for _, ix := range e.indexes {
		if c, ok := ix.RemoveIcon(uri); ok {
			_ = ix.Set(c, placement.Occupant{Kind: placement.Placeholder})
			e.notify(ReasonRemove)
			return true
		}
	}
	return false
}
