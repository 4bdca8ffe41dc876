package placement

import (
	"errors"
	"fmt"
	"sort"

	"github.com/1broseidon/deskgrid/internal/geometry"
)

// MaxSearchSteps bounds FindNearestFree. It is a soft cap that keeps a
// saturated or pathological grid from hanging the caller; a very large desktop
// can legitimately exceed it, in which case the search reports "not found".
const MaxSearchSteps = 1000

// AdjacencyOrder is the fixed neighbour expansion order used by
// FindNearestFree: right, down, left, up. Ties between cells at equal BFS
// depth break by this order.
var AdjacencyOrder = [4]geometry.GridCell{
	{Col: 1, Row: 0},
	{Col: 0, Row: 1},
	{Col: -1, Row: 0},
	{Col: 0, Row: -1},
}

// ErrOutOfBounds is returned for cell coordinates outside the grid.
var ErrOutOfBounds = errors.New("cell out of bounds")

// OccupantKind classifies what sits in a cell.
type OccupantKind int

const (
	// Empty means nothing is in the cell.
	Empty OccupantKind = iota
	// Placeholder marks a cell that is visually present but unoccupied.
	Placeholder
	// Icon means a real desktop icon occupies the cell.
	Icon
)

// String returns the string representation of the kind
func (k OccupantKind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Placeholder:
		return "placeholder"
	case Icon:
		return "icon"
	default:
		return "unknown"
	}
}

// Occupant is the content of one cell.
type Occupant struct {
	Kind OccupantKind
	URI  string
}

// IconOccupant returns an occupant for the icon identified by uri.
func IconOccupant(uri string) Occupant {
	return Occupant{Kind: Icon, URI: uri}
}

// IsFree reports whether a new icon may take the cell.
func (o Occupant) IsFree() bool {
	return o.Kind != Icon
}

// Index is the per-surface map from grid cell to occupant. Cells missing from
// the map are Empty. An icon occupies at most one cell.
type Index struct {
	surface     geometry.Surface
	cellSize    int
	cols        int
	rows        int
	searchLimit int
	cells       map[geometry.GridCell]Occupant
	byURI       map[string]geometry.GridCell
}

// New builds an empty index for a surface. The grid shape is fixed for the
// lifetime of the index; a geometry change requires a new index.
func New(surface geometry.Surface, cellSize int) *Index {
	return &Index{
		surface:     surface,
		cellSize:    cellSize,
		cols:        geometry.Columns(surface, cellSize),
		rows:        geometry.Rows(surface, cellSize),
		searchLimit: MaxSearchSteps,
		cells:       make(map[geometry.GridCell]Occupant),
		byURI:       make(map[string]geometry.GridCell),
	}
}

// Clone returns an independent copy of the index.
func (ix *Index) Clone() *Index {
	c := *ix
	c.cells = make(map[geometry.GridCell]Occupant, len(ix.cells))
	for k, v := range ix.cells {
		c.cells[k] = v
	}
	c.byURI = make(map[string]geometry.GridCell, len(ix.byURI))
	for k, v := range ix.byURI {
		c.byURI[k] = v
	}
	return &c
}

// SetSearchLimit overrides the BFS dequeue cap. Values <= 0 restore the default.
func (ix *Index) SetSearchLimit(n int) {
	if n <= 0 {
		n = MaxSearchSteps
	}
	ix.searchLimit = n
}

// Surface returns the surface this index covers.
func (ix *Index) Surface() geometry.Surface { return ix.surface }

// CellSize returns the cell edge length in pixels.
func (ix *Index) CellSize() int { return ix.cellSize }

// Columns returns the number of grid columns.
func (ix *Index) Columns() int { return ix.cols }

// Rows returns the number of grid rows.
func (ix *Index) Rows() int { return ix.rows }

// InBounds reports whether c lies inside [0,cols)x[0,rows).
func (ix *Index) InBounds(c geometry.GridCell) bool {
	return c.Col >= 0 && c.Col < ix.cols && c.Row >= 0 && c.Row < ix.rows
}

// Get returns the occupant of c.
func (ix *Index) Get(c geometry.GridCell) (Occupant, error) {
	if !ix.InBounds(c) {
		return Occupant{}, fmt.Errorf("get %v on %dx%d grid: %w", c, ix.cols, ix.rows, ErrOutOfBounds)
	}
	return ix.cells[c], nil
}

// Set stores occ at c, overwriting whatever is there. Placing an icon that
// already occupies another cell moves it.
func (ix *Index) Set(c geometry.GridCell, occ Occupant) error {
	if !ix.InBounds(c) {
		return fmt.Errorf("set %v on %dx%d grid: %w", c, ix.cols, ix.rows, ErrOutOfBounds)
	}
	if prev, ok := ix.cells[c]; ok && prev.Kind == Icon {
		delete(ix.byURI, prev.URI)
	}
	if occ.Kind == Icon {
		if old, ok := ix.byURI[occ.URI]; ok && old != c {
			ix.cells[old] = Occupant{Kind: Placeholder}
		}
		ix.byURI[occ.URI] = c
	}
	if occ.Kind == Empty {
		delete(ix.cells, c)
		return nil
	}
	ix.cells[c] = occ
	return nil
}

// Remove clears c to empty.
func (ix *Index) Remove(c geometry.GridCell) error {
	return ix.Set(c, Occupant{})
}

// RemoveIcon clears the cell held by uri, if any, and returns it.
func (ix *Index) RemoveIcon(uri string) (geometry.GridCell, bool) {
	c, ok := ix.byURI[uri]
	if !ok {
		return geometry.GridCell{}, false
	}
	_ = ix.Set(c, Occupant{})
	return c, true
}

// Find returns the cell occupied by uri.
func (ix *Index) Find(uri string) (geometry.GridCell, bool) {
	c, ok := ix.byURI[uri]
	return c, ok
}

// Reset clears every cell to a placeholder.
func (ix *Index) Reset() {
	ix.cells = make(map[geometry.GridCell]Occupant, ix.cols*ix.rows)
	ix.byURI = make(map[string]geometry.GridCell)
	ix.FillPlaceholders()
}

// FillPlaceholders marks every empty in-bounds cell as a placeholder.
func (ix *Index) FillPlaceholders() {
	for col := 0; col < ix.cols; col++ {
		for row := 0; row < ix.rows; row++ {
			c := geometry.GridCell{Col: col, Row: row}
			if _, ok := ix.cells[c]; !ok {
				ix.cells[c] = Occupant{Kind: Placeholder}
			}
		}
	}
}

// Len returns the number of icons in the index.
func (ix *Index) Len() int {
	return len(ix.byURI)
}

// Icons returns a copy of the uri -> cell assignments.
func (ix *Index) Icons() map[string]geometry.GridCell {
	out := make(map[string]geometry.GridCell, len(ix.byURI))
	for uri, c := range ix.byURI {
		out[uri] = c
	}
	return out
}

// URIs returns the icons in the index sorted by cell (column-major).
func (ix *Index) URIs() []string {
	uris := make([]string, 0, len(ix.byURI))
	for uri := range ix.byURI {
		uris = append(uris, uri)
	}
	sort.Slice(uris, func(i, j int) bool {
		a, b := ix.byURI[uris[i]], ix.byURI[uris[j]]
		if a.Col != b.Col {
			return a.Col < b.Col
		}
		return a.Row < b.Row
	})
	return uris
}

// FindNearestFree searches breadth-first from start for a cell that is empty
// or a placeholder. Neighbours expand in AdjacencyOrder and never leave the
// grid. The search gives up after the configured number of dequeues.
func (ix *Index) FindNearestFree(start geometry.GridCell) (geometry.GridCell, bool) {
	if !ix.InBounds(start) {
		return geometry.GridCell{}, false
	}

	queue := []geometry.GridCell{start}
	seen := map[geometry.GridCell]bool{start: true}
	steps := 0

	for len(queue) > 0 && steps < ix.searchLimit {
		current := queue[0]
		queue = queue[1:]
		steps++

		if ix.cells[current].IsFree() {
			return current, true
		}

		for _, d := range AdjacencyOrder {
			next := geometry.GridCell{Col: current.Col + d.Col, Row: current.Row + d.Row}
			if !ix.InBounds(next) || seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
		}
	}

	return geometry.GridCell{}, false
}

// Distance returns the BFS depth from a to b on a 4-connected grid.
func Distance(a, b geometry.GridCell) int {
	return abs(a.Col-b.Col) + abs(a.Row-b.Row)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
