package layout

import (
	"github.com/1broseidon/deskgrid/internal/geometry"
	"github.com/1broseidon/deskgrid/internal/placement"
)

// Move asks for uri to be dropped at Target, an absolute screen point.
type Move struct {
	URI    string
	Target geometry.ScreenPoint
}

// DropResult lists what happened to each icon of a drop batch.
type DropResult struct {
	Placed []Placement
	// Unmoved are icons dropped back onto the cell they already held.
	Unmoved []string
	// Failed icons keep their previous cell.
	Failed []string
	// Skipped icons were not on the grid when the drop started.
	Skipped []string
}

type destination struct {
	uri     string
	surface int
	cell    geometry.GridCell
}

// dropPlan is one resolution attempt of a batch.
type dropPlan struct {
	dests   []destination
	unmoved []string
	// failed is the icon that stopped this attempt, if any.
	failed string
}

// Drop places a batch of dragged icons. Each target cell is taken when free,
// kept when the icon is dropped onto itself, and otherwise replaced by the
// nearest free cell. Icons outside the batch are never displaced. A batch
// icon leaves its old cell when its turn comes, so a later one may land
// where it just left. An icon that finds no cell keeps its old one: the
// batch is resolved again with that cell reserved, so nothing else can have
// claimed it. Drop itself never fails.
func (e *Engine) Drop(moves []Move) DropResult {
	var result DropResult
	if len(e.indexes) == 0 || len(moves) == 0 {
		for _, m := range moves {
			result.Skipped = append(result.Skipped, m.URI)
		}
		return result
	}

	batch := make(map[string]bool, len(moves))
	origins := make(map[string]Placement, len(moves))
	var live []Move
	for _, m := range moves {
		if batch[m.URI] {
			continue
		}
		batch[m.URI] = true
		old, ok := e.Locate(m.URI)
		if !ok {
			e.logger.Debug("drop of icon not on grid", "uri", m.URI)
			result.Skipped = append(result.Skipped, m.URI)
			continue
		}
		origins[m.URI] = old
		live = append(live, m)
	}

	failed := make(map[string]bool)
	var plan dropPlan
	for {
		plan = e.planDrop(live, batch, origins, failed)
		if plan.failed == "" {
			break
		}
		failed[plan.failed] = true
	}
	for _, m := range live {
		if failed[m.URI] {
			result.Failed = append(result.Failed, m.URI)
		}
	}
	result.Unmoved = plan.unmoved

	for _, d := range plan.dests {
		for _, ix := range e.indexes {
			ix.RemoveIcon(d.uri)
		}
	}
	for _, d := range plan.dests {
		if err := e.indexes[d.surface].Set(d.cell, placement.IconOccupant(d.uri)); err != nil {
			e.logger.Error("failed to place dropped icon", "uri", d.uri, "err", err)
			continue
		}
		result.Placed = append(result.Placed, e.placementOf(d.uri, d.surface, d.cell))
	}
	for _, ix := range e.indexes {
		ix.FillPlaceholders()
	}

	e.notify(ReasonDrop)
	return result
}

// planDrop resolves moves in order against scratch copies of the grids.
// Icons in failed stay where they are and are treated like icons outside the
// batch. Resolution stops at the first icon that cannot be placed.
func (e *Engine) planDrop(moves []Move, batch map[string]bool, origins map[string]Placement, failed map[string]bool) dropPlan {
	var plan dropPlan

	// Scratch grids track the batch as it is decided: each icon is lifted out
	// when its turn comes and written back at its destination.
	scratch := make([]*placement.Index, len(e.indexes))
	for i, ix := range e.indexes {
		scratch[i] = ix.Clone()
	}
	finalized := make(map[int]map[geometry.GridCell]string)
	moving := func(uri string) bool { return batch[uri] && !failed[uri] }

	for _, m := range moves {
		if failed[m.URI] {
			continue
		}
		old := origins[m.URI]
		if c, ok := scratch[old.Surface].RemoveIcon(m.URI); ok {
			_ = scratch[old.Surface].Set(c, placement.Occupant{Kind: placement.Placeholder})
		}

		si := geometry.SurfaceFor(e.surfaces, m.Target, e.primaryIndex())
		target := geometry.CellOfPoint(e.surfaces[si], e.cellSize, m.Target)
		occ, err := e.indexes[si].Get(target)
		if err != nil {
			e.logger.Error("drop target outside grid", "uri", m.URI, "cell", target.String(), "err", err)
			plan.failed = m.URI
			return plan
		}

		cell := target
		unmoved := false
		switch {
		case occ.Kind == placement.Icon && occ.URI == m.URI:
			unmoved = true
		case occ.Kind == placement.Icon && !moving(occ.URI):
			// Occupied by an icon that is not moving: route around it.
			free, ok := scratch[si].FindNearestFree(target)
			if !ok {
				e.logger.Warn("no free cell for icon", "uri", m.URI, "near", target.String())
				plan.failed = m.URI
				return plan
			}
			cell = free
		}

		// An earlier icon of this batch may already hold the cell; the first
		// one wins and this one takes the nearest free cell instead.
		if _, taken := finalized[si][cell]; taken {
			unmoved = false
			free, ok := scratch[si].FindNearestFree(cell)
			if !ok {
				e.logger.Warn("no free cell for icon", "uri", m.URI, "near", cell.String())
				plan.failed = m.URI
				return plan
			}
			cell = free
		}

		if other, taken := finalized[si][cell]; taken {
			e.logger.Error("drop collision with another dragged icon", "uri", m.URI, "other", other, "cell", cell.String())
			plan.failed = m.URI
			return plan
		}

		if finalized[si] == nil {
			finalized[si] = make(map[geometry.GridCell]string)
		}
		finalized[si][cell] = m.URI
		_ = scratch[si].Set(cell, placement.IconOccupant(m.URI))
		plan.dests = append(plan.dests, destination{uri: m.URI, surface: si, cell: cell})
		if unmoved {
			plan.unmoved = append(plan.unmoved, m.URI)
		}
	}
	return plan
}
