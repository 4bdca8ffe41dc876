package placement

import (
	"errors"
	"fmt"
	"testing"

	"github.com/1broseidon/deskgrid/internal/geometry"
)

func newTestIndex() *Index {
	// 1024x768 at cell size 130 -> 8 columns, 6 rows.
	return New(geometry.Surface{Width: 1024, Height: 768}, 130)
}

func cell(col, row int) geometry.GridCell {
	return geometry.GridCell{Col: col, Row: row}
}

func TestNew_GridShape(t *testing.T) {
	ix := newTestIndex()
	if ix.Columns() != 8 || ix.Rows() != 6 {
		t.Fatalf("got %dx%d, want 8x6", ix.Columns(), ix.Rows())
	}
}

func TestGetSet_OutOfBounds(t *testing.T) {
	ix := newTestIndex()
	for _, c := range []geometry.GridCell{cell(-1, 0), cell(8, 0), cell(0, 6), cell(0, -3)} {
		if _, err := ix.Get(c); !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("Get(%v): expected ErrOutOfBounds, got %v", c, err)
		}
		if err := ix.Set(c, IconOccupant("file:///a")); !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("Set(%v): expected ErrOutOfBounds, got %v", c, err)
		}
	}
}

func TestSetGetRemove(t *testing.T) {
	ix := newTestIndex()
	if err := ix.Set(cell(2, 3), IconOccupant("file:///a")); err != nil {
		t.Fatalf("set: %v", err)
	}
	occ, err := ix.Get(cell(2, 3))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if occ.Kind != Icon || occ.URI != "file:///a" {
		t.Fatalf("unexpected occupant %+v", occ)
	}
	if c, ok := ix.Find("file:///a"); !ok || c != cell(2, 3) {
		t.Fatalf("Find = %v,%v", c, ok)
	}

	if err := ix.Remove(cell(2, 3)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	occ, _ = ix.Get(cell(2, 3))
	if occ.Kind != Empty {
		t.Fatalf("expected empty after remove, got %v", occ.Kind)
	}
	if _, ok := ix.Find("file:///a"); ok {
		t.Fatal("Find should fail after remove")
	}
}

func TestSet_OverwriteDropsPreviousOccupant(t *testing.T) {
	ix := newTestIndex()
	_ = ix.Set(cell(0, 0), IconOccupant("a"))
	_ = ix.Set(cell(0, 0), IconOccupant("b"))
	if _, ok := ix.Find("a"); ok {
		t.Fatal("overwritten icon should no longer be indexed")
	}
	if ix.Len() != 1 {
		t.Fatalf("Len = %d, want 1", ix.Len())
	}
}

func TestSet_MovingIconVacatesOldCell(t *testing.T) {
	ix := newTestIndex()
	_ = ix.Set(cell(0, 0), IconOccupant("a"))
	_ = ix.Set(cell(3, 3), IconOccupant("a"))
	occ, _ := ix.Get(cell(0, 0))
	if !occ.IsFree() {
		t.Fatalf("old cell still occupied: %+v", occ)
	}
}

func TestReset_AllPlaceholders(t *testing.T) {
	ix := newTestIndex()
	_ = ix.Set(cell(1, 1), IconOccupant("a"))
	ix.Reset()
	if ix.Len() != 0 {
		t.Fatalf("Len = %d after reset", ix.Len())
	}
	for col := 0; col < ix.Columns(); col++ {
		for row := 0; row < ix.Rows(); row++ {
			occ, _ := ix.Get(cell(col, row))
			if occ.Kind != Placeholder {
				t.Fatalf("cell (%d,%d) = %v, want placeholder", col, row, occ.Kind)
			}
		}
	}
}

func TestFindNearestFree_StartFree(t *testing.T) {
	ix := newTestIndex()
	got, ok := ix.FindNearestFree(cell(4, 4))
	if !ok || got != cell(4, 4) {
		t.Fatalf("got %v,%v want (4,4)", got, ok)
	}
}

func TestFindNearestFree_AdjacencyOrder(t *testing.T) {
	tests := []struct {
		name     string
		occupied []geometry.GridCell
		start    geometry.GridCell
		want     geometry.GridCell
	}{
		{name: "right first", occupied: []geometry.GridCell{cell(3, 3)}, start: cell(3, 3), want: cell(4, 3)},
		{name: "down when right taken", occupied: []geometry.GridCell{cell(3, 3), cell(4, 3)}, start: cell(3, 3), want: cell(3, 4)},
		{name: "left when right and down taken", occupied: []geometry.GridCell{cell(3, 3), cell(4, 3), cell(3, 4)}, start: cell(3, 3), want: cell(2, 3)},
		{name: "up last", occupied: []geometry.GridCell{cell(3, 3), cell(4, 3), cell(3, 4), cell(2, 3)}, start: cell(3, 3), want: cell(3, 2)},
		{name: "corner skips out of grid", occupied: []geometry.GridCell{cell(7, 5)}, start: cell(7, 5), want: cell(6, 5)},
		{name: "origin goes right", occupied: []geometry.GridCell{cell(0, 0)}, start: cell(0, 0), want: cell(1, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := newTestIndex()
			ix.Reset()
			for i, c := range tt.occupied {
				if err := ix.Set(c, IconOccupant(fmt.Sprintf("icon-%d", i))); err != nil {
					t.Fatalf("set: %v", err)
				}
			}
			got, ok := ix.FindNearestFree(tt.start)
			if !ok {
				t.Fatal("expected a free cell")
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindNearestFree_Saturated(t *testing.T) {
	ix := newTestIndex()
	n := 0
	for col := 0; col < ix.Columns(); col++ {
		for row := 0; row < ix.Rows(); row++ {
			_ = ix.Set(cell(col, row), IconOccupant(fmt.Sprintf("icon-%d", n)))
			n++
		}
	}
	if _, ok := ix.FindNearestFree(cell(0, 0)); ok {
		t.Fatal("expected not found on a saturated grid")
	}
}

func TestFindNearestFree_NeverLeavesGrid(t *testing.T) {
	ix := newTestIndex()
	// Fill all but the farthest cell.
	for col := 0; col < ix.Columns(); col++ {
		for row := 0; row < ix.Rows(); row++ {
			if col == 7 && row == 5 {
				continue
			}
			_ = ix.Set(cell(col, row), IconOccupant(fmt.Sprintf("%d-%d", col, row)))
		}
	}
	got, ok := ix.FindNearestFree(cell(0, 0))
	if !ok || got != cell(7, 5) {
		t.Fatalf("got %v,%v want (7,5)", got, ok)
	}
	if !ix.InBounds(got) {
		t.Fatalf("result %v out of grid", got)
	}
}

func TestFindNearestFree_SearchLimit(t *testing.T) {
	ix := newTestIndex()
	for col := 0; col < ix.Columns(); col++ {
		for row := 0; row < ix.Rows(); row++ {
			if col == 7 && row == 5 {
				continue
			}
			_ = ix.Set(cell(col, row), IconOccupant(fmt.Sprintf("%d-%d", col, row)))
		}
	}
	ix.SetSearchLimit(5)
	if _, ok := ix.FindNearestFree(cell(0, 0)); ok {
		t.Fatal("expected the step cap to end the search")
	}
}

func TestFindNearestFree_OutOfBoundsStart(t *testing.T) {
	ix := newTestIndex()
	if _, ok := ix.FindNearestFree(cell(20, 20)); ok {
		t.Fatal("expected not found for an out-of-grid start")
	}
}

func TestFindNearestFree_DistanceIsMinimal(t *testing.T) {
	ix := newTestIndex()
	ix.Reset()
	blocked := []geometry.GridCell{cell(2, 2), cell(3, 2), cell(2, 3), cell(1, 2), cell(2, 1)}
	for i, c := range blocked {
		_ = ix.Set(c, IconOccupant(fmt.Sprintf("b%d", i)))
	}
	got, ok := ix.FindNearestFree(cell(2, 2))
	if !ok {
		t.Fatal("expected a free cell")
	}
	if d := Distance(cell(2, 2), got); d != 2 {
		t.Fatalf("distance %d, want 2 (got %v)", d, got)
	}
}
