package layout

import (
	"bytes"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/1broseidon/deskgrid/internal/geometry"
	"github.com/1broseidon/deskgrid/internal/placement"
	"github.com/1broseidon/deskgrid/internal/registry"
)

var screen = geometry.Surface{Index: 0, Name: "DP-1", Width: 1024, Height: 768}

func newEngine(t *testing.T, opts Options, surfaces ...geometry.Surface) (*Engine, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	opts.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	if opts.CellSize == 0 {
		opts.CellSize = 130
	}
	e := New(opts)
	if len(surfaces) == 0 {
		surfaces = []geometry.Surface{screen}
	}
	e.SetSurfaces(surfaces)
	return e, &buf
}

func anchored(uri string, x, y int) *registry.Icon {
	return &registry.Icon{URI: uri, Name: uri, Anchor: &geometry.ScreenPoint{X: x, Y: y}}
}

func loose(uri string) *registry.Icon {
	return &registry.Icon{URI: uri, Name: uri}
}

func cellOf(t *testing.T, e *Engine, uri string) geometry.GridCell {
	t.Helper()
	p, ok := e.Locate(uri)
	if !ok {
		t.Fatalf("%s is not placed", uri)
	}
	return p.Cell
}

func assertNoSharedCells(t *testing.T, e *Engine) {
	t.Helper()
	seen := make(map[[3]int]string)
	for _, p := range e.Snapshot() {
		key := [3]int{p.Surface, p.Cell.Col, p.Cell.Row}
		if other, ok := seen[key]; ok {
			t.Fatalf("%s and %s share cell %v on surface %d", p.URI, other, p.Cell, p.Surface)
		}
		seen[key] = p.URI
	}
}

func TestLayoutScenario(t *testing.T) {
	e, _ := newEngine(t, Options{})

	ix, _ := e.Index(0)
	if ix.Columns() != 8 || ix.Rows() != 6 {
		t.Fatalf("grid = %dx%d, want 8x6", ix.Columns(), ix.Rows())
	}

	report := e.Layout([]*registry.Icon{
		anchored("a", 5, 5),
		anchored("corner", 1020, 760),
		anchored("b", 5, 5),
	})
	if report.Placed != 3 || len(report.Unplaced) != 0 {
		t.Fatalf("report = %+v", report)
	}

	if got := cellOf(t, e, "a"); got != (geometry.GridCell{Col: 0, Row: 0}) {
		t.Fatalf("a at %v, want (0,0)", got)
	}
	if got := cellOf(t, e, "corner"); got != (geometry.GridCell{Col: 7, Row: 5}) {
		t.Fatalf("corner at %v, want (7,5)", got)
	}
	if got := cellOf(t, e, "b"); got != (geometry.GridCell{Col: 1, Row: 0}) {
		t.Fatalf("b at %v, want (1,0)", got)
	}
}

func TestLayoutAnchoredBeforeUnanchored(t *testing.T) {
	e, _ := newEngine(t, Options{})

	// The unanchored icon comes first in registry order but must not take
	// a cell an anchored icon wants.
	e.Layout([]*registry.Icon{
		loose("new"),
		anchored("a", 10, 10),
		anchored("b", 20, 20),
	})

	a, b, n := cellOf(t, e, "a"), cellOf(t, e, "b"), cellOf(t, e, "new")
	if a != (geometry.GridCell{}) {
		t.Fatalf("a at %v, want (0,0)", a)
	}
	if b != (geometry.GridCell{Col: 1}) {
		t.Fatalf("b at %v, want (1,0)", b)
	}
	if n != (geometry.GridCell{Row: 1}) {
		t.Fatalf("new at %v, want (0,1)", n)
	}
}

func TestLayoutIsIdempotent(t *testing.T) {
	e, _ := newEngine(t, Options{})
	icons := []*registry.Icon{
		anchored("a", 300, 300),
		anchored("b", 300, 300),
		anchored("c", 5000, 5000),
		loose("d"),
		loose("e"),
		anchored("f", -40, 200),
	}

	e.Layout(icons)
	first := e.Snapshot()
	e.Layout(icons)
	second := e.Snapshot()

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("layout not idempotent:\n%v\n%v", first, second)
	}
	assertNoSharedCells(t, e)
}

func TestLayoutNeverSharesCells(t *testing.T) {
	e, _ := newEngine(t, Options{})
	var icons []*registry.Icon
	for i := 0; i < 40; i++ {
		if i%3 == 0 {
			icons = append(icons, loose(fmt.Sprintf("loose-%d", i)))
			continue
		}
		icons = append(icons, anchored(fmt.Sprintf("icon-%d", i), (i*97)%1024, (i*53)%768))
	}
	report := e.Layout(icons)
	if report.Placed != 40 {
		t.Fatalf("placed %d of 40", report.Placed)
	}
	assertNoSharedCells(t, e)
}

func TestLayoutSaturatedGrid(t *testing.T) {
	e, buf := newEngine(t, Options{})

	var icons []*registry.Icon
	for i := 0; i < 48; i++ {
		icons = append(icons, loose(fmt.Sprintf("icon-%02d", i)))
	}
	icons = append(icons, loose("overflow"))

	report := e.Layout(icons)

	if report.Placed != 48 {
		t.Fatalf("placed %d, want 48", report.Placed)
	}
	if len(report.Unplaced) != 1 || report.Unplaced[0] != "overflow" {
		t.Fatalf("unplaced = %v, want [overflow]", report.Unplaced)
	}
	if _, ok := e.Locate("overflow"); ok {
		t.Fatalf("overflow icon should not be in the index")
	}
	if n := strings.Count(buf.String(), "no free cell"); n != 1 {
		t.Fatalf("expected one warning, got %d:\n%s", n, buf.String())
	}
	assertNoSharedCells(t, e)
}

func TestLayoutMultipleSurfaces(t *testing.T) {
	left := geometry.Surface{Index: 0, Width: 1024, Height: 768}
	right := geometry.Surface{Index: 1, X: 1024, Width: 1280, Height: 1024}
	e, _ := newEngine(t, Options{Primary: 0}, left, right)

	e.Layout([]*registry.Icon{
		anchored("on-right", 1024+270, 140),
		anchored("off-screen", 9000, 9000),
		anchored("on-left", 5, 5),
	})

	p, _ := e.Locate("on-right")
	if p.Surface != 1 || p.Cell != (geometry.GridCell{Col: 2, Row: 1}) {
		t.Fatalf("on-right = %+v", p)
	}
	if p.Point != (geometry.ScreenPoint{X: 1024 + 260, Y: 130}) {
		t.Fatalf("on-right point = %v", p.Point)
	}
	p, _ = e.Locate("off-screen")
	if p.Surface != 0 || p.Cell != (geometry.GridCell{Col: 7, Row: 5}) {
		t.Fatalf("off-screen anchor should clamp on the primary surface, got %+v", p)
	}
	p, _ = e.Locate("on-left")
	if p.Surface != 0 || p.Cell != (geometry.GridCell{}) {
		t.Fatalf("on-left = %+v", p)
	}
}

func TestUnanchoredOverflowToNextSurface(t *testing.T) {
	small := geometry.Surface{Index: 0, Width: 260, Height: 130}
	other := geometry.Surface{Index: 1, X: 260, Width: 260, Height: 130}
	e, _ := newEngine(t, Options{}, small, other)

	report := e.Layout([]*registry.Icon{loose("a"), loose("b"), loose("c")})
	if report.Placed != 3 {
		t.Fatalf("report = %+v", report)
	}
	p, _ := e.Locate("c")
	if p.Surface != 1 {
		t.Fatalf("c should overflow onto surface 1, got %+v", p)
	}
}

func TestLayoutWithoutSurfaces(t *testing.T) {
	e := New(Options{Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))})
	report := e.Layout([]*registry.Icon{loose("a")})
	if len(report.Unplaced) != 1 {
		t.Fatalf("report = %+v", report)
	}
}

func TestLayoutResetsStaleCells(t *testing.T) {
	e, _ := newEngine(t, Options{})
	e.Layout([]*registry.Icon{anchored("a", 5, 5), anchored("b", 400, 400)})
	e.Layout([]*registry.Icon{anchored("b", 400, 400)})

	if _, ok := e.Locate("a"); ok {
		t.Fatalf("a should be gone after relayout")
	}
	ix, _ := e.Index(0)
	occ, _ := ix.Get(geometry.GridCell{})
	if occ.Kind != placement.Placeholder {
		t.Fatalf("vacated cell = %v, want placeholder", occ.Kind)
	}
}

func TestRenameAndRemove(t *testing.T) {
	e, _ := newEngine(t, Options{})
	e.Layout([]*registry.Icon{anchored("old", 5, 5)})

	if !e.Rename("old", "new") {
		t.Fatalf("Rename returned false")
	}
	if _, ok := e.Locate("old"); ok {
		t.Fatalf("old URI still placed")
	}
	if got := cellOf(t, e, "new"); got != (geometry.GridCell{}) {
		t.Fatalf("renamed icon moved to %v", got)
	}

	if !e.Remove("new") {
		t.Fatalf("Remove returned false")
	}
	if e.Remove("new") {
		t.Fatalf("second Remove should report false")
	}
}

func TestIconAtAndBounds(t *testing.T) {
	e, _ := newEngine(t, Options{})
	e.Layout([]*registry.Icon{anchored("a", 140, 10)})

	if uri, ok := e.IconAt(geometry.ScreenPoint{X: 200, Y: 100}); !ok || uri != "a" {
		t.Fatalf("IconAt = %q, %v", uri, ok)
	}
	if _, ok := e.IconAt(geometry.ScreenPoint{X: 10, Y: 10}); ok {
		t.Fatalf("empty cell should not hit")
	}
	b := e.Bounds()["a"]
	if b != (geometry.Rect{X: 130, Y: 0, Width: 130, Height: 130}) {
		t.Fatalf("bounds = %+v", b)
	}
}

func TestChangesNotify(t *testing.T) {
	e, _ := newEngine(t, Options{})
	// Drain the surfaces notification.
	<-e.Changes()

	e.Layout([]*registry.Icon{loose("a")})
	e.Drop([]Move{{URI: "a", Target: geometry.ScreenPoint{X: 300, Y: 300}}})

	select {
	case ch := <-e.Changes():
		if ch.Reason != ReasonDrop {
			t.Fatalf("latest change = %s, want drop", ch.Reason)
		}
	default:
		t.Fatalf("expected a pending change")
	}
}
