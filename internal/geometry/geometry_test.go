package geometry

import "testing"

func TestColumnsAndRows_CeilDivision(t *testing.T) {
	s := Surface{Width: 1024, Height: 768}
	if got := Columns(s, 130); got != 8 {
		t.Fatalf("Columns = %d, want 8", got)
	}
	if got := Rows(s, 130); got != 6 {
		t.Fatalf("Rows = %d, want 6", got)
	}

	exact := Surface{Width: 260, Height: 130}
	if got := Columns(exact, 130); got != 2 {
		t.Fatalf("Columns(exact) = %d, want 2", got)
	}
	if got := Rows(exact, 130); got != 1 {
		t.Fatalf("Rows(exact) = %d, want 1", got)
	}
}

func TestCellOfPoint(t *testing.T) {
	s := Surface{X: 0, Y: 0, Width: 1024, Height: 768}

	tests := []struct {
		name string
		p    ScreenPoint
		want GridCell
	}{
		{name: "top-left", p: ScreenPoint{X: 5, Y: 5}, want: GridCell{Col: 0, Row: 0}},
		{name: "bottom-right edge", p: ScreenPoint{X: 1020, Y: 760}, want: GridCell{Col: 7, Row: 5}},
		{name: "beyond right clamps", p: ScreenPoint{X: 5000, Y: 10}, want: GridCell{Col: 7, Row: 0}},
		{name: "negative clamps", p: ScreenPoint{X: -40, Y: -1}, want: GridCell{Col: 0, Row: 0}},
		{name: "cell boundary", p: ScreenPoint{X: 130, Y: 260}, want: GridCell{Col: 1, Row: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CellOfPoint(s, 130, tt.p); got != tt.want {
				t.Fatalf("CellOfPoint(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestCellOfPoint_OffsetSurface(t *testing.T) {
	s := Surface{X: 1920, Y: 32, Width: 1280, Height: 1000}
	got := CellOfPoint(s, 130, ScreenPoint{X: 1920 + 140, Y: 32 + 10})
	if got != (GridCell{Col: 1, Row: 0}) {
		t.Fatalf("got %v, want (1,0)", got)
	}
}

func TestPointOfCell_InverseOfCellOfPoint(t *testing.T) {
	s := Surface{X: 100, Y: 50, Width: 1024, Height: 768}
	for col := 0; col < Columns(s, 130); col++ {
		for row := 0; row < Rows(s, 130); row++ {
			c := GridCell{Col: col, Row: row}
			p := PointOfCell(s, 130, c)
			if back := CellOfPoint(s, 130, p); back != c {
				t.Fatalf("round trip of %v through %v gave %v", c, p, back)
			}
		}
	}
}

func TestRectIntersects(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	if !a.Intersects(Rect{X: 5, Y: 5, Width: 10, Height: 10}) {
		t.Fatal("expected overlap")
	}
	if a.Intersects(Rect{X: 10, Y: 0, Width: 5, Height: 5}) {
		t.Fatal("touching edges must not intersect")
	}
	if !a.Intersects(Rect{X: 3, Y: 3, Width: 0, Height: 0}) {
		t.Fatal("zero-size rect strictly inside must intersect")
	}
	if a.Intersects(Rect{X: 10, Y: 3, Width: 0, Height: 0}) {
		t.Fatal("zero-size rect on the edge must not intersect")
	}
}

func TestRectFromPoints_Normalizes(t *testing.T) {
	r := RectFromPoints(ScreenPoint{X: 50, Y: 10}, ScreenPoint{X: 10, Y: 40})
	want := Rect{X: 10, Y: 10, Width: 40, Height: 30}
	if r != want {
		t.Fatalf("got %+v, want %+v", r, want)
	}
}

func TestSurfaceFor_FallsBackToPrimary(t *testing.T) {
	surfaces := []Surface{
		{Index: 0, Width: 1920, Height: 1080},
		{Index: 1, X: 1920, Width: 1280, Height: 1024},
	}
	if got := SurfaceFor(surfaces, ScreenPoint{X: 2000, Y: 10}, 0); got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
	if got := SurfaceFor(surfaces, ScreenPoint{X: -10, Y: -10}, 0); got != 0 {
		t.Fatalf("got %d, want primary 0", got)
	}
}
