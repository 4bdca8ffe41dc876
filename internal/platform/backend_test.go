package platform

import (
	"testing"

	"github.com/1broseidon/deskgrid/internal/geometry"
)

func TestStaticBackendReindexes(t *testing.T) {
	b := NewStaticBackend([]geometry.Surface{
		{Index: 7, Width: 1024, Height: 768},
		{Index: 9, X: 1024, Width: 800, Height: 600},
	}, 5)

	surfaces, primary, err := b.Surfaces()
	if err != nil {
		t.Fatalf("Surfaces: %v", err)
	}
	if primary != 0 {
		t.Fatalf("out-of-range primary should fall back to 0, got %d", primary)
	}
	for i, s := range surfaces {
		if s.Index != i {
			t.Fatalf("surface %d has index %d", i, s.Index)
		}
	}
}

func TestPad(t *testing.T) {
	got := Pad(geometry.Surface{X: 0, Y: 0, Width: 1024, Height: 768}, 10)
	want := geometry.Surface{X: 10, Y: 10, Width: 1004, Height: 748}
	if got != want {
		t.Fatalf("Pad = %+v, want %+v", got, want)
	}
	if tiny := Pad(geometry.Surface{Width: 10, Height: 10}, 20); tiny.Width != 1 || tiny.Height != 1 {
		t.Fatalf("Pad should clamp to 1x1, got %+v", tiny)
	}
}
