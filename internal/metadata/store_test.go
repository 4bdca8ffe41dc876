package metadata

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/1broseidon/deskgrid/internal/geometry"
)

func TestParseAnchor(t *testing.T) {
	tests := []struct {
		in     string
		want   geometry.ScreenPoint
		wantOK bool
	}{
		{in: "5,5", want: geometry.ScreenPoint{X: 5, Y: 5}, wantOK: true},
		{in: " 1020 , 760 ", want: geometry.ScreenPoint{X: 1020, Y: 760}, wantOK: true},
		{in: "-10,20", want: geometry.ScreenPoint{X: -10, Y: 20}, wantOK: true},
		{in: "12.6,3.2", want: geometry.ScreenPoint{X: 13, Y: 3}, wantOK: true},
		{in: "", wantOK: false},
		{in: "5", wantOK: false},
		{in: "a,b", wantOK: false},
		{in: "1,2,3", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAnchor(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseAnchor(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Fatalf("ParseAnchor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatAnchor(t *testing.T) {
	if got := FormatAnchor(geometry.ScreenPoint{X: 130, Y: -4}); got != "130,-4" {
		t.Fatalf("FormatAnchor = %q", got)
	}
}

func TestMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, ok, err := s.Get(ctx, "/d/a", PositionKey); err != nil || ok {
		t.Fatalf("expected missing value, got ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "/d/a", PositionKey, "1,2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := s.Get(ctx, "/d/a", PositionKey)
	if err != nil || !ok || v != "1,2" {
		t.Fatalf("got %q ok=%v err=%v", v, ok, err)
	}
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewMemoryStore().Set(ctx, "/d/a", PositionKey, "1,2"); err == nil {
		t.Fatal("expected cancelled set to fail")
	}
}

func TestSQLiteStore_RoundTripAndRename(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "meta.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if err := s.Set(ctx, "/d/a", PositionKey, "10,20"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "/d/a", PositionKey, "30,40"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := s.Get(ctx, "/d/a", PositionKey)
	if err != nil || !ok || v != "30,40" {
		t.Fatalf("got %q ok=%v err=%v", v, ok, err)
	}

	if err := s.Rename(ctx, "/d/a", "/d/b"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "/d/a", PositionKey); ok {
		t.Fatal("old path should have no attributes after rename")
	}
	if v, ok, _ := s.Get(ctx, "/d/b", PositionKey); !ok || v != "30,40" {
		t.Fatalf("renamed value = %q ok=%v", v, ok)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open("floppy", ""); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestXattrName(t *testing.T) {
	if got := xattrName(PositionKey); got != "user.metadata.nautilus-icon-position" {
		t.Fatalf("xattrName = %q", got)
	}
}
