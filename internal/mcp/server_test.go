package mcp

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/1broseidon/deskgrid/internal/ipc"
)

type fakeDaemon struct {
	icons    []ipc.IconInfo
	surfaces *ipc.SurfacesData
	moves    []ipc.IconMove
	rescans  int
	err      error
}

func (f *fakeDaemon) ListIcons() (*ipc.IconsData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ipc.IconsData{Icons: f.icons}, nil
}

func (f *fakeDaemon) GetSurfaces() (*ipc.SurfacesData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.surfaces, nil
}

func (f *fakeDaemon) MoveIcons(moves []ipc.IconMove) (*ipc.DropData, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.moves = moves
	out := &ipc.DropData{}
	for _, m := range moves {
		out.Placed = append(out.Placed, ipc.PlacedIcon{URI: m.URI, Col: m.X / 130, Row: m.Y / 130})
	}
	return out, nil
}

func (f *fakeDaemon) Rescan() error {
	f.rescans++
	return f.err
}

func TestListIcons(t *testing.T) {
	d := &fakeDaemon{icons: []ipc.IconInfo{
		{URI: "file:///d/a", Name: "a", Kind: "file", Placed: true, Col: 0, Row: 0},
		{URI: "file:///d/b", Name: "b", Kind: "file"},
	}}
	s := NewServer(d)

	_, out, err := s.handleListIcons(context.Background(), nil, ListIconsInput{})
	if err != nil {
		t.Fatalf("handleListIcons: %v", err)
	}
	if len(out.Icons) != 2 || out.Unplaced != 1 {
		t.Fatalf("out = %+v", out)
	}

	_, out, err = s.handleListIcons(context.Background(), nil, ListIconsInput{PlacedOnly: true})
	if err != nil {
		t.Fatalf("handleListIcons: %v", err)
	}
	if len(out.Icons) != 1 || out.Icons[0].Name != "a" || out.Unplaced != 1 {
		t.Fatalf("placed only = %+v", out)
	}
}

func TestGetSurfaces(t *testing.T) {
	d := &fakeDaemon{surfaces: &ipc.SurfacesData{
		CellSize: 130,
		Surfaces: []ipc.SurfaceInfo{{ID: 0, Name: "eDP-1", Width: 1024, Height: 768, Columns: 7, Rows: 5, Primary: true}},
	}}
	_, out, err := NewServer(d).handleGetSurfaces(context.Background(), nil, GetSurfacesInput{})
	if err != nil {
		t.Fatalf("handleGetSurfaces: %v", err)
	}
	want := GetSurfacesOutput{
		CellSize: 130,
		Surfaces: []SurfaceInfo{{ID: 0, Name: "eDP-1", Width: 1024, Height: 768, Columns: 7, Rows: 5, Primary: true}},
	}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("out = %+v, want %+v", out, want)
	}
}

func TestMoveIcons(t *testing.T) {
	d := &fakeDaemon{}
	s := NewServer(d)

	_, out, err := s.handleMoveIcons(context.Background(), nil, MoveIconsInput{
		Moves: []IconMove{{URI: "file:///d/a", X: 270, Y: 140}},
	})
	if err != nil {
		t.Fatalf("handleMoveIcons: %v", err)
	}
	if !reflect.DeepEqual(d.moves, []ipc.IconMove{{URI: "file:///d/a", X: 270, Y: 140}}) {
		t.Fatalf("forwarded moves = %+v", d.moves)
	}
	if len(out.Placed) != 1 || out.Placed[0].Col != 2 || out.Placed[0].Row != 1 {
		t.Fatalf("out = %+v", out)
	}
}

func TestMoveIconsValidation(t *testing.T) {
	s := NewServer(&fakeDaemon{})
	tests := []struct {
		name string
		in   MoveIconsInput
	}{
		{"empty", MoveIconsInput{}},
		{"missing uri", MoveIconsInput{Moves: []IconMove{{X: 1, Y: 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := s.handleMoveIcons(context.Background(), nil, tt.in); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestRescanAndDaemonErrors(t *testing.T) {
	d := &fakeDaemon{}
	s := NewServer(d)
	_, out, err := s.handleRescan(context.Background(), nil, RescanInput{})
	if err != nil || !out.Success || d.rescans != 1 {
		t.Fatalf("rescan out=%+v err=%v calls=%d", out, err, d.rescans)
	}

	d.err = errors.New("daemon not running")
	if _, _, err := s.handleRescan(context.Background(), nil, RescanInput{}); err == nil {
		t.Fatalf("expected rescan error")
	}
	if _, _, err := s.handleListIcons(context.Background(), nil, ListIconsInput{}); err == nil {
		t.Fatalf("expected list error")
	}
	if _, _, err := s.handleGetSurfaces(context.Background(), nil, GetSurfacesInput{}); err == nil {
		t.Fatalf("expected surfaces error")
	}
}
