package fileops

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"sync"
	"testing"
)

type recordedCall struct {
	dest   string
	path   string
	method string
	args   []interface{}
}

type fakeCaller struct {
	mu    sync.Mutex
	calls []recordedCall
	err   error
	props map[string]interface{}
}

func (f *fakeCaller) Property(_ context.Context, dest, path, name string) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.props[dest+path+" "+name]
	if !ok {
		return nil, errors.New("no such property")
	}
	return v, nil
}

func (f *fakeCaller) Call(_ context.Context, dest, path, method string, args ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{dest, path, method, args})
	return f.err
}

type spawned struct {
	dir  string
	name string
	args []string
}

type fakeSpawner struct {
	mu   sync.Mutex
	runs []spawned
}

func (f *fakeSpawner) Spawn(dir, name string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, spawned{dir, name, args})
	return nil
}

type fakeLauncher struct {
	mu   sync.Mutex
	uris []string
}

func (f *fakeLauncher) Launch(_ context.Context, uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uris = append(f.uris, uri)
	return nil
}

func TestNautilusCalls(t *testing.T) {
	caller := &fakeCaller{}
	c := New(caller, &fakeLauncher{})

	uris := []string{"file:///a", "file:///b"}
	c.CopyURIs(uris, "file:///home/u/Desktop")
	c.Wait()
	c.Trash(uris)
	c.Wait()
	c.Undo()
	c.Wait()

	want := []recordedCall{
		{nautilusDest, nautilusPath, "org.gnome.Nautilus.FileOperations.CopyURIs", []interface{}{uris, "file:///home/u/Desktop"}},
		{nautilusDest, nautilusPath, "org.gnome.Nautilus.FileOperations.TrashFiles", []interface{}{uris}},
		{nautilusDest, nautilusPath, "org.gnome.Nautilus.FileOperations.Undo", nil},
	}
	if !reflect.DeepEqual(caller.calls, want) {
		t.Fatalf("calls = %+v\nwant %+v", caller.calls, want)
	}
}

func TestFileManagerCalls(t *testing.T) {
	caller := &fakeCaller{}
	c := New(caller, &fakeLauncher{})
	c.ShowItemProperties([]string{"file:///a"})
	c.Wait()

	if len(caller.calls) != 1 {
		t.Fatalf("expected one call, got %d", len(caller.calls))
	}
	got := caller.calls[0]
	if got.dest != fileManagerDest || got.method != "org.freedesktop.FileManager1.ShowItemProperties" {
		t.Fatalf("call = %+v", got)
	}
	if startup := got.args[1]; startup != "" {
		t.Fatalf("startup id = %v", startup)
	}
}

func TestErrorsAreSwallowed(t *testing.T) {
	caller := &fakeCaller{err: errors.New("no such service")}
	c := New(caller, &fakeLauncher{})
	c.MoveURIs([]string{"file:///a"}, "file:///dest")
	c.Wait()
	if len(caller.calls) != 1 {
		t.Fatalf("expected exactly one attempt, got %d", len(caller.calls))
	}
}

func TestOpenLaunchesEach(t *testing.T) {
	l := &fakeLauncher{}
	c := New(&fakeCaller{}, l)
	c.Open([]string{"file:///b", "file:///a"})
	c.Wait()

	sort.Strings(l.uris)
	if !reflect.DeepEqual(l.uris, []string{"file:///a", "file:///b"}) {
		t.Fatalf("launched %v", l.uris)
	}
}

func TestOpenTerminalInDirectory(t *testing.T) {
	sp := &fakeSpawner{}
	c := New(&fakeCaller{}, &fakeLauncher{})
	c.spawner = sp

	c.OpenTerminal("kitty --single-instance", "/home/u/Desktop")
	c.OpenTerminal("   ", "/home/u/Desktop")
	c.Wait()

	want := []spawned{{"/home/u/Desktop", "kitty", []string{"--single-instance", "--working-directory=/home/u/Desktop"}}}
	if !reflect.DeepEqual(sp.runs, want) {
		t.Fatalf("runs = %+v", sp.runs)
	}
}

func TestUndoStatus(t *testing.T) {
	key := nautilusDest + nautilusPath + " " + nautilusIface + ".UndoStatus"
	tests := []struct {
		value interface{}
		want  UndoState
		err   bool
	}{
		{int32(0), UndoNone, false},
		{int32(1), UndoAvailable, false},
		{uint32(2), RedoAvailable, false},
		{"redo", UndoNone, true},
	}
	for _, tt := range tests {
		c := New(&fakeCaller{props: map[string]interface{}{key: tt.value}}, &fakeLauncher{})
		got, err := c.UndoStatus(context.Background())
		if (err != nil) != tt.err || got != tt.want {
			t.Fatalf("UndoStatus(%v) = %v, %v", tt.value, got, err)
		}
	}

	c := New(&fakeCaller{err: errors.New("no bus")}, &fakeLauncher{})
	if _, err := c.UndoStatus(context.Background()); err == nil {
		t.Fatal("expected bus error")
	}
	if RedoAvailable.String() != "redo" || UndoNone.String() != "none" {
		t.Fatal("unexpected state names")
	}
}
