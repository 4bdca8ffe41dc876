package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/deskgrid/internal/clipboard"
	"github.com/1broseidon/deskgrid/internal/config"
	"github.com/1broseidon/deskgrid/internal/fileops"
	"github.com/1broseidon/deskgrid/internal/geometry"
	"github.com/1broseidon/deskgrid/internal/ipc"
	"github.com/1broseidon/deskgrid/internal/platform"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistryOptions(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", "")

	cfg := config.DefaultConfig()
	cfg.DesktopDir = "~/Schreibtisch"
	cfg.ShowTrash = false

	opts := RegistryOptions(cfg)
	if opts.Dir != filepath.Join(home, "Schreibtisch") {
		t.Fatalf("Dir = %q", opts.Dir)
	}
	if opts.HomeDir != home || !opts.ShowHome || opts.ShowTrash {
		t.Fatalf("opts = %+v", opts)
	}
	if opts.TrashDir != filepath.Join(home, ".local", "share", "Trash", "files") {
		t.Fatalf("TrashDir = %q", opts.TrashDir)
	}

	data := t.TempDir()
	t.Setenv("XDG_DATA_HOME", data)
	if got := RegistryOptions(cfg).TrashDir; got != filepath.Join(data, "Trash", "files") {
		t.Fatalf("TrashDir with XDG_DATA_HOME = %q", got)
	}
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DebounceMS = 250
	cfg.CellSize = 100
	cfg.IconSize = 48

	s := SettingsFromConfig(cfg)
	if s.Debounce != 250*time.Millisecond || s.CellSize != 100 || s.DragThreshold != 8 || s.SearchLimit != 1000 || !s.Watch {
		t.Fatalf("settings = %+v", s)
	}
	if s.OpenOnSingleClick || s.Terminal != "gnome-terminal" {
		t.Fatalf("click settings = %+v", s)
	}

	cfg.ClickPolicy = config.ClickSingle
	if !SettingsFromConfig(cfg).OpenOnSingleClick {
		t.Fatal("single click policy not applied")
	}
}

func TestStaticSurfacesPadAndName(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ScreenPadding = 10
	cfg.Surfaces = []config.StaticSurface{
		{Name: "left", Width: 1920, Height: 1080},
		{X: 1920, Width: 1280, Height: 1024},
	}

	got := StaticSurfaces(cfg)
	if len(got) != 2 {
		t.Fatalf("expected 2 surfaces, got %d", len(got))
	}
	if got[0].Name != "left" || got[0].X != 10 || got[0].Y != 10 || got[0].Width != 1900 || got[0].Height != 1060 {
		t.Fatalf("surface 0 = %+v", got[0])
	}
	if got[1].Name != "surface-1" || got[1].Index != 1 || got[1].X != 1930 {
		t.Fatalf("surface 1 = %+v", got[1])
	}
}

func TestNewLoggerLevels(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		level string
		debug bool
		info  bool
		warn  bool
	}{
		{"debug", true, true, true},
		{"info", false, true, true},
		{"INFO", false, true, true},
		{"warn", false, false, true},
		{"error", false, false, false},
		{"", false, true, true},
	}
	for _, tt := range tests {
		l := NewLogger(tt.level, io.Discard)
		if l.Enabled(ctx, slog.LevelDebug) != tt.debug ||
			l.Enabled(ctx, slog.LevelInfo) != tt.info ||
			l.Enabled(ctx, slog.LevelWarn) != tt.warn {
			t.Fatalf("level %q: unexpected enabled set", tt.level)
		}
	}
}

type fakeDrift struct {
	mu      sync.Mutex
	missing []string
	extra   []string
	calls   int
	err     error
}

func (f *fakeDrift) HandleDrift(_ context.Context, missing, extra []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sort.Strings(missing)
	sort.Strings(extra)
	f.missing, f.extra = missing, extra
	f.calls++
	return f.err
}

func namesOf(names ...string) NameLister {
	return func() map[string]struct{} {
		out := make(map[string]struct{}, len(names))
		for _, n := range names {
			out[n] = struct{}{}
		}
		return out
	}
}

func TestReconcileDetectsDrift(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "c.txt", ".hidden"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	h := &fakeDrift{}
	r := NewReconciler(ReconcilerConfig{Dir: func() string { return dir }, Logger: discardLogger()}, h, namesOf("a.txt", "b.txt"))
	if !r.ReconcileNow(context.Background()) {
		t.Fatalf("expected drift")
	}
	if !reflect.DeepEqual(h.missing, []string{"b.txt"}) || !reflect.DeepEqual(h.extra, []string{"c.txt"}) {
		t.Fatalf("missing=%v extra=%v", h.missing, h.extra)
	}
}

func TestReconcileInSync(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	h := &fakeDrift{}
	r := NewReconciler(ReconcilerConfig{Dir: func() string { return dir }, Logger: discardLogger()}, h, namesOf("a.txt"))
	if r.ReconcileNow(context.Background()) {
		t.Fatalf("unexpected drift")
	}
	if h.calls != 0 {
		t.Fatalf("handler called %d times", h.calls)
	}
}

func TestReconcileMissingDirAndHandlerError(t *testing.T) {
	h := &fakeDrift{err: errors.New("closed")}
	missing := filepath.Join(t.TempDir(), "gone")
	r := NewReconciler(ReconcilerConfig{Dir: func() string { return missing }, Logger: discardLogger()}, h, namesOf("a.txt"))
	if r.ReconcileNow(context.Background()) {
		t.Fatalf("unreadable directory must not count as drift")
	}

	dir := t.TempDir()
	r = NewReconciler(ReconcilerConfig{Dir: func() string { return dir }, Logger: discardLogger()}, h, namesOf("a.txt"))
	if !r.ReconcileNow(context.Background()) {
		t.Fatalf("expected drift")
	}
}

func TestReconcileRecoversPanic(t *testing.T) {
	h := &fakeDrift{}
	r := NewReconciler(ReconcilerConfig{Dir: func() string { return t.TempDir() }, Logger: discardLogger()}, h,
		func() map[string]struct{} { panic("boom") })
	if r.ReconcileNow(context.Background()) {
		t.Fatalf("panicking pass must report no drift")
	}
}

func writeConfig(t *testing.T, path, desktopDir string, cellSize int) {
	t.Helper()
	data := fmt.Sprintf(`desktop_dir: %s
cell_size: %d
show_home: false
show_trash: false
metadata:
  backend: memory
surfaces:
  - name: left
    width: 1040
    height: 780
reconcile_interval_seconds: 1
log_level: debug
`, desktopDir, cellSize)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestDaemonServesAndReloads(t *testing.T) {
	desk := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt"} {
		if err := os.WriteFile(filepath.Join(desk, name), nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, cfgPath, desk, 130)
	t.Setenv("DESKGRID_SOCKET", filepath.Join(t.TempDir(), "d.sock"))

	d, err := New(Options{
		ConfigPath: cfgPath,
		Clipboard:  &clipboard.Memory{},
		Files:      nopFiles{},
		LogOutput:  io.Discard,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	defer func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("daemon did not stop")
		}
	}()

	client := ipc.NewClient()
	eventually(t, func() bool {
		data, err := client.ListIcons()
		return err == nil && len(data.Icons) == 2
	})

	surfaces, err := client.GetSurfaces()
	if err != nil {
		t.Fatalf("GetSurfaces: %v", err)
	}
	if surfaces.CellSize != 130 || len(surfaces.Surfaces) != 1 || surfaces.Surfaces[0].Columns != 8 {
		t.Fatalf("surfaces = %+v", surfaces)
	}

	writeConfig(t, cfgPath, desk, 260)
	if err := client.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	eventually(t, func() bool {
		s, err := client.GetSurfaces()
		return err == nil && s.CellSize == 260 && s.Surfaces[0].Columns == 4
	})
	if got := d.Config().CellSize; got != 260 {
		t.Fatalf("config cell size = %d", got)
	}

	if err := os.WriteFile(filepath.Join(desk, "c.txt"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	eventually(t, func() bool {
		data, err := client.ListIcons()
		return err == nil && len(data.Icons) == 3
	})
}

func TestNewFallsBackToDefaults(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("cell_size: [\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("DESKGRID_SOCKET", filepath.Join(t.TempDir(), "d.sock"))
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	d, err := New(Options{
		ConfigPath: cfgPath,
		Backend:    staticBackend(),
		Clipboard:  &clipboard.Memory{},
		Files:      nopFiles{},
		LogOutput:  io.Discard,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.store.Close()
	if got := d.Config().CellSize; got != config.DefaultConfig().CellSize {
		t.Fatalf("cell size = %d, want default", got)
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

type nopFiles struct{}

func (nopFiles) CopyURIs([]string, string)   {}
func (nopFiles) MoveURIs([]string, string)   {}
func (nopFiles) Trash([]string)              {}
func (nopFiles) EmptyTrash()                 {}
func (nopFiles) CreateFolder(string)         {}
func (nopFiles) Undo()                       {}
func (nopFiles) Redo()                       {}
func (nopFiles) ShowItems([]string)          {}
func (nopFiles) ShowItemProperties([]string) {}
func (nopFiles) Open([]string)               {}
func (nopFiles) OpenTerminal(string, string) {}

func (nopFiles) UndoStatus(context.Context) (fileops.UndoState, error) {
	return fileops.UndoNone, nil
}

func staticBackend() *platform.StaticBackend {
	return platform.NewStaticBackend([]geometry.Surface{{Name: "eDP-1", Width: 1024, Height: 768}}, 0)
}
