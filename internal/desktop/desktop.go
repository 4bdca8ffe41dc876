// Package desktop ties the icon registry, layout engine, selection and file
// operations into one session driven by a single event-loop goroutine.
package desktop

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/1broseidon/deskgrid/internal/clipboard"
	"github.com/1broseidon/deskgrid/internal/fileops"
	"github.com/1broseidon/deskgrid/internal/layout"
	"github.com/1broseidon/deskgrid/internal/platform"
	"github.com/1broseidon/deskgrid/internal/registry"
	"github.com/1broseidon/deskgrid/internal/selection"
	"github.com/1broseidon/deskgrid/internal/watcher"
)

// ErrClosed is returned by calls made after the session stopped.
var ErrClosed = errors.New("desktop session is not running")

// FileOps is the file manager surface the session drives.
type FileOps interface {
	CopyURIs(uris []string, destURI string)
	MoveURIs(uris []string, destURI string)
	Trash(uris []string)
	EmptyTrash()
	CreateFolder(uri string)
	Undo()
	Redo()
	ShowItems(uris []string)
	ShowItemProperties(uris []string)
	Open(uris []string)
	OpenTerminal(command, dir string)
	UndoStatus(ctx context.Context) (fileops.UndoState, error)
}

// Settings are the tunables that may change on reload.
type Settings struct {
	Registry      registry.Options
	CellSize      int
	SearchLimit   int
	DragThreshold int
	Debounce      time.Duration
	// Watch enables filesystem notifications on the desktop directory.
	Watch bool

	// OpenOnSingleClick opens icons on the first click instead of the second.
	OpenOnSingleClick bool
	// Terminal is the command line OpenTerminal runs.
	Terminal string
}

// Options wires a session to its collaborators.
type Options struct {
	Settings  Settings
	Registry  *registry.Registry
	Engine    *layout.Engine
	Backend   platform.Backend
	Clipboard clipboard.Provider
	Files     FileOps
	Logger    *slog.Logger
}

// Desktop is one running desktop session. Everything except the exported
// methods runs on the loop goroutine started by Run.
type Desktop struct {
	reg     *registry.Registry
	engine  *layout.Engine
	backend platform.Backend
	clip    clipboard.Provider
	files   FileOps
	logger  *slog.Logger

	settings Settings

	sel     *selection.Set
	gesture *selection.Gesture
	band    selection.RubberBand
	drag    *selection.DragSession
	pressed string

	tasks   chan func()
	mu      sync.Mutex
	running bool
	done    chan struct{}

	ctx          context.Context
	watchCancel  context.CancelFunc
	relayoutDue  bool
	layouts      uint64
	scans        uint64
	lastReport   layout.Report
	started      time.Time
	scanInFlight bool
}

// New creates a session. Nil collaborators get in-memory defaults.
func New(opts Options) *Desktop {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registry == nil {
		opts.Registry = registry.New(opts.Settings.Registry, nil)
	}
	if opts.Engine == nil {
		opts.Engine = layout.New(layout.Options{
			CellSize:    opts.Settings.CellSize,
			SearchLimit: opts.Settings.SearchLimit,
			Logger:      opts.Logger,
		})
	}
	if opts.Backend == nil {
		opts.Backend = platform.NewStaticBackend(nil, 0)
	}
	if opts.Clipboard == nil {
		opts.Clipboard = &clipboard.Memory{}
	}
	if opts.Files == nil {
		opts.Files = nopFiles{}
	}
	d := &Desktop{
		reg:      opts.Registry,
		engine:   opts.Engine,
		backend:  opts.Backend,
		clip:     opts.Clipboard,
		files:    opts.Files,
		logger:   opts.Logger,
		settings: opts.Settings,
		sel:      selection.NewSet(),
		gesture:  selection.NewGesture(opts.Settings.DragThreshold),
		tasks:    make(chan func(), 64),
		done:     make(chan struct{}),
	}
	d.reg.Subscribe(d.onRegistryEvent)
	return d
}

// Engine exposes the layout engine, for notification consumers.
func (d *Desktop) Engine() *layout.Engine {
	return d.engine
}

// Selection exposes the selection set, for notification consumers.
func (d *Desktop) Selection() *selection.Set {
	return d.sel
}

// Run starts the session and processes work until ctx is cancelled.
func (d *Desktop) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return errors.New("desktop session already running")
	}
	d.running = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		if d.watchCancel != nil {
			d.watchCancel()
		}
		d.reg.Close()
		close(d.done)
	}()

	d.ctx = ctx
	d.started = time.Now()

	if err := d.backend.WatchDisplays(func() { d.post(d.refreshSurfaces) }); err != nil {
		d.logger.Warn("display change notifications unavailable", "err", err)
	}
	go d.backend.Run(ctx)

	d.refreshSurfaces()
	d.startWatcher()
	d.rescan()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-d.tasks:
			d.runTask(fn)
		}
	}
}

// Done is closed after Run returns.
func (d *Desktop) Done() <-chan struct{} {
	return d.done
}

func (d *Desktop) runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("desktop task panicked", "panic", r)
		}
	}()
	fn()
}

// post queues fn for the loop without waiting. Work posted after the session
// stopped is dropped.
func (d *Desktop) post(fn func()) {
	select {
	case d.tasks <- fn:
	case <-d.done:
	}
}

// Do runs fn on the loop goroutine and waits for it.
func (d *Desktop) Do(ctx context.Context, fn func()) error {
	d.mu.Lock()
	running := d.running
	d.mu.Unlock()
	if !running {
		return ErrClosed
	}

	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}
	select {
	case d.tasks <- task:
	case <-d.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-d.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Desktop) refreshSurfaces() {
	surfaces, primary, err := d.backend.Surfaces()
	if err != nil {
		d.logger.Error("failed to read monitor surfaces", "err", err)
		return
	}
	d.engine.SetPrimary(primary)
	d.engine.SetSurfaces(surfaces)
	d.relayout()
}

func (d *Desktop) startWatcher() {
	if d.watchCancel != nil {
		d.watchCancel()
		d.watchCancel = nil
	}
	if !d.settings.Watch {
		return
	}
	dir := d.reg.Options().Dir
	w, err := watcher.New(dir, d.settings.Debounce)
	if err != nil {
		d.logger.Warn("desktop directory is not watched", "dir", dir, "err", err)
		return
	}
	ctx, cancel := context.WithCancel(d.ctx)
	d.watchCancel = cancel
	go func() {
		defer w.Close()
		_ = w.Run(ctx, func(batch []watcher.Event) {
			d.logger.Debug("desktop directory changed", "events", len(batch))
			d.post(d.rescan)
		})
	}()
}

// rescan starts an asynchronous enumeration; its result is applied on the
// loop unless a newer scan superseded it.
func (d *Desktop) rescan() {
	ctx, gen := d.reg.BeginScan(d.ctx)
	d.scans++
	d.scanInFlight = true
	go func() {
		entries, err := d.reg.Enumerate(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			d.logger.Error("Error loading desktop files", "err", err)
		}
		d.post(func() {
			diff, ok := d.reg.Apply(gen, entries)
			if !ok {
				return
			}
			d.scanInFlight = false
			if !diff.Empty() {
				d.logger.Info("desktop rescanned",
					"added", len(diff.Added), "removed", len(diff.Removed),
					"renamed", len(diff.Renamed), "changed", len(diff.Changed))
			}
			d.scheduleRelayout()
		})
	}()
}

// scheduleRelayout coalesces relayout requests queued before the loop gets
// to them into a single pass.
func (d *Desktop) scheduleRelayout() {
	if d.relayoutDue {
		return
	}
	d.relayoutDue = true
	go d.post(func() {
		d.relayoutDue = false
		d.relayout()
	})
}

func (d *Desktop) relayout() {
	d.lastReport = d.engine.Layout(d.reg.Icons())
	d.layouts++
}

func (d *Desktop) onRegistryEvent(ev registry.Event) {
	switch ev.Kind {
	case registry.EventRemoved:
		d.sel.Remove(ev.URI)
		d.engine.Remove(ev.URI)
	case registry.EventRenamed:
		d.sel.Rename(ev.OldURI, ev.URI)
		d.engine.Rename(ev.OldURI, ev.URI)
	}
}

// Reconfigure applies new settings on the loop and relayouts.
func (d *Desktop) Reconfigure(ctx context.Context, s Settings) error {
	return d.Do(ctx, func() {
		prev := d.settings
		d.settings = s
		d.gesture = selection.NewGesture(s.DragThreshold)
		d.reg.SetOptions(s.Registry)
		d.engine.Configure(s.CellSize, s.SearchLimit)
		if prev.Registry.Dir != s.Registry.Dir || prev.Watch != s.Watch || prev.Debounce != s.Debounce {
			d.startWatcher()
		}
		d.relayout()
		d.rescan()
	})
}

// Rescan re-reads the desktop directory.
func (d *Desktop) Rescan(ctx context.Context) error {
	return d.Do(ctx, d.rescan)
}

func (d *Desktop) desktopURI() string {
	return registry.FileURI(d.reg.Options().Dir)
}

// uniqueChild returns dir/name, suffixed with a counter while the name is taken.
func uniqueChild(dir, name string) string {
	path := filepath.Join(dir, name)
	for i := 2; ; i++ {
		if _, err := os.Lstat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(dir, name+" "+strconv.Itoa(i))
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
