// Package watcher turns filesystem notifications on the desktop directory
// into debounced refresh requests.
package watcher

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the delay between the first change of a burst and the
// refresh it triggers.
const DefaultDebounce = 500 * time.Millisecond

// Kind classifies a change.
type Kind int

const (
	Created Kind = iota
	Deleted
	Renamed
	Changed
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	case Renamed:
		return "renamed"
	case Changed:
		return "changed"
	default:
		return "unknown"
	}
}

// Event is one relevant change inside the watched directory.
type Event struct {
	Kind Kind
	Path string
}

// Classify maps an fsnotify event onto a Kind. Attribute-only changes and
// hidden files are ignored, which also keeps our own metadata writes from
// triggering refreshes.
func Classify(ev fsnotify.Event) (Event, bool) {
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return Event{}, false
	}
	switch {
	case ev.Has(fsnotify.Create):
		return Event{Kind: Created, Path: ev.Name}, true
	case ev.Has(fsnotify.Remove):
		return Event{Kind: Deleted, Path: ev.Name}, true
	case ev.Has(fsnotify.Rename):
		return Event{Kind: Renamed, Path: ev.Name}, true
	case ev.Has(fsnotify.Write):
		return Event{Kind: Changed, Path: ev.Name}, true
	default:
		return Event{}, false
	}
}

// Debouncer collects events and calls fn once per burst. The first event
// arms a timer; events arriving while it is armed join the pending batch
// without rescheduling it.
type Debouncer struct {
	delay time.Duration
	fn    func([]Event)

	mu      sync.Mutex
	timer   *time.Timer
	pending []Event
}

// NewDebouncer creates a debouncer. delay <= 0 uses DefaultDebounce.
func NewDebouncer(delay time.Duration, fn func([]Event)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay, fn: fn}
}

// Add records ev and arms the timer if it is not already running.
func (d *Debouncer) Add(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, ev)
	if d.timer != nil {
		return
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	batch := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()
	if len(batch) > 0 {
		d.fn(batch)
	}
}

// Stop cancels a pending refresh.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}

// Watcher watches one directory.
type Watcher struct {
	dir      string
	fsw      *fsnotify.Watcher
	debounce time.Duration
}

// New starts watching dir.
func New(dir string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &Watcher{dir: dir, fsw: fsw, debounce: debounce}, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run delivers debounced batches to fn until ctx is cancelled or the watcher
// is closed.
func (w *Watcher) Run(ctx context.Context, fn func([]Event)) error {
	deb := NewDebouncer(w.debounce, fn)
	defer deb.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if e, ok := Classify(ev); ok {
				deb.Add(e)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("Watcher error on %s: %v", w.dir, err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
