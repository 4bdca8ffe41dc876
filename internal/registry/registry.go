package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/1broseidon/deskgrid/internal/geometry"
	"github.com/1broseidon/deskgrid/internal/metadata"
)

// EventKind classifies registry change notifications.
type EventKind int

const (
	EventAdded EventKind = iota
	EventRemoved
	EventRenamed
	EventChanged
)

// String returns the string representation of the event kind
func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	case EventRenamed:
		return "renamed"
	case EventChanged:
		return "changed"
	default:
		return "unknown"
	}
}

// Event is one change to the icon set. OldURI is only set for renames.
type Event struct {
	Kind   EventKind
	URI    string
	OldURI string
	Icon   *Icon
}

// Observer receives registry events on the goroutine that applied the change.
type Observer func(Event)

// Rename records a path change that kept the same underlying file.
type Rename struct {
	OldURI string
	NewURI string
}

// Diff summarises what a scan changed.
type Diff struct {
	Added   []*Icon
	Removed []*Icon
	Renamed []Rename
	Changed []*Icon
}

// Empty reports whether the scan changed nothing.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Renamed) == 0 && len(d.Changed) == 0
}

// Options selects what a scan enumerates.
type Options struct {
	Dir       string
	ShowHome  bool
	ShowTrash bool
	HomeDir   string
	TrashDir  string
}

type pendingWrite struct {
	cancel context.CancelFunc
	seq    uint64
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

// Registry is the authoritative set of desktop icons and their anchors.
type Registry struct {
	store metadata.Store

	mu         sync.Mutex
	opts       Options
	icons      map[string]*Icon
	order      []string
	clock      uint64
	scanGen    uint64
	scanClock  uint64
	scanCancel context.CancelFunc
	writeSeq   uint64
	writes     map[string]pendingWrite
	latest     map[string]uint64 // path -> newest write sequence
	pathLocks  map[string]*pathLock
	observers  []Observer

	writeWG sync.WaitGroup
}

// New creates an empty registry backed by store.
func New(opts Options, store metadata.Store) *Registry {
	if store == nil {
		store = metadata.NewMemoryStore()
	}
	return &Registry{
		store:     store,
		opts:      opts,
		icons:     make(map[string]*Icon),
		writes:    make(map[string]pendingWrite),
		latest:    make(map[string]uint64),
		pathLocks: make(map[string]*pathLock),
	}
}

// Subscribe registers an observer for scan-driven changes.
func (r *Registry) Subscribe(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// SetOptions replaces the scan options; the next scan uses them.
func (r *Registry) SetOptions(opts Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts = opts
}

// Options returns the current scan options.
func (r *Registry) Options() Options {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opts
}

// Scan re-reads the desktop and applies the result. Starting a scan cancels
// any scan still in flight; the superseded one returns context.Canceled and
// its results are dropped. A directory read error is logged and the directory
// is treated as empty.
func (r *Registry) Scan(ctx context.Context) (Diff, error) {
	scanCtx, gen := r.BeginScan(ctx)
	entries, err := r.Enumerate(scanCtx)
	if scanCtx.Err() != nil {
		return Diff{}, scanCtx.Err()
	}
	if err != nil {
		log.Printf("Error loading desktop files: %v", err)
	}
	diff, ok := r.Apply(gen, entries)
	if !ok {
		return Diff{}, context.Canceled
	}
	return diff, nil
}

// BeginScan cancels the previous scan and returns the context and generation
// for a new one.
func (r *Registry) BeginScan(parent context.Context) (context.Context, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.scanCancel != nil {
		r.scanCancel()
	}
	ctx, cancel := context.WithCancel(parent)
	r.scanCancel = cancel
	r.scanGen++
	r.scanClock = r.clock
	return ctx, r.scanGen
}

// Enumerate lists the desktop entries and reads their anchors. It does not
// touch registry state, so it may run off the event goroutine. On a directory
// error the synthetic entries are still returned alongside the error.
func (r *Registry) Enumerate(ctx context.Context) ([]*Icon, error) {
	opts := r.Options()

	var icons []*Icon
	if opts.ShowHome && opts.HomeDir != "" {
		icons = append(icons, &Icon{
			URI:     FileURI(opts.HomeDir),
			Path:    opts.HomeDir,
			Name:    "Home",
			IsDir:   true,
			Special: true,
			Kind:    KindHome,
		})
	}
	if opts.ShowTrash {
		icons = append(icons, &Icon{
			URI:     TrashURI,
			Path:    opts.TrashDir,
			Name:    "Trash",
			IsDir:   true,
			Special: true,
			Kind:    KindTrash,
		})
	}

	var dirErr error
	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		dirErr = fmt.Errorf("failed to read %s: %w", opts.Dir, err)
		entries = nil
	}

	for _, de := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := de.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// Vanished between readdir and stat.
			continue
		}
		path := filepath.Join(opts.Dir, name)
		dev, ino := fileID(info)
		icons = append(icons, &Icon{
			URI:   FileURI(path),
			Path:  path,
			Name:  name,
			IsDir: info.IsDir(),
			Kind:  KindFile,
			dev:   dev,
			ino:   ino,
		})
	}

	for _, icon := range icons {
		if icon.Path == "" {
			continue
		}
		value, ok, err := r.store.Get(ctx, icon.Path, metadata.PositionKey)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("Warning: failed to read position of %s: %v", icon.Path, err)
			continue
		}
		if !ok {
			continue
		}
		if p, ok := metadata.ParseAnchor(value); ok {
			icon.Anchor = &p
		}
	}

	return icons, dirErr
}

// Apply installs an enumeration result if gen is still the current scan.
// It reports false when the scan was superseded.
func (r *Registry) Apply(gen uint64, entries []*Icon) (Diff, bool) {
	r.mu.Lock()
	if gen != r.scanGen {
		r.mu.Unlock()
		return Diff{}, false
	}
	if r.scanCancel != nil {
		r.scanCancel()
		r.scanCancel = nil
	}

	var diff Diff
	var events []Event

	incoming := make(map[string]*Icon, len(entries))
	for _, e := range entries {
		incoming[e.URI] = e
	}

	// Existing icons whose URI disappeared, keyed by file identity for rename matching.
	gone := make(map[[2]uint64]*Icon)
	var removed []*Icon
	for _, uri := range r.order {
		if _, ok := incoming[uri]; ok {
			continue
		}
		icon := r.icons[uri]
		if icon.ino != 0 {
			gone[[2]uint64{icon.dev, icon.ino}] = icon
		}
		removed = append(removed, icon)
	}

	renamed := make(map[*Icon]bool)
	var added []*Icon
	for _, e := range entries {
		existing, ok := r.icons[e.URI]
		if ok {
			if r.refreshLocked(existing, e) {
				diff.Changed = append(diff.Changed, existing.Clone())
				events = append(events, Event{Kind: EventChanged, URI: existing.URI, Icon: existing.Clone()})
			}
			continue
		}
		if e.ino != 0 {
			if old, ok := gone[[2]uint64{e.dev, e.ino}]; ok {
				delete(gone, [2]uint64{e.dev, e.ino})
				renamed[old] = true
				oldURI := old.URI
				r.renameLocked(old, e)
				diff.Renamed = append(diff.Renamed, Rename{OldURI: oldURI, NewURI: old.URI})
				events = append(events, Event{Kind: EventRenamed, URI: old.URI, OldURI: oldURI, Icon: old.Clone()})
				continue
			}
		}
		added = append(added, e)
	}

	// Surviving and renamed icons keep their slot in the order.
	newOrder := make([]string, 0, len(entries))
	newIcons := make(map[string]*Icon, len(entries))
	for _, uri := range r.order {
		icon := r.icons[uri]
		if _, ok := incoming[uri]; ok || renamed[icon] {
			newOrder = append(newOrder, icon.URI)
			newIcons[icon.URI] = icon
		}
	}

	for _, icon := range removed {
		if renamed[icon] {
			continue
		}
		r.cancelWriteLocked(icon.URI)
		diff.Removed = append(diff.Removed, icon.Clone())
		events = append(events, Event{Kind: EventRemoved, URI: icon.URI, Icon: icon.Clone()})
	}

	for _, e := range added {
		newIcons[e.URI] = e
		newOrder = append(newOrder, e.URI)
		diff.Added = append(diff.Added, e.Clone())
		events = append(events, Event{Kind: EventAdded, URI: e.URI, Icon: e.Clone()})
	}

	r.icons = newIcons
	r.order = newOrder
	observers := append([]Observer(nil), r.observers...)
	r.mu.Unlock()

	for _, ev := range events {
		for _, o := range observers {
			o(ev)
		}
	}
	return diff, true
}

// refreshLocked copies scan data onto an existing icon. An anchor written
// through UpdateAnchor after the scan began wins over the value read from disk.
func (r *Registry) refreshLocked(existing, e *Icon) bool {
	changed := false
	if existing.Name != e.Name || existing.IsDir != e.IsDir {
		existing.Name = e.Name
		existing.IsDir = e.IsDir
		changed = true
	}
	existing.dev, existing.ino = e.dev, e.ino

	if existing.Version > r.scanClock {
		return changed
	}
	if !sameAnchor(existing.Anchor, e.Anchor) {
		existing.Anchor = e.Anchor
		changed = true
	}
	return changed
}

// renameLocked moves old onto the new path, keeping its anchor. Stores that
// implement metadata.Renamer carry the old record over; otherwise the anchor
// is saved again under the new path.
func (r *Registry) renameLocked(old, e *Icon) {
	r.cancelWriteLocked(old.URI)
	oldPath := old.Path
	old.URI = e.URI
	old.Path = e.Path
	old.Name = e.Name
	old.IsDir = e.IsDir
	old.dev, old.ino = e.dev, e.ino

	if renamer, ok := r.store.(metadata.Renamer); ok && oldPath != "" && old.Path != "" && oldPath != old.Path {
		newPath := old.Path
		var value string
		if old.Anchor != nil {
			value = metadata.FormatAnchor(*old.Anchor)
		}
		r.writeLocked(old.URI, newPath, oldPath, func(ctx context.Context) error {
			if err := renamer.Rename(ctx, oldPath, newPath); err != nil {
				return err
			}
			if value == "" {
				return nil
			}
			return r.store.Set(ctx, newPath, metadata.PositionKey, value)
		})
		if old.Anchor == nil {
			old.Anchor = e.Anchor
		}
		return
	}

	if old.Anchor == nil {
		old.Anchor = e.Anchor
		return
	}
	if !sameAnchor(old.Anchor, e.Anchor) {
		r.persistLocked(old, *old.Anchor)
	}
}

// UpdateAnchor sets the icon's anchor in memory and persists it in the
// background. A newer write for the same icon cancels the older one. Write
// failures are logged only; the in-memory value is kept.
func (r *Registry) UpdateAnchor(uri string, p geometry.ScreenPoint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	icon, ok := r.icons[uri]
	if !ok {
		return false
	}
	anchor := p
	icon.Anchor = &anchor
	r.clock++
	icon.Version = r.clock
	r.persistLocked(icon, p)
	return true
}

func (r *Registry) persistLocked(icon *Icon, p geometry.ScreenPoint) {
	if icon.Path == "" {
		return
	}
	path := icon.Path
	value := metadata.FormatAnchor(p)
	r.writeLocked(icon.URI, path, "", func(ctx context.Context) error {
		return r.store.Set(ctx, path, metadata.PositionKey, value)
	})
}

// writeLocked runs write in the background for the icon at path, replacing
// any pending write for uri. Writes to the same path run one at a time, and a
// write that is no longer the newest for its path is dropped before it starts.
// from names a second path to hold while writing, for renames.
func (r *Registry) writeLocked(uri, path, from string, write func(ctx context.Context) error) {
	r.cancelWriteLocked(uri)

	ctx, cancel := context.WithCancel(context.Background())
	r.writeSeq++
	seq := r.writeSeq
	r.writes[uri] = pendingWrite{cancel: cancel, seq: seq}
	r.latest[path] = seq

	r.writeWG.Add(1)
	go func() {
		defer r.writeWG.Done()
		defer cancel()

		unlock := r.lockPaths(path, from)
		r.mu.Lock()
		current := r.latest[path] == seq
		r.mu.Unlock()

		var err error
		if current && ctx.Err() == nil {
			err = write(ctx)
		}
		unlock()

		r.mu.Lock()
		if w, ok := r.writes[uri]; ok && w.seq == seq {
			delete(r.writes, uri)
		}
		if r.latest[path] == seq {
			delete(r.latest, path)
		}
		r.mu.Unlock()

		if err != nil && ctx.Err() == nil && !errors.Is(err, context.Canceled) {
			log.Printf("Error setting metadata to %s: %v", path, err)
		}
	}()
}

// lockPaths takes the write lock of every non-empty path, in sorted order, and
// returns the function releasing them.
func (r *Registry) lockPaths(paths ...string) func() {
	var keys []string
	for _, p := range paths {
		if p != "" && !slices.Contains(keys, p) {
			keys = append(keys, p)
		}
	}
	slices.Sort(keys)

	locks := make([]*pathLock, len(keys))
	r.mu.Lock()
	for i, k := range keys {
		l := r.pathLocks[k]
		if l == nil {
			l = &pathLock{}
			r.pathLocks[k] = l
		}
		l.refs++
		locks[i] = l
	}
	r.mu.Unlock()

	for _, l := range locks {
		l.mu.Lock()
	}
	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].mu.Unlock()
		}
		r.mu.Lock()
		for i, k := range keys {
			locks[i].refs--
			if locks[i].refs == 0 {
				delete(r.pathLocks, k)
			}
		}
		r.mu.Unlock()
	}
}

func (r *Registry) cancelWriteLocked(uri string) {
	if w, ok := r.writes[uri]; ok {
		w.cancel()
		delete(r.writes, uri)
	}
}

// Flush waits for every in-flight metadata write to finish.
func (r *Registry) Flush() {
	r.writeWG.Wait()
}

// Close cancels the running scan and pending writes and waits for them.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.scanCancel != nil {
		r.scanCancel()
		r.scanCancel = nil
	}
	for uri := range r.writes {
		r.cancelWriteLocked(uri)
	}
	r.mu.Unlock()
	r.writeWG.Wait()
}

// Get returns a copy of the icon with the given URI.
func (r *Registry) Get(uri string) (*Icon, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	icon, ok := r.icons[uri]
	if !ok {
		return nil, false
	}
	return icon.Clone(), true
}

// Icons returns copies of all icons in registry order.
func (r *Registry) Icons() []*Icon {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Icon, 0, len(r.order))
	for _, uri := range r.order {
		out = append(out, r.icons[uri].Clone())
	}
	return out
}

// Len returns the number of icons.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Names returns the set of file names currently registered for the desktop
// directory (synthetic entries excluded).
func (r *Registry) Names() map[string]struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]struct{}, len(r.order))
	for _, uri := range r.order {
		if icon := r.icons[uri]; icon.Kind == KindFile {
			out[filepath.Base(icon.Path)] = struct{}{}
		}
	}
	return out
}

func sameAnchor(a, b *geometry.ScreenPoint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
