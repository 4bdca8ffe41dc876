package desktop

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/1broseidon/deskgrid/internal/clipboard"
	"github.com/1broseidon/deskgrid/internal/fileops"
	"github.com/1broseidon/deskgrid/internal/geometry"
	"github.com/1broseidon/deskgrid/internal/layout"
	"github.com/1broseidon/deskgrid/internal/registry"
	"github.com/1broseidon/deskgrid/internal/selection"
)

// DefaultFolderName is the base name used by NewFolder.
const DefaultFolderName = "New Folder"

// IconInfo describes one icon for listing.
type IconInfo struct {
	URI      string
	Name     string
	Kind     registry.Kind
	IsDir    bool
	Special  bool
	Anchor   *geometry.ScreenPoint
	Placed   bool
	Surface  int
	Cell     geometry.GridCell
	Point    geometry.ScreenPoint
	Selected bool
}

// Status summarises the session.
type Status struct {
	DesktopDir string
	Icons      int
	Placed     int
	Unplaced   []string
	Surfaces   int
	Primary    int
	CellSize   int
	Selected   int
	Layouts    uint64
	Scans      uint64
	Scanning   bool
	Dragging   bool
	Uptime     time.Duration
}

// Status reports counters and the last layout outcome.
func (d *Desktop) Status(ctx context.Context) (Status, error) {
	var st Status
	err := d.Do(ctx, func() {
		st = Status{
			DesktopDir: d.reg.Options().Dir,
			Icons:      d.reg.Len(),
			Placed:     d.lastReport.Placed,
			Unplaced:   append([]string(nil), d.lastReport.Unplaced...),
			Surfaces:   len(d.engine.Surfaces()),
			Primary:    d.engine.Primary(),
			CellSize:   d.engine.CellSize(),
			Selected:   d.sel.Len(),
			Layouts:    d.layouts,
			Scans:      d.scans,
			Scanning:   d.scanInFlight,
			Dragging:   d.drag != nil,
			Uptime:     time.Since(d.started),
		}
	})
	return st, err
}

// Surfaces returns the monitor surfaces in use.
func (d *Desktop) Surfaces(ctx context.Context) ([]geometry.Surface, int, error) {
	var surfaces []geometry.Surface
	var primary int
	err := d.Do(ctx, func() {
		surfaces = d.engine.Surfaces()
		primary = d.engine.Primary()
	})
	return surfaces, primary, err
}

// Icons lists every registered icon in registry order with its placement.
func (d *Desktop) Icons(ctx context.Context) ([]IconInfo, error) {
	var out []IconInfo
	err := d.Do(ctx, func() {
		for _, icon := range d.reg.Icons() {
			info := IconInfo{
				URI:      icon.URI,
				Name:     icon.Name,
				Kind:     icon.Kind,
				IsDir:    icon.IsDir,
				Special:  icon.Special,
				Anchor:   icon.Anchor,
				Selected: d.sel.Contains(icon.URI),
			}
			if p, ok := d.engine.Locate(icon.URI); ok {
				info.Placed = true
				info.Surface = p.Surface
				info.Cell = p.Cell
				info.Point = p.Point
			}
			out = append(out, info)
		}
	})
	return out, err
}

// Snapshot returns the placement of every placed icon.
func (d *Desktop) Snapshot(ctx context.Context) ([]layout.Placement, error) {
	var out []layout.Placement
	err := d.Do(ctx, func() { out = d.engine.Snapshot() })
	return out, err
}

// Press handles a primary-button press at p. Pressing an icon selects it;
// pressing empty space starts a rubber band.
func (d *Desktop) Press(ctx context.Context, p geometry.ScreenPoint, mod selection.Modifier) error {
	return d.Do(ctx, func() {
		d.drag = nil
		d.gesture.Press(p)
		uri, ok := d.engine.IconAt(p)
		if !ok {
			d.pressed = ""
			if !mod.Extends() {
				d.sel.Clear()
			}
			d.band.Begin(p)
			return
		}
		d.pressed = uri
		d.sel.Press(uri, mod)
	})
}

// Motion handles pointer movement with the primary button held.
func (d *Desktop) Motion(ctx context.Context, p geometry.ScreenPoint) error {
	return d.Do(ctx, func() {
		if d.band.Active() {
			d.band.Update(p, d.sel, d.engine.Bounds())
			return
		}
		if d.pressed == "" || !d.gesture.Motion(p) {
			return
		}
		d.drag = d.beginDrag(d.gesture.Origin(), d.sel.URIs())
	})
}

// ReleaseResult reports what a primary-button release did.
type ReleaseResult struct {
	layout.DropResult
	// Opened lists icons launched by the click.
	Opened []string
}

// Release handles the primary-button release at p. A drag in progress is
// dropped there. A click that did not drag opens the pressed icon on the
// first click under the single-click policy, or on the second click
// otherwise; clicks is the pointer's click count.
func (d *Desktop) Release(ctx context.Context, p geometry.ScreenPoint, mod selection.Modifier, clicks int) (ReleaseResult, error) {
	var result ReleaseResult
	err := d.Do(ctx, func() {
		dragged := d.gesture.Release()
		switch {
		case d.drag != nil:
			result.DropResult = d.drop(d.drag.Targets(p))
			d.drag = nil
		case d.band.Active():
			d.band.End()
		case d.pressed != "":
			if d.opensOnClick(mod, clicks) {
				result.Opened = []string{d.pressed}
				d.files.Open(result.Opened)
			}
			d.sel.Release(mod, dragged)
		}
		d.pressed = ""
	})
	return result, err
}

func (d *Desktop) opensOnClick(mod selection.Modifier, clicks int) bool {
	if d.settings.OpenOnSingleClick {
		return clicks == 1 && !mod.Extends()
	}
	return clicks == 2
}

// PointerState describes the gesture in progress.
type PointerState struct {
	Dragging bool
	Banding  bool
	Band     geometry.Rect
	Selected []string
}

// Pointer reports the current gesture and selection.
func (d *Desktop) Pointer(ctx context.Context) (PointerState, error) {
	var st PointerState
	err := d.Do(ctx, func() {
		st = PointerState{
			Dragging: d.drag != nil,
			Banding:  d.band.Active(),
			Selected: d.sel.URIs(),
		}
		if st.Banding {
			st.Band = d.band.Rect()
		}
	})
	return st, err
}

// CancelDrag abandons the current drag without moving anything.
func (d *Desktop) CancelDrag(ctx context.Context) error {
	return d.Do(ctx, func() {
		d.drag = nil
		d.gesture.Release()
		d.band.End()
		d.pressed = ""
	})
}

// ContextClick handles a secondary click at p.
func (d *Desktop) ContextClick(ctx context.Context, p geometry.ScreenPoint) ([]string, error) {
	var uris []string
	err := d.Do(ctx, func() {
		uri, _ := d.engine.IconAt(p)
		d.sel.ContextClick(uri)
		uris = d.sel.URIs()
	})
	return uris, err
}

// Select replaces the selection with uris, or adds them when add is set.
// Unknown URIs are ignored.
func (d *Desktop) Select(ctx context.Context, uris []string, add bool) ([]string, error) {
	var out []string
	err := d.Do(ctx, func() {
		known := d.known(uris)
		if add {
			d.sel.Add(known...)
		} else {
			d.sel.Replace(known)
		}
		out = d.sel.URIs()
	})
	return out, err
}

// SelectRect replaces the selection with the icons intersecting r.
func (d *Desktop) SelectRect(ctx context.Context, r geometry.Rect) ([]string, error) {
	var out []string
	err := d.Do(ctx, func() {
		out = d.sel.SelectRect(r, d.engine.Bounds())
		sort.Strings(out)
	})
	return out, err
}

// ClearSelection empties the selection.
func (d *Desktop) ClearSelection(ctx context.Context) error {
	return d.Do(ctx, d.sel.Clear)
}

// Move drops icons at explicit screen targets, as a drag would.
func (d *Desktop) Move(ctx context.Context, moves []layout.Move) (layout.DropResult, error) {
	var result layout.DropResult
	err := d.Do(ctx, func() { result = d.drop(moves) })
	return result, err
}

// DropGroup moves uris as a rigid group by the offset from start to end.
// Empty uris use the selection.
func (d *Desktop) DropGroup(ctx context.Context, uris []string, start, end geometry.ScreenPoint) (layout.DropResult, error) {
	var result layout.DropResult
	err := d.Do(ctx, func() {
		session := d.beginDrag(start, d.targets(uris))
		result = d.drop(session.Targets(end))
	})
	return result, err
}

func (d *Desktop) beginDrag(start geometry.ScreenPoint, uris []string) *selection.DragSession {
	anchors := make(map[string]geometry.ScreenPoint, len(uris))
	for _, uri := range uris {
		if p, ok := d.engine.Locate(uri); ok {
			anchors[uri] = p.Point
		}
	}
	return selection.NewDragSession(start, uris, anchors)
}

// drop places moves on the grid and commits the anchors of icons that moved.
func (d *Desktop) drop(moves []layout.Move) layout.DropResult {
	result := d.engine.Drop(moves)
	targets := make(map[string]geometry.ScreenPoint, len(moves))
	for _, m := range moves {
		targets[m.URI] = m.Target
	}
	for _, p := range result.Placed {
		d.reg.UpdateAnchor(p.URI, targets[p.URI])
	}
	if len(result.Failed) > 0 || len(result.Skipped) > 0 {
		d.logger.Warn("drop incomplete", "placed", len(result.Placed),
			"failed", len(result.Failed), "skipped", len(result.Skipped))
	}
	return result
}

// Copy puts uris (or the selection) on the clipboard for copying.
func (d *Desktop) Copy(ctx context.Context, uris []string) (int, error) {
	return d.toClipboard(ctx, clipboard.Copy, uris)
}

// Cut puts uris (or the selection) on the clipboard for moving.
func (d *Desktop) Cut(ctx context.Context, uris []string) (int, error) {
	return d.toClipboard(ctx, clipboard.Cut, uris)
}

func (d *Desktop) toClipboard(ctx context.Context, action clipboard.Action, uris []string) (int, error) {
	var files []string
	if err := d.Do(ctx, func() { files = d.fileTargets(uris) }); err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, nil
	}
	if err := d.clip.WriteText(clipboard.Serialize(action, files)); err != nil {
		return 0, fmt.Errorf("failed to write clipboard: %w", err)
	}
	return len(files), nil
}

// Paste copies or moves the clipboard's files into folder, or into the
// desktop directory when folder is empty. Clipboard text that is not a file
// list is ignored.
func (d *Desktop) Paste(ctx context.Context, folder string) (clipboard.Payload, error) {
	text, err := d.clip.ReadText()
	if err != nil {
		return clipboard.Payload{}, fmt.Errorf("failed to read clipboard: %w", err)
	}
	payload := clipboard.Parse(text)
	if !payload.Valid {
		return payload, nil
	}

	var dest string
	var derr error
	err = d.Do(ctx, func() {
		if folder == "" {
			dest = d.desktopURI()
			return
		}
		icon, ok := d.reg.Get(folder)
		if !ok || !icon.AcceptsDrops() {
			derr = fmt.Errorf("cannot paste into %s", folder)
			return
		}
		dest = icon.URI
	})
	if err != nil {
		return clipboard.Payload{}, err
	}
	if derr != nil {
		return clipboard.Payload{}, derr
	}

	if payload.IsCut {
		d.files.MoveURIs(payload.URIs, dest)
	} else {
		d.files.CopyURIs(payload.URIs, dest)
	}
	return payload, nil
}

// Trash moves uris (or the selected files) to the trash.
func (d *Desktop) Trash(ctx context.Context, uris []string) (int, error) {
	var files []string
	if err := d.Do(ctx, func() { files = d.fileTargets(uris) }); err != nil {
		return 0, err
	}
	if len(files) > 0 {
		d.files.Trash(files)
	}
	return len(files), nil
}

// EmptyTrash permanently deletes the trash contents.
func (d *Desktop) EmptyTrash(ctx context.Context) error {
	if err := d.Do(ctx, func() {}); err != nil {
		return err
	}
	d.files.EmptyTrash()
	return nil
}

// Open launches uris (or the selection) with their default handlers.
func (d *Desktop) Open(ctx context.Context, uris []string) (int, error) {
	var targets []string
	if err := d.Do(ctx, func() { targets = d.targets(uris) }); err != nil {
		return 0, err
	}
	if len(targets) > 0 {
		d.files.Open(targets)
	}
	return len(targets), nil
}

// ShowInFiles reveals uris (or the selection, or the desktop directory) in
// the file manager.
func (d *Desktop) ShowInFiles(ctx context.Context, uris []string) error {
	var targets []string
	if err := d.Do(ctx, func() {
		targets = d.targets(uris)
		if len(targets) == 0 {
			targets = []string{d.desktopURI()}
		}
	}); err != nil {
		return err
	}
	d.files.ShowItems(targets)
	return nil
}

// Properties opens the properties dialog for uris (or the selection).
func (d *Desktop) Properties(ctx context.Context, uris []string) (int, error) {
	var targets []string
	if err := d.Do(ctx, func() { targets = d.targets(uris) }); err != nil {
		return 0, err
	}
	if len(targets) > 0 {
		d.files.ShowItemProperties(targets)
	}
	return len(targets), nil
}

// OpenTerminal starts the configured terminal in the desktop directory.
func (d *Desktop) OpenTerminal(ctx context.Context) error {
	var command, dir string
	if err := d.Do(ctx, func() {
		command = d.settings.Terminal
		dir = d.reg.Options().Dir
	}); err != nil {
		return err
	}
	d.files.OpenTerminal(command, dir)
	return nil
}

// UndoStatus reports whether the file manager can undo or redo.
func (d *Desktop) UndoStatus(ctx context.Context) (fileops.UndoState, error) {
	return d.files.UndoStatus(ctx)
}

// Undo reverts the file manager's last operation.
func (d *Desktop) Undo(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.files.Undo()
	return nil
}

// Redo repeats the last undone operation.
func (d *Desktop) Redo(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.files.Redo()
	return nil
}

// NewFolder creates a folder in the desktop directory and returns its URI.
// An empty name uses DefaultFolderName; taken names get a numeric suffix.
func (d *Desktop) NewFolder(ctx context.Context, name string) (string, error) {
	if name == "" {
		name = DefaultFolderName
	}
	var uri string
	if err := d.Do(ctx, func() {
		uri = registry.FileURI(uniqueChild(d.reg.Options().Dir, name))
	}); err != nil {
		return "", err
	}
	d.files.CreateFolder(uri)
	return uri, nil
}

// targets resolves an explicit URI list, falling back to the selection.
// Unknown URIs are dropped.
func (d *Desktop) targets(uris []string) []string {
	if len(uris) == 0 {
		return d.sel.URIs()
	}
	return d.known(uris)
}

// fileTargets is targets without synthetic entries, which cannot be copied
// or trashed.
func (d *Desktop) fileTargets(uris []string) []string {
	var out []string
	for _, uri := range d.targets(uris) {
		if icon, ok := d.reg.Get(uri); ok && !icon.Special {
			out = append(out, uri)
		}
	}
	return out
}

func (d *Desktop) known(uris []string) []string {
	out := make([]string, 0, len(uris))
	seen := make(map[string]bool, len(uris))
	for _, uri := range uris {
		if seen[uri] {
			continue
		}
		seen[uri] = true
		if _, ok := d.reg.Get(uri); ok {
			out = append(out, uri)
		}
	}
	return out
}
