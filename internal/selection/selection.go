// Package selection tracks selected desktop icons and drag gestures.
package selection

import (
	"sort"

	"github.com/1broseidon/deskgrid/internal/geometry"
)

// Modifier is a bitmask of keyboard modifiers held during a click.
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModCtrl
)

// None is the empty modifier set.
const None Modifier = 0

// Extends reports whether the modifiers add to the selection instead of
// replacing it.
func (m Modifier) Extends() bool {
	return m&(ModShift|ModCtrl) != 0
}

// Set is the set of selected icon URIs.
type Set struct {
	members map[string]struct{}
	last    string
	changes chan []string
}

// NewSet returns an empty selection.
func NewSet() *Set {
	return &Set{
		members: make(map[string]struct{}),
		changes: make(chan []string, 1),
	}
}

// Changes delivers the selection after every change. Pending values are
// replaced by newer ones when the receiver falls behind.
func (s *Set) Changes() <-chan []string {
	return s.changes
}

func (s *Set) notify() {
	uris := s.URIs()
	select {
	case s.changes <- uris:
		return
	default:
	}
	select {
	case <-s.changes:
	default:
	}
	select {
	case s.changes <- uris:
	default:
	}
}

// Press handles a primary-button press on uri. Pressing an icon that is
// already selected changes nothing, so the press can turn into a drag of the
// whole selection. It reports whether the selection changed.
func (s *Set) Press(uri string, mod Modifier) bool {
	if s.Contains(uri) {
		s.last = uri
		return false
	}
	if !mod.Extends() {
		s.members = make(map[string]struct{})
	}
	s.members[uri] = struct{}{}
	s.last = uri
	s.notify()
	return true
}

// Release handles the primary-button release. A plain release that did not
// turn into a drag collapses the selection to the pressed icon.
func (s *Set) Release(mod Modifier, dragged bool) bool {
	if dragged || mod.Extends() || s.last == "" {
		return false
	}
	if len(s.members) == 1 && s.Contains(s.last) {
		return false
	}
	s.members = map[string]struct{}{s.last: {}}
	s.notify()
	return true
}

// Click is a press immediately followed by a release without movement.
func (s *Set) Click(uri string, mod Modifier) {
	s.Press(uri, mod)
	s.Release(mod, false)
}

// ContextClick handles a secondary click. An empty uri clears the selection;
// an unselected icon becomes the only selection; a selected one keeps the
// current selection so the menu applies to all of it.
func (s *Set) ContextClick(uri string) {
	if uri == "" {
		s.Clear()
		return
	}
	if !s.Contains(uri) {
		s.Replace([]string{uri})
	}
}

// SelectRect replaces the selection with every icon whose bounds intersect r.
func (s *Set) SelectRect(r geometry.Rect, bounds map[string]geometry.Rect) []string {
	var hit []string
	for uri, b := range bounds {
		if b.Intersects(r) {
			hit = append(hit, uri)
		}
	}
	s.Replace(hit)
	return s.URIs()
}

// Replace sets the selection to exactly uris.
func (s *Set) Replace(uris []string) {
	s.members = make(map[string]struct{}, len(uris))
	s.last = ""
	for _, uri := range uris {
		s.members[uri] = struct{}{}
		s.last = uri
	}
	s.notify()
}

// Add extends the selection.
func (s *Set) Add(uris ...string) {
	for _, uri := range uris {
		s.members[uri] = struct{}{}
		s.last = uri
	}
	s.notify()
}

// Remove drops uris from the selection, for icons that disappeared.
func (s *Set) Remove(uris ...string) {
	changed := false
	for _, uri := range uris {
		if _, ok := s.members[uri]; ok {
			delete(s.members, uri)
			changed = true
		}
		if s.last == uri {
			s.last = ""
		}
	}
	if changed {
		s.notify()
	}
}

// Rename keeps a renamed icon selected under its new URI.
func (s *Set) Rename(oldURI, newURI string) {
	if _, ok := s.members[oldURI]; ok {
		delete(s.members, oldURI)
		s.members[newURI] = struct{}{}
	}
	if s.last == oldURI {
		s.last = newURI
	}
}

// Clear empties the selection.
func (s *Set) Clear() {
	if len(s.members) == 0 && s.last == "" {
		return
	}
	s.members = make(map[string]struct{})
	s.last = ""
	s.notify()
}

// Contains reports whether uri is selected.
func (s *Set) Contains(uri string) bool {
	_, ok := s.members[uri]
	return ok
}

// Len returns the number of selected icons.
func (s *Set) Len() int {
	return len(s.members)
}

// URIs returns the selection sorted.
func (s *Set) URIs() []string {
	out := make([]string, 0, len(s.members))
	for uri := range s.members {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}
