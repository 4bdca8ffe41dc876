package registry

import (
	"net/url"
	"path/filepath"

	"github.com/1broseidon/deskgrid/internal/geometry"
)

// Kind distinguishes file-backed icons from synthetic desktop entries.
type Kind string

const (
	KindFile  Kind = "file"
	KindHome  Kind = "home"
	KindTrash Kind = "trash"
)

// TrashURI identifies the synthetic trash entry.
const TrashURI = "trash:///"

// Icon is one desktop entry.
type Icon struct {
	URI     string
	Path    string
	Name    string
	IsDir   bool
	Special bool
	Kind    Kind
	// Anchor is the persisted screen position; nil means "never positioned".
	Anchor *geometry.ScreenPoint
	// Version increases on every anchor change made through the registry.
	Version uint64

	dev uint64
	ino uint64
}

// HasAnchor reports whether the icon carries a persisted position.
func (i *Icon) HasAnchor() bool {
	return i != nil && i.Anchor != nil
}

// Clone returns a deep copy safe to hand to other goroutines.
func (i *Icon) Clone() *Icon {
	if i == nil {
		return nil
	}
	c := *i
	if i.Anchor != nil {
		a := *i.Anchor
		c.Anchor = &a
	}
	return &c
}

// AcceptsDrops reports whether files may be moved into this icon.
func (i *Icon) AcceptsDrops() bool {
	return i != nil && i.IsDir && !i.Special
}

// FileURI returns the file:// URI for an absolute path.
func FileURI(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// PathFromURI returns the local path for a file:// URI.
func PathFromURI(uri string) (string, bool) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return "", false
	}
	return filepath.FromSlash(u.Path), true
}
