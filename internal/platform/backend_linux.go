//go:build linux

package platform

import (
	"context"
	"fmt"
	"sort"

	"github.com/1broseidon/deskgrid/internal/geometry"
	"github.com/1broseidon/deskgrid/internal/x11"
)

// LinuxBackend reads monitor surfaces from X11 RandR and EWMH.
type LinuxBackend struct {
	conn    *x11.Connection
	padding int
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend opens a fresh X11 connection. padding shrinks every surface
// on all four sides.
func NewLinuxBackend(padding int) (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn, padding: padding}, nil
}

// Close closes the underlying X11 connection.
func (b *LinuxBackend) Close() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// Run starts the X11 event loop and stops it when ctx is cancelled.
func (b *LinuxBackend) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		b.conn.Quit()
	}()
	b.conn.EventLoop()
}

// WatchDisplays subscribes to RandR screen change notifications.
func (b *LinuxBackend) WatchDisplays(fn func()) error {
	return b.conn.WatchScreenChanges(fn)
}

// Surfaces returns the usable area of every active monitor ordered by
// position, left to right then top to bottom.
func (b *LinuxBackend) Surfaces() ([]geometry.Surface, int, error) {
	monitors, err := b.conn.UsableMonitors()
	if err != nil {
		return nil, 0, err
	}
	primaryID := monitors[b.conn.Primary(monitors)].ID

	sort.SliceStable(monitors, func(i, j int) bool {
		if monitors[i].X != monitors[j].X {
			return monitors[i].X < monitors[j].X
		}
		return monitors[i].Y < monitors[j].Y
	})

	surfaces := make([]geometry.Surface, 0, len(monitors))
	primary := 0
	for i, m := range monitors {
		if m.ID == primaryID {
			primary = i
		}
		surfaces = append(surfaces, Pad(geometry.Surface{
			Index:  i,
			Name:   m.Name,
			X:      m.X,
			Y:      m.Y,
			Width:  m.Width,
			Height: m.Height,
		}, b.padding))
	}
	return surfaces, primary, nil
}
