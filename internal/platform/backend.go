package platform

import (
	"context"
	"sync"

	"github.com/1broseidon/deskgrid/internal/geometry"
)

// Backend supplies the monitor surfaces icons are placed on and reports when
// the display configuration changes.
type Backend interface {
	// Surfaces returns the usable area of every monitor and the index of the
	// primary one.
	Surfaces() ([]geometry.Surface, int, error)
	// WatchDisplays registers fn to run after every display change.
	WatchDisplays(fn func()) error
	// Run dispatches display events until ctx is cancelled.
	Run(ctx context.Context)
	Close()
}

// StaticBackend serves a fixed surface list, for headless sessions and tests.
type StaticBackend struct {
	mu       sync.Mutex
	surfaces []geometry.Surface
	primary  int
	watchers []func()
}

var _ Backend = (*StaticBackend)(nil)

// NewStaticBackend returns a backend with fixed surfaces.
func NewStaticBackend(surfaces []geometry.Surface, primary int) *StaticBackend {
	b := &StaticBackend{}
	b.surfaces, b.primary = reindex(surfaces, primary)
	return b
}

func reindex(surfaces []geometry.Surface, primary int) ([]geometry.Surface, int) {
	out := make([]geometry.Surface, len(surfaces))
	for i, s := range surfaces {
		s.Index = i
		out[i] = s
	}
	if primary < 0 || primary >= len(out) {
		primary = 0
	}
	return out, primary
}

func (b *StaticBackend) Surfaces() ([]geometry.Surface, int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]geometry.Surface(nil), b.surfaces...), b.primary, nil
}

func (b *StaticBackend) WatchDisplays(fn func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.watchers = append(b.watchers, fn)
	return nil
}

// SetSurfaces replaces the surface list and notifies watchers, simulating a
// display change.
func (b *StaticBackend) SetSurfaces(surfaces []geometry.Surface, primary int) {
	b.mu.Lock()
	b.surfaces, b.primary = reindex(surfaces, primary)
	watchers := append([]func(){}, b.watchers...)
	b.mu.Unlock()
	for _, fn := range watchers {
		fn()
	}
}

func (b *StaticBackend) Run(ctx context.Context) { <-ctx.Done() }

func (b *StaticBackend) Close() {}
