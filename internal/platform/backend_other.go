//go:build !linux

package platform

import (
	"context"
	"errors"

	"github.com/1broseidon/deskgrid/internal/geometry"
)

// LinuxBackend is unavailable on this platform.
type LinuxBackend struct{}

// NewLinuxBackend always fails outside Linux; configure static surfaces instead.
func NewLinuxBackend(int) (*LinuxBackend, error) {
	return nil, errors.New("X11 backend is only available on linux")
}

func (b *LinuxBackend) Surfaces() ([]geometry.Surface, int, error) {
	return nil, 0, errors.New("X11 backend is only available on linux")
}

func (b *LinuxBackend) WatchDisplays(func()) error { return nil }

func (b *LinuxBackend) Run(ctx context.Context) { <-ctx.Done() }

func (b *LinuxBackend) Close() {}
