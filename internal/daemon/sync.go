package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/1broseidon/deskgrid/internal/config"
	"github.com/1broseidon/deskgrid/internal/desktop"
	"github.com/1broseidon/deskgrid/internal/geometry"
	"github.com/1broseidon/deskgrid/internal/platform"
	"github.com/1broseidon/deskgrid/internal/registry"
)

// RegistryOptions derives scan options from the configuration.
func RegistryOptions(cfg *config.Config) registry.Options {
	home, _ := os.UserHomeDir()
	return registry.Options{
		Dir:       config.ExpandPath(cfg.DesktopDir),
		ShowHome:  cfg.ShowHome,
		ShowTrash: cfg.ShowTrash,
		HomeDir:   home,
		TrashDir:  trashDir(home),
	}
}

// trashDir is the user's XDG trash, $XDG_DATA_HOME/Trash/files.
func trashDir(home string) string {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "Trash", "files")
	}
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".local", "share", "Trash", "files")
}

// SettingsFromConfig converts the reloadable part of the configuration.
func SettingsFromConfig(cfg *config.Config) desktop.Settings {
	return desktop.Settings{
		Registry:          RegistryOptions(cfg),
		CellSize:          cfg.CellSize,
		SearchLimit:       cfg.SearchLimit,
		DragThreshold:     cfg.DragThreshold,
		Debounce:          time.Duration(cfg.DebounceMS) * time.Millisecond,
		Watch:             true,
		OpenOnSingleClick: cfg.ClickPolicy == config.ClickSingle,
		Terminal:          cfg.Terminal,
	}
}

// StaticSurfaces converts configured surfaces, applying screen padding.
func StaticSurfaces(cfg *config.Config) []geometry.Surface {
	out := make([]geometry.Surface, 0, len(cfg.Surfaces))
	for i, s := range cfg.Surfaces {
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("surface-%d", i)
		}
		out = append(out, platform.Pad(geometry.Surface{
			Index:  i,
			Name:   name,
			X:      s.X,
			Y:      s.Y,
			Width:  s.Width,
			Height: s.Height,
		}, cfg.ScreenPadding))
	}
	return out
}

// NewBackend picks the display backend: configured surfaces when present,
// otherwise the X11 monitors.
func NewBackend(cfg *config.Config) (platform.Backend, error) {
	if len(cfg.Surfaces) > 0 {
		return platform.NewStaticBackend(StaticSurfaces(cfg), cfg.PrimarySurface), nil
	}
	return platform.NewLinuxBackend(cfg.ScreenPadding)
}

// StateSynchronizer pushes configuration and filesystem state into a running
// desktop session.
type StateSynchronizer struct {
	desk    *desktop.Desktop
	backend platform.Backend
	logger  *slog.Logger
}

// NewStateSynchronizer creates a synchronizer for desk.
func NewStateSynchronizer(desk *desktop.Desktop, backend platform.Backend, logger *slog.Logger) *StateSynchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateSynchronizer{desk: desk, backend: backend, logger: logger}
}

// ApplyConfig reconfigures the session from cfg. Static surfaces are replaced
// when the backend serves them; X11 surfaces follow the display server.
func (s *StateSynchronizer) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	if static, ok := s.backend.(*platform.StaticBackend); ok && len(cfg.Surfaces) > 0 {
		static.SetSurfaces(StaticSurfaces(cfg), cfg.PrimarySurface)
	}
	if err := s.desk.Reconfigure(ctx, SettingsFromConfig(cfg)); err != nil {
		return fmt.Errorf("failed to apply config: %w", err)
	}
	s.logger.Info("config applied",
		"desktop_dir", cfg.DesktopDir,
		"cell_size", cfg.CellSize,
		"metadata", cfg.Metadata.Backend)
	return nil
}

// HandleDrift logs names that disagree between the registry and the
// directory and requests a rescan.
func (s *StateSynchronizer) HandleDrift(ctx context.Context, missing, extra []string) error {
	sort.Strings(missing)
	sort.Strings(extra)
	s.logger.Info("desktop drift detected", "missing", missing, "untracked", extra)
	return s.desk.Rescan(ctx)
}
