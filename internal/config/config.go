package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Icon sizes supported by the desktop view.
var IconSizes = []int{48, 64, 96, 128}

// Click policies: how many primary clicks open an icon.
const (
	ClickSingle = "single"
	ClickDouble = "double"
)

// Metadata selects where icon anchors are persisted.
type Metadata struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path,omitempty"`
}

// StaticSurface describes a monitor when no display server is queried.
type StaticSurface struct {
	Name   string `yaml:"name,omitempty"`
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

type Config struct {
	DesktopDir        string          `yaml:"desktop_dir"`
	CellSize          int             `yaml:"cell_size"`
	IconSize          int             `yaml:"icon_size"`
	ShowHome          bool            `yaml:"show_home"`
	ShowTrash         bool            `yaml:"show_trash"`
	DebounceMS        int             `yaml:"debounce_ms"`
	DragThreshold     int             `yaml:"drag_threshold"`
	SearchLimit       int             `yaml:"search_limit"`
	ClickPolicy       string          `yaml:"click_policy"`
	Terminal          string          `yaml:"terminal"`
	Metadata          Metadata        `yaml:"metadata"`
	ScreenPadding     int             `yaml:"screen_padding"`
	Surfaces          []StaticSurface `yaml:"surfaces,omitempty"`
	PrimarySurface    int             `yaml:"primary_surface"`
	ReconcileInterval int             `yaml:"reconcile_interval_seconds"`
	LogLevel          string          `yaml:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		DesktopDir:        defaultDesktopDir(),
		CellSize:          130,
		IconSize:          64,
		ShowHome:          true,
		ShowTrash:         true,
		DebounceMS:        500,
		DragThreshold:     8,
		SearchLimit:       1000,
		ClickPolicy:       ClickDouble,
		Terminal:          "gnome-terminal",
		Metadata:          Metadata{Backend: "sqlite"},
		ReconcileInterval: 30,
		LogLevel:          "info",
	}
}

// defaultDesktopDir follows XDG_DESKTOP_DIR, falling back to ~/Desktop.
func defaultDesktopDir() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_DESKTOP_DIR")); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "Desktop"
	}
	return filepath.Join(home, "Desktop")
}

// ExpandPath resolves a leading ~ against the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DesktopDir) == "" {
		return &ValidationError{Path: "desktop_dir", Err: fmt.Errorf("must not be empty")}
	}
	if c.CellSize < 16 {
		return &ValidationError{Path: "cell_size", Err: fmt.Errorf("must be >= 16")}
	}
	if !validIconSize(c.IconSize) {
		return &ValidationError{Path: "icon_size", Err: fmt.Errorf("must be one of %v", IconSizes)}
	}
	if c.IconSize > c.CellSize {
		return &ValidationError{Path: "icon_size", Err: fmt.Errorf("must not exceed cell_size (%d)", c.CellSize)}
	}
	if c.DebounceMS < 0 {
		return &ValidationError{Path: "debounce_ms", Err: fmt.Errorf("must be >= 0")}
	}
	if c.DragThreshold < 0 {
		return &ValidationError{Path: "drag_threshold", Err: fmt.Errorf("must be >= 0")}
	}
	if c.SearchLimit < 1 {
		return &ValidationError{Path: "search_limit", Err: fmt.Errorf("must be >= 1")}
	}
	switch c.ClickPolicy {
	case ClickSingle, ClickDouble:
	default:
		return &ValidationError{Path: "click_policy", Err: fmt.Errorf("must be one of: single, double")}
	}
	if strings.TrimSpace(c.Terminal) == "" {
		return &ValidationError{Path: "terminal", Err: fmt.Errorf("must not be empty")}
	}
	switch c.Metadata.Backend {
	case "sqlite", "xattr", "memory":
	default:
		return &ValidationError{Path: "metadata.backend", Err: fmt.Errorf("must be one of: sqlite, xattr, memory")}
	}
	if c.ScreenPadding < 0 {
		return &ValidationError{Path: "screen_padding", Err: fmt.Errorf("must be >= 0")}
	}
	for i, s := range c.Surfaces {
		if s.Width <= 0 || s.Height <= 0 {
			return &ValidationError{Path: fmt.Sprintf("surfaces.%d", i), Err: fmt.Errorf("width and height must be > 0")}
		}
	}
	if c.PrimarySurface < 0 || (len(c.Surfaces) > 0 && c.PrimarySurface >= len(c.Surfaces)) {
		return &ValidationError{Path: "primary_surface", Err: fmt.Errorf("out of range")}
	}
	if c.ReconcileInterval < 0 {
		return &ValidationError{Path: "reconcile_interval_seconds", Err: fmt.Errorf("must be >= 0")}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("must be one of: debug, info, warn, error")}
	}
	return nil
}

func validIconSize(size int) bool {
	for _, s := range IconSizes {
		if s == size {
			return true
		}
	}
	return false
}

// Save writes the configuration to the standard location.
//
// Note: this marshals the effective config and will not preserve comments
// from the original YAML.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
