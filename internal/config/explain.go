package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	desktop_dir
//	cell_size
//	icon_size
//	metadata.backend
//	metadata.path
//	surfaces
//	reconcile_interval_seconds
//	log_level
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

// Paths lists every path accepted by Explain, in file order.
func Paths() []string {
	return []string{
		"desktop_dir",
		"cell_size",
		"icon_size",
		"show_home",
		"show_trash",
		"debounce_ms",
		"drag_threshold",
		"search_limit",
		"click_policy",
		"terminal",
		"metadata.backend",
		"metadata.path",
		"screen_padding",
		"surfaces",
		"primary_surface",
		"reconcile_interval_seconds",
		"log_level",
	}
}

func lookupValue(cfg *Config, path string) (any, error) {
	switch path {
	case "desktop_dir":
		return cfg.DesktopDir, nil
	case "cell_size":
		return cfg.CellSize, nil
	case "icon_size":
		return cfg.IconSize, nil
	case "show_home":
		return cfg.ShowHome, nil
	case "show_trash":
		return cfg.ShowTrash, nil
	case "debounce_ms":
		return cfg.DebounceMS, nil
	case "drag_threshold":
		return cfg.DragThreshold, nil
	case "search_limit":
		return cfg.SearchLimit, nil
	case "click_policy":
		return cfg.ClickPolicy, nil
	case "terminal":
		return cfg.Terminal, nil
	case "metadata":
		return cfg.Metadata, nil
	case "metadata.backend":
		return cfg.Metadata.Backend, nil
	case "metadata.path":
		return cfg.Metadata.Path, nil
	case "screen_padding":
		return cfg.ScreenPadding, nil
	case "surfaces":
		return cfg.Surfaces, nil
	case "primary_surface":
		return cfg.PrimarySurface, nil
	case "reconcile_interval_seconds":
		return cfg.ReconcileInterval, nil
	case "log_level":
		return cfg.LogLevel, nil
	}
	if strings.HasPrefix(path, "surfaces.") {
		var i int
		if _, err := fmt.Sscanf(strings.TrimPrefix(path, "surfaces."), "%d", &i); err == nil && i >= 0 && i < len(cfg.Surfaces) {
			return cfg.Surfaces[i], nil
		}
	}
	return nil, fmt.Errorf("unknown path: %s", path)
}

// FormatSource renders src the way `config print` shows it.
func FormatSource(src Source) string {
	switch src.Kind {
	case SourceFile:
		return fmt.Sprintf("%s:%d:%d", src.File, src.Line, src.Column)
	default:
		return string(src.Kind)
	}
}
