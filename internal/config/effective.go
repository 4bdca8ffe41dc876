package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig applies raw on top of DefaultConfig.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.DesktopDir != nil {
		cfg.DesktopDir = ExpandPath(strings.TrimSpace(*raw.DesktopDir))
	}
	if raw.CellSize != nil {
		cfg.CellSize = *raw.CellSize
	}
	if raw.IconSize != nil {
		cfg.IconSize = *raw.IconSize
	}
	if raw.ShowHome != nil {
		cfg.ShowHome = *raw.ShowHome
	}
	if raw.ShowTrash != nil {
		cfg.ShowTrash = *raw.ShowTrash
	}
	if raw.DebounceMS != nil {
		cfg.DebounceMS = *raw.DebounceMS
	}
	if raw.DragThreshold != nil {
		cfg.DragThreshold = *raw.DragThreshold
	}
	if raw.SearchLimit != nil {
		cfg.SearchLimit = *raw.SearchLimit
	}
	if raw.ClickPolicy != nil {
		cfg.ClickPolicy = strings.ToLower(strings.TrimSpace(*raw.ClickPolicy))
	}
	if raw.Terminal != nil {
		cfg.Terminal = strings.TrimSpace(*raw.Terminal)
	}
	if raw.Metadata != nil {
		if raw.Metadata.Backend != nil {
			cfg.Metadata.Backend = strings.ToLower(strings.TrimSpace(*raw.Metadata.Backend))
		}
		if raw.Metadata.Path != nil {
			cfg.Metadata.Path = ExpandPath(*raw.Metadata.Path)
		}
	}
	if raw.ScreenPadding != nil {
		cfg.ScreenPadding = *raw.ScreenPadding
	}
	if raw.Surfaces != nil {
		cfg.Surfaces = append([]StaticSurface(nil), raw.Surfaces...)
	}
	if raw.PrimarySurface != nil {
		cfg.PrimarySurface = *raw.PrimarySurface
	}
	if raw.ReconcileInterval != nil {
		cfg.ReconcileInterval = *raw.ReconcileInterval
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*raw.LogLevel))
	}

	return cfg, nil
}
