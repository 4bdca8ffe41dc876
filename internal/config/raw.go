package config

// RawMetadata mirrors Metadata with every field optional.
type RawMetadata struct {
	Backend *string `yaml:"backend"`
	Path    *string `yaml:"path"`
}

// RawConfig is the file as written; nil fields fall back to DefaultConfig.
type RawConfig struct {
	DesktopDir        *string         `yaml:"desktop_dir"`
	CellSize          *int            `yaml:"cell_size"`
	IconSize          *int            `yaml:"icon_size"`
	ShowHome          *bool           `yaml:"show_home"`
	ShowTrash         *bool           `yaml:"show_trash"`
	DebounceMS        *int            `yaml:"debounce_ms"`
	DragThreshold     *int            `yaml:"drag_threshold"`
	SearchLimit       *int            `yaml:"search_limit"`
	ClickPolicy       *string         `yaml:"click_policy"`
	Terminal          *string         `yaml:"terminal"`
	Metadata          *RawMetadata    `yaml:"metadata"`
	ScreenPadding     *int            `yaml:"screen_padding"`
	Surfaces          []StaticSurface `yaml:"surfaces"`
	PrimarySurface    *int            `yaml:"primary_surface"`
	ReconcileInterval *int            `yaml:"reconcile_interval_seconds"`
	LogLevel          *string         `yaml:"log_level"`
}
