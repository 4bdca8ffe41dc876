package mcp

// ListIconsInput is the input for the list_icons tool.
type ListIconsInput struct {
	PlacedOnly bool `json:"placed_only,omitempty" jsonschema:"When true, omit icons that found no free cell"`
}

// IconInfo describes one desktop icon and its grid cell.
type IconInfo struct {
	URI      string `json:"uri"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Placed   bool   `json:"placed"`
	Surface  int    `json:"surface"`
	Col      int    `json:"col"`
	Row      int    `json:"row"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Selected bool   `json:"selected,omitempty"`
}

// ListIconsOutput is the output for the list_icons tool.
type ListIconsOutput struct {
	Icons    []IconInfo `json:"icons"`
	Unplaced int        `json:"unplaced"`
}

// GetSurfacesInput is the input for the get_surfaces tool.
type GetSurfacesInput struct{}

// SurfaceInfo describes one monitor surface.
type SurfaceInfo struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Columns int    `json:"columns"`
	Rows    int    `json:"rows"`
	Primary bool   `json:"primary"`
}

// GetSurfacesOutput is the output for the get_surfaces tool.
type GetSurfacesOutput struct {
	CellSize int           `json:"cell_size"`
	Surfaces []SurfaceInfo `json:"surfaces"`
}

// IconMove places one icon at a screen point.
type IconMove struct {
	URI string `json:"uri" jsonschema:"required,Icon URI as reported by list_icons"`
	X   int    `json:"x" jsonschema:"required,Target x in root-window pixels"`
	Y   int    `json:"y" jsonschema:"required,Target y in root-window pixels"`
}

// MoveIconsInput is the input for the move_icons tool.
type MoveIconsInput struct {
	Moves []IconMove `json:"moves" jsonschema:"required,Icons to move; each lands in the cell under its point or the nearest free one"`
}

// PlacedIcon is where a moved icon landed.
type PlacedIcon struct {
	URI     string `json:"uri"`
	Surface int    `json:"surface"`
	Col     int    `json:"col"`
	Row     int    `json:"row"`
}

// MoveIconsOutput is the output for the move_icons tool.
type MoveIconsOutput struct {
	Placed  []PlacedIcon `json:"placed"`
	Unmoved []string     `json:"unmoved,omitempty"`
	Failed  []string     `json:"failed,omitempty"`
	Skipped []string     `json:"skipped,omitempty"`
}

// RescanInput is the input for the rescan tool.
type RescanInput struct{}

// RescanOutput is the output for the rescan tool.
type RescanOutput struct {
	Success bool `json:"success"`
}
