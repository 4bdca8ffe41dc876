package ipc

import (
	"encoding/json"
	"fmt"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload      CommandType = "RELOAD"
	CommandGetStatus   CommandType = "GET_STATUS"
	CommandGetSurfaces CommandType = "GET_SURFACES"
	CommandListIcons   CommandType = "LIST_ICONS"
	CommandRescan      CommandType = "RESCAN"
	CommandSelect      CommandType = "SELECT"
	CommandSelectRect  CommandType = "SELECT_RECT"
	CommandMoveIcons   CommandType = "MOVE_ICONS"
	CommandDrop        CommandType = "DROP"
	CommandCopy        CommandType = "COPY"
	CommandCut         CommandType = "CUT"
	CommandPaste       CommandType = "PASTE"
	CommandTrash       CommandType = "TRASH"
	CommandOpen        CommandType = "OPEN"
	CommandShowInFiles CommandType = "SHOW_IN_FILES"
	CommandProperties  CommandType = "PROPERTIES"
	CommandUndo        CommandType = "UNDO"
	CommandRedo        CommandType = "REDO"
	CommandNewFolder   CommandType = "NEW_FOLDER"

	CommandOpenTerminal CommandType = "OPEN_TERMINAL"

	// Pointer commands let a front-end forward raw button and motion events.
	CommandPointerPress   CommandType = "POINTER_PRESS"
	CommandPointerMotion  CommandType = "POINTER_MOTION"
	CommandPointerRelease CommandType = "POINTER_RELEASE"
	CommandCancelDrag     CommandType = "CANCEL_DRAG"
	CommandContextClick   CommandType = "CONTEXT_CLICK"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	DesktopDir    string   `json:"desktop_dir"`
	IconCount     int      `json:"icon_count"`
	PlacedCount   int      `json:"placed_count"`
	Unplaced      []string `json:"unplaced,omitempty"`
	SurfaceCount  int      `json:"surface_count"`
	CellSize      int      `json:"cell_size"`
	SelectedCount int      `json:"selected_count"`
	Layouts       uint64   `json:"layouts"`
	Scans         uint64   `json:"scans"`
	UndoStatus    string   `json:"undo_status"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	DaemonRunning bool     `json:"daemon_running"`
}

// SurfaceInfo represents one monitor surface
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

// SurfacesData represents the data returned by GET_SURFACES
type SurfacesData struct {
	CellSize int           `json:"cell_size"`
	Surfaces []SurfaceInfo `json:"surfaces"`
}

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// IconInfo is one entry of LIST_ICONS.
type IconInfo struct {
	URI      string `json:"uri"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	IsDir    bool   `json:"is_dir,omitempty"`
	Special  bool   `json:"special,omitempty"`
	Anchor   *Point `json:"anchor,omitempty"`
	Placed   bool   `json:"placed"`
	Surface  int    `json:"surface"`
	Col      int    `json:"col"`
	Row      int    `json:"row"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Selected bool   `json:"selected,omitempty"`
}

type IconsData struct {
	Icons []IconInfo `json:"icons"`
}

// URIsPayload names the icons a command applies to; empty means the selection.
type URIsPayload struct {
	URIs []string `json:"uris,omitempty"`
}

type SelectPayload struct {
	URIs []string `json:"uris"`
	Add  bool     `json:"add,omitempty"`
}

type SelectRectPayload struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type SelectionData struct {
	URIs []string `json:"uris"`
}

type IconMove struct {
	URI string `json:"uri"`
	X   int    `json:"x"`
	Y   int    `json:"y"`
}

type MoveIconsPayload struct {
	Moves []IconMove `json:"moves"`
}

// DropPayload moves icons as a group by the offset from Start to End.
type DropPayload struct {
	URIs  []string `json:"uris,omitempty"`
	Start Point    `json:"start"`
	End   Point    `json:"end"`
}

type PlacedIcon struct {
	URI     string `json:"uri"`
	Surface int    `json:"surface"`
	Col     int    `json:"col"`
	Row     int    `json:"row"`
}

type DropData struct {
	Placed  []PlacedIcon `json:"placed"`
	Unmoved []string     `json:"unmoved,omitempty"`
	Failed  []string     `json:"failed,omitempty"`
	Skipped []string     `json:"skipped,omitempty"`
}

type PastePayload struct {
	Folder string `json:"folder,omitempty"`
}

type PasteData struct {
	Valid bool     `json:"valid"`
	IsCut bool     `json:"is_cut"`
	URIs  []string `json:"uris,omitempty"`
}

type CountData struct {
	Count int `json:"count"`
}

type NewFolderPayload struct {
	Name string `json:"name,omitempty"`
}

type NewFolderData struct {
	URI string `json:"uri"`
}

// PointerPayload is one pointer event at screen position X,Y. Clicks is the
// click count of a release; zero counts as one.
type PointerPayload struct {
	X      int  `json:"x"`
	Y      int  `json:"y"`
	Shift  bool `json:"shift,omitempty"`
	Ctrl   bool `json:"ctrl,omitempty"`
	Clicks int  `json:"clicks,omitempty"`
}

type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PointerData is the gesture state after a pointer command. Drop and
// Opened are set by POINTER_RELEASE only.
type PointerData struct {
	Dragging bool      `json:"dragging"`
	Banding  bool      `json:"banding"`
	Band     *Rect     `json:"band,omitempty"`
	Selected []string  `json:"selected"`
	Drop     *DropData `json:"drop,omitempty"`
	Opened   []string  `json:"opened,omitempty"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
