package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/deskgrid/internal/config"
	"github.com/1broseidon/deskgrid/internal/desktop"
	"github.com/1broseidon/deskgrid/internal/geometry"
	"github.com/1broseidon/deskgrid/internal/layout"
	"github.com/1broseidon/deskgrid/internal/runtimepath"
	"github.com/1broseidon/deskgrid/internal/selection"
)

// requestTimeout bounds how long one command may wait on the desktop loop.
const requestTimeout = 5 * time.Second

// undoStatusTimeout bounds the file manager query made for GET_STATUS.
const undoStatusTimeout = time.Second

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	cfg          *config.Config
	cfgMu        sync.RWMutex
	desk         *desktop.Desktop
	loadConfig   func() (*config.Config, error)
	startTime    time.Time
	reloadChan   chan struct{}
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(cfg *config.Config, desk *desktop.Desktop, reloadChan chan struct{}) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		cfg:        cfg,
		desk:       desk,
		loadConfig: config.Load,
		startTime:  time.Now(),
		reloadChan: reloadChan,
	}, nil
}

// SetConfigLoader overrides how RELOAD reads the configuration.
func (s *Server) SetConfigLoader(fn func() (*config.Config, error)) {
	s.loadConfig = fn
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

func (s *Server) handleCommand(req *Request) *Response {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus(ctx)
	case CommandGetSurfaces:
		return s.handleGetSurfaces(ctx)
	case CommandListIcons:
		return s.handleListIcons(ctx)
	case CommandRescan:
		return okOrError(s.desk.Rescan(ctx), "rescan")
	case CommandSelect:
		return s.handleSelect(ctx, req.Payload)
	case CommandSelectRect:
		return s.handleSelectRect(ctx, req.Payload)
	case CommandMoveIcons:
		return s.handleMoveIcons(ctx, req.Payload)
	case CommandDrop:
		return s.handleDrop(ctx, req.Payload)
	case CommandCopy:
		return s.handleCount(ctx, req.Payload, "copy", s.desk.Copy)
	case CommandCut:
		return s.handleCount(ctx, req.Payload, "cut", s.desk.Cut)
	case CommandPaste:
		return s.handlePaste(ctx, req.Payload)
	case CommandTrash:
		return s.handleCount(ctx, req.Payload, "trash", s.desk.Trash)
	case CommandOpen:
		return s.handleCount(ctx, req.Payload, "open", s.desk.Open)
	case CommandShowInFiles:
		var p URIsPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(err.Error())
		}
		return okOrError(s.desk.ShowInFiles(ctx, p.URIs), "show in files")
	case CommandProperties:
		return s.handleCount(ctx, req.Payload, "show properties", s.desk.Properties)
	case CommandUndo:
		return okOrError(s.desk.Undo(ctx), "undo")
	case CommandRedo:
		return okOrError(s.desk.Redo(ctx), "redo")
	case CommandNewFolder:
		return s.handleNewFolder(ctx, req.Payload)
	case CommandOpenTerminal:
		return okOrError(s.desk.OpenTerminal(ctx), "open terminal")
	case CommandPointerPress, CommandPointerMotion, CommandPointerRelease, CommandCancelDrag, CommandContextClick:
		return s.handlePointer(ctx, req.Command, req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// decodePayload unmarshals an optional payload.
func decodePayload(payload json.RawMessage, out interface{}) error {
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("Invalid payload: %v", err)
	}
	return nil
}

func okOrError(err error, what string) *Response {
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to %s: %v", what, err))
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func okData(data interface{}) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func (s *Server) handleReload() *Response {
	log.Println("IPC: Received RELOAD command")

	newCfg, err := s.loadConfig()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}

	s.cfgMu.Lock()
	s.cfg = newCfg
	s.cfgMu.Unlock()

	// Notify the main daemon via channel (non-blocking)
	select {
	case s.reloadChan <- struct{}{}:
	default:
	}

	log.Println("IPC: Config reloaded successfully")

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleGetStatus(ctx context.Context) *Response {
	st, err := s.desk.Status(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to get status: %v", err))
	}
	return okData(StatusData{
		DesktopDir:    st.DesktopDir,
		IconCount:     st.Icons,
		PlacedCount:   st.Placed,
		Unplaced:      st.Unplaced,
		SurfaceCount:  st.Surfaces,
		CellSize:      st.CellSize,
		SelectedCount: st.Selected,
		Layouts:       st.Layouts,
		Scans:         st.Scans,
		UndoStatus:    s.undoStatus(ctx),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		DaemonRunning: true,
	})
}

// undoStatus asks the file manager, reporting "unknown" when it does not
// answer.
func (s *Server) undoStatus(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, undoStatusTimeout)
	defer cancel()
	state, err := s.desk.UndoStatus(ctx)
	if err != nil {
		return "unknown"
	}
	return state.String()
}

func (s *Server) handleGetSurfaces(ctx context.Context) *Response {
	surfaces, primary, err := s.desk.Surfaces(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to get surfaces: %v", err))
	}
	st, err := s.desk.Status(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to get surfaces: %v", err))
	}

	data := SurfacesData{CellSize: st.CellSize, Surfaces: make([]SurfaceInfo, len(surfaces))}
	for i, sf := range surfaces {
		data.Surfaces[i] = SurfaceInfo{
			ID:      i,
			Name:    sf.Name,
			X:       sf.X,
			Y:       sf.Y,
			Width:   sf.Width,
			Height:  sf.Height,
			Columns: geometry.Columns(sf, st.CellSize),
			Rows:    geometry.Rows(sf, st.CellSize),
			Primary: i == primary,
		}
	}
	return okData(data)
}

func (s *Server) handleListIcons(ctx context.Context) *Response {
	icons, err := s.desk.Icons(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to list icons: %v", err))
	}
	data := IconsData{Icons: make([]IconInfo, 0, len(icons))}
	for _, icon := range icons {
		info := IconInfo{
			URI:      icon.URI,
			Name:     icon.Name,
			Kind:     string(icon.Kind),
			IsDir:    icon.IsDir,
			Special:  icon.Special,
			Placed:   icon.Placed,
			Surface:  icon.Surface,
			Col:      icon.Cell.Col,
			Row:      icon.Cell.Row,
			X:        icon.Point.X,
			Y:        icon.Point.Y,
			Selected: icon.Selected,
		}
		if icon.Anchor != nil {
			info.Anchor = &Point{X: icon.Anchor.X, Y: icon.Anchor.Y}
		}
		data.Icons = append(data.Icons, info)
	}
	return okData(data)
}

func (s *Server) handleSelect(ctx context.Context, payload json.RawMessage) *Response {
	var p SelectPayload
	if err := decodePayload(payload, &p); err != nil {
		return NewErrorResponse(err.Error())
	}
	uris, err := s.desk.Select(ctx, p.URIs, p.Add)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to select: %v", err))
	}
	return okData(SelectionData{URIs: uris})
}

func (s *Server) handleSelectRect(ctx context.Context, payload json.RawMessage) *Response {
	var p SelectRectPayload
	if err := decodePayload(payload, &p); err != nil {
		return NewErrorResponse(err.Error())
	}
	uris, err := s.desk.SelectRect(ctx, geometry.Rect{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height})
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to select: %v", err))
	}
	return okData(SelectionData{URIs: uris})
}

func (s *Server) handleMoveIcons(ctx context.Context, payload json.RawMessage) *Response {
	var p MoveIconsPayload
	if err := decodePayload(payload, &p); err != nil {
		return NewErrorResponse(err.Error())
	}
	if len(p.Moves) == 0 {
		return NewErrorResponse("moves is required")
	}
	moves := make([]layout.Move, len(p.Moves))
	for i, m := range p.Moves {
		moves[i] = layout.Move{URI: m.URI, Target: geometry.ScreenPoint{X: m.X, Y: m.Y}}
	}
	res, err := s.desk.Move(ctx, moves)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to move icons: %v", err))
	}
	return okData(dropData(res))
}

func (s *Server) handleDrop(ctx context.Context, payload json.RawMessage) *Response {
	var p DropPayload
	if err := decodePayload(payload, &p); err != nil {
		return NewErrorResponse(err.Error())
	}
	res, err := s.desk.DropGroup(ctx, p.URIs,
		geometry.ScreenPoint{X: p.Start.X, Y: p.Start.Y},
		geometry.ScreenPoint{X: p.End.X, Y: p.End.Y})
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to drop icons: %v", err))
	}
	return okData(dropData(res))
}

func dropData(res layout.DropResult) DropData {
	data := DropData{
		Placed:  make([]PlacedIcon, 0, len(res.Placed)),
		Unmoved: res.Unmoved,
		Failed:  res.Failed,
		Skipped: res.Skipped,
	}
	for _, p := range res.Placed {
		data.Placed = append(data.Placed, PlacedIcon{URI: p.URI, Surface: p.Surface, Col: p.Cell.Col, Row: p.Cell.Row})
	}
	return data
}

func (s *Server) handlePointer(ctx context.Context, command CommandType, payload json.RawMessage) *Response {
	var p PointerPayload
	if err := decodePayload(payload, &p); err != nil {
		return NewErrorResponse(err.Error())
	}
	at := geometry.ScreenPoint{X: p.X, Y: p.Y}
	var mod selection.Modifier
	if p.Shift {
		mod |= selection.ModShift
	}
	if p.Ctrl {
		mod |= selection.ModCtrl
	}

	var data PointerData
	var err error
	switch command {
	case CommandPointerPress:
		err = s.desk.Press(ctx, at, mod)
	case CommandPointerMotion:
		err = s.desk.Motion(ctx, at)
	case CommandPointerRelease:
		clicks := p.Clicks
		if clicks <= 0 {
			clicks = 1
		}
		var res desktop.ReleaseResult
		res, err = s.desk.Release(ctx, at, mod, clicks)
		if len(res.Placed)+len(res.Unmoved)+len(res.Failed)+len(res.Skipped) > 0 {
			drop := dropData(res.DropResult)
			data.Drop = &drop
		}
		data.Opened = res.Opened
	case CommandCancelDrag:
		err = s.desk.CancelDrag(ctx)
	case CommandContextClick:
		_, err = s.desk.ContextClick(ctx, at)
	}
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to handle %s: %v", command, err))
	}

	st, err := s.desk.Pointer(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to handle %s: %v", command, err))
	}
	data.Dragging = st.Dragging
	data.Banding = st.Banding
	data.Selected = st.Selected
	if st.Banding {
		data.Band = &Rect{X: st.Band.X, Y: st.Band.Y, Width: st.Band.Width, Height: st.Band.Height}
	}
	return okData(data)
}

func (s *Server) handleCount(ctx context.Context, payload json.RawMessage, what string, fn func(context.Context, []string) (int, error)) *Response {
	var p URIsPayload
	if err := decodePayload(payload, &p); err != nil {
		return NewErrorResponse(err.Error())
	}
	n, err := fn(ctx, p.URIs)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to %s: %v", what, err))
	}
	return okData(CountData{Count: n})
}

func (s *Server) handlePaste(ctx context.Context, payload json.RawMessage) *Response {
	var p PastePayload
	if err := decodePayload(payload, &p); err != nil {
		return NewErrorResponse(err.Error())
	}
	res, err := s.desk.Paste(ctx, p.Folder)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to paste: %v", err))
	}
	return okData(PasteData{Valid: res.Valid, IsCut: res.IsCut, URIs: res.URIs})
}

func (s *Server) handleNewFolder(ctx context.Context, payload json.RawMessage) *Response {
	var p NewFolderPayload
	if err := decodePayload(payload, &p); err != nil {
		return NewErrorResponse(err.Error())
	}
	uri, err := s.desk.NewFolder(ctx, p.Name)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to create folder: %v", err))
	}
	return okData(NewFolderData{URI: uri})
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}

// GetConfig returns the current config (thread-safe)
func (s *Server) GetConfig() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// UpdateConfig updates the config (thread-safe)
func (s *Server) UpdateConfig(cfg *config.Config) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.cfg = cfg
}
