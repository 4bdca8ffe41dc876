// Package mcp exposes the running deskgrid daemon to MCP clients.
package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/deskgrid/internal/ipc"
)

const (
	ServerName    = "deskgrid"
	ServerVersion = "0.1.0"
)

// Daemon is the part of the IPC client the tools call.
type Daemon interface {
	ListIcons() (*ipc.IconsData, error)
	GetSurfaces() (*ipc.SurfacesData, error)
	MoveIcons(moves []ipc.IconMove) (*ipc.DropData, error)
	Rescan() error
}

// Server is the MCP server for deskgrid.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
}

// NewServer creates an MCP server talking to daemon. A nil daemon uses the
// IPC socket.
func NewServer(daemon Daemon) *Server {
	if daemon == nil {
		daemon = ipc.NewClient()
	}
	s := &Server{daemon: daemon}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_icons",
		Description: "List every desktop icon with its grid cell, screen position and selection state.",
	}, s.handleListIcons)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_surfaces",
		Description: "List the monitor surfaces icons are placed on, with grid dimensions and the primary surface.",
	}, s.handleGetSurfaces)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_icons",
		Description: "Move icons to screen points. Each icon lands in the cell under its point; occupied cells are routed around to the nearest free cell. The new positions persist.",
	}, s.handleMoveIcons)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "rescan",
		Description: "Re-read the desktop directory and lay out any added or removed icons.",
	}, s.handleRescan)
}

func (s *Server) handleListIcons(_ context.Context, _ *mcpsdk.CallToolRequest, args ListIconsInput) (*mcpsdk.CallToolResult, ListIconsOutput, error) {
	data, err := s.daemon.ListIcons()
	if err != nil {
		return nil, ListIconsOutput{}, fmt.Errorf("failed to list icons: %w", err)
	}

	out := ListIconsOutput{Icons: make([]IconInfo, 0, len(data.Icons))}
	for _, icon := range data.Icons {
		if !icon.Placed {
			out.Unplaced++
			if args.PlacedOnly {
				continue
			}
		}
		out.Icons = append(out.Icons, IconInfo{
			URI:      icon.URI,
			Name:     icon.Name,
			Kind:     icon.Kind,
			Placed:   icon.Placed,
			Surface:  icon.Surface,
			Col:      icon.Col,
			Row:      icon.Row,
			X:        icon.X,
			Y:        icon.Y,
			Selected: icon.Selected,
		})
	}
	return nil, out, nil
}

func (s *Server) handleGetSurfaces(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetSurfacesInput) (*mcpsdk.CallToolResult, GetSurfacesOutput, error) {
	data, err := s.daemon.GetSurfaces()
	if err != nil {
		return nil, GetSurfacesOutput{}, fmt.Errorf("failed to get surfaces: %w", err)
	}

	out := GetSurfacesOutput{CellSize: data.CellSize, Surfaces: make([]SurfaceInfo, len(data.Surfaces))}
	for i, sf := range data.Surfaces {
		out.Surfaces[i] = SurfaceInfo(sf)
	}
	return nil, out, nil
}

func (s *Server) handleMoveIcons(_ context.Context, _ *mcpsdk.CallToolRequest, args MoveIconsInput) (*mcpsdk.CallToolResult, MoveIconsOutput, error) {
	if len(args.Moves) == 0 {
		return nil, MoveIconsOutput{}, fmt.Errorf("moves is required")
	}

	moves := make([]ipc.IconMove, len(args.Moves))
	for i, m := range args.Moves {
		if m.URI == "" {
			return nil, MoveIconsOutput{}, fmt.Errorf("moves[%d]: uri is required", i)
		}
		moves[i] = ipc.IconMove{URI: m.URI, X: m.X, Y: m.Y}
	}

	data, err := s.daemon.MoveIcons(moves)
	if err != nil {
		return nil, MoveIconsOutput{}, fmt.Errorf("failed to move icons: %w", err)
	}

	out := MoveIconsOutput{
		Placed:  make([]PlacedIcon, len(data.Placed)),
		Unmoved: data.Unmoved,
		Failed:  data.Failed,
		Skipped: data.Skipped,
	}
	for i, p := range data.Placed {
		out.Placed[i] = PlacedIcon(p)
	}
	return nil, out, nil
}

func (s *Server) handleRescan(_ context.Context, _ *mcpsdk.CallToolRequest, _ RescanInput) (*mcpsdk.CallToolResult, RescanOutput, error) {
	if err := s.daemon.Rescan(); err != nil {
		return nil, RescanOutput{}, fmt.Errorf("failed to rescan: %w", err)
	}
	return nil, RescanOutput{Success: true}, nil
}
