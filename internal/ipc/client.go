package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/deskgrid/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}

	return &Client{
		socketPath: socketPath,
		timeout:    10 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// call sends command with an optional payload and decodes the reply into out
// when out is non-nil.
func (c *Client) call(command CommandType, payload interface{}, out interface{}) error {
	req := &Request{Command: command}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", command, err)
		}
		req.Payload = data
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", command, err)
	}
	return nil
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetSurfaces retrieves monitor surface information
func (c *Client) GetSurfaces() (*SurfacesData, error) {
	var data SurfacesData
	if err := c.call(CommandGetSurfaces, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ListIcons retrieves every icon and its placement.
func (c *Client) ListIcons() (*IconsData, error) {
	var data IconsData
	if err := c.call(CommandListIcons, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Rescan asks the daemon to re-read the desktop directory.
func (c *Client) Rescan() error {
	return c.call(CommandRescan, nil, nil)
}

// Select replaces (or extends) the selection and returns the result.
func (c *Client) Select(uris []string, add bool) ([]string, error) {
	var data SelectionData
	if err := c.call(CommandSelect, SelectPayload{URIs: uris, Add: add}, &data); err != nil {
		return nil, err
	}
	return data.URIs, nil
}

// SelectRect selects the icons intersecting a screen rectangle.
func (c *Client) SelectRect(x, y, width, height int) ([]string, error) {
	var data SelectionData
	if err := c.call(CommandSelectRect, SelectRectPayload{X: x, Y: y, Width: width, Height: height}, &data); err != nil {
		return nil, err
	}
	return data.URIs, nil
}

// MoveIcons drops icons at explicit screen positions.
func (c *Client) MoveIcons(moves []IconMove) (*DropData, error) {
	var data DropData
	if err := c.call(CommandMoveIcons, MoveIconsPayload{Moves: moves}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Drop moves icons (or the selection) by the offset from start to end.
func (c *Client) Drop(uris []string, start, end Point) (*DropData, error) {
	var data DropData
	if err := c.call(CommandDrop, DropPayload{URIs: uris, Start: start, End: end}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) count(command CommandType, uris []string) (int, error) {
	var data CountData
	if err := c.call(command, URIsPayload{URIs: uris}, &data); err != nil {
		return 0, err
	}
	return data.Count, nil
}

// Copy puts uris (or the selection) on the clipboard.
func (c *Client) Copy(uris []string) (int, error) {
	return c.count(CommandCopy, uris)
}

// Cut puts uris (or the selection) on the clipboard for moving.
func (c *Client) Cut(uris []string) (int, error) {
	return c.count(CommandCut, uris)
}

// Paste pastes the clipboard into folder, or the desktop when empty.
func (c *Client) Paste(folder string) (*PasteData, error) {
	var data PasteData
	if err := c.call(CommandPaste, PastePayload{Folder: folder}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Trash moves uris (or the selection) to the trash.
func (c *Client) Trash(uris []string) (int, error) {
	return c.count(CommandTrash, uris)
}

// Open launches uris (or the selection).
func (c *Client) Open(uris []string) (int, error) {
	return c.count(CommandOpen, uris)
}

// ShowInFiles reveals uris in the file manager.
func (c *Client) ShowInFiles(uris []string) error {
	return c.call(CommandShowInFiles, URIsPayload{URIs: uris}, nil)
}

// Properties opens the properties dialog for uris.
func (c *Client) Properties(uris []string) (int, error) {
	return c.count(CommandProperties, uris)
}

// Undo sends an UNDO command to the daemon.
func (c *Client) Undo() error {
	return c.call(CommandUndo, nil, nil)
}

// Redo sends a REDO command to the daemon.
func (c *Client) Redo() error {
	return c.call(CommandRedo, nil, nil)
}

// NewFolder creates a folder on the desktop and returns its URI.
func (c *Client) NewFolder(name string) (string, error) {
	var data NewFolderData
	if err := c.call(CommandNewFolder, NewFolderPayload{Name: name}, &data); err != nil {
		return "", err
	}
	return data.URI, nil
}

// OpenTerminal opens a terminal in the desktop directory.
func (c *Client) OpenTerminal() error {
	return c.call(CommandOpenTerminal, nil, nil)
}

func (c *Client) pointer(command CommandType, p PointerPayload) (*PointerData, error) {
	var data PointerData
	if err := c.call(command, p, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// PointerPress forwards a primary-button press.
func (c *Client) PointerPress(p PointerPayload) (*PointerData, error) {
	return c.pointer(CommandPointerPress, p)
}

// PointerMotion forwards pointer movement with the button held.
func (c *Client) PointerMotion(x, y int) (*PointerData, error) {
	return c.pointer(CommandPointerMotion, PointerPayload{X: x, Y: y})
}

// PointerRelease forwards the primary-button release; a drag in progress
// is dropped there.
func (c *Client) PointerRelease(p PointerPayload) (*PointerData, error) {
	return c.pointer(CommandPointerRelease, p)
}

// CancelDrag abandons the gesture in progress.
func (c *Client) CancelDrag() (*PointerData, error) {
	return c.pointer(CommandCancelDrag, PointerPayload{})
}

// ContextClick forwards a secondary click.
func (c *Client) ContextClick(x, y int) (*PointerData, error) {
	return c.pointer(CommandContextClick, PointerPayload{X: x, Y: y})
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
