// Package fileops forwards file operations to the desktop's file manager over
// the session bus. Every operation is fire-and-forget: it returns
// immediately, runs in the background and only logs failures. UndoStatus is
// the one synchronous query.
package fileops

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	nautilusDest  = "org.gnome.Nautilus"
	nautilusPath  = "/org/gnome/Nautilus"
	nautilusIface = "org.gnome.Nautilus.FileOperations"

	fileManagerDest  = "org.freedesktop.FileManager1"
	fileManagerPath  = "/org/freedesktop/FileManager1"
	fileManagerIface = "org.freedesktop.FileManager1"
)

// callTimeout bounds a single bus call.
const callTimeout = 25 * time.Second

// UndoState is the file manager's undo availability, as published in the
// UndoStatus property.
type UndoState int32

const (
	UndoNone UndoState = iota
	UndoAvailable
	RedoAvailable
)

func (s UndoState) String() string {
	switch s {
	case UndoAvailable:
		return "undo"
	case RedoAvailable:
		return "redo"
	default:
		return "none"
	}
}

// Caller performs one method call on a bus object, or reads one property.
type Caller interface {
	Call(ctx context.Context, dest, path, method string, args ...interface{}) error
	Property(ctx context.Context, dest, path, name string) (interface{}, error)
}

// Launcher opens a URI with the user's default handler.
type Launcher interface {
	Launch(ctx context.Context, uri string) error
}

// Spawner starts a long-lived program without waiting for it.
type Spawner interface {
	Spawn(dir, name string, args ...string) error
}

// Client issues file operations.
type Client struct {
	caller   Caller
	launcher Launcher
	spawner  Spawner
	wg       sync.WaitGroup
}

// New creates a client. Nil arguments select the session bus and xdg-open.
func New(caller Caller, launcher Launcher) *Client {
	if caller == nil {
		caller = &SessionBus{}
	}
	if launcher == nil {
		launcher = XDGOpen{}
	}
	return &Client{caller: caller, launcher: launcher, spawner: Exec{}}
}

func (c *Client) fire(what string, fn func(ctx context.Context) error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("Error %s: %v", what, err)
		}
	}()
}

func (c *Client) nautilus(what, method string, args ...interface{}) {
	c.fire(what, func(ctx context.Context) error {
		return c.caller.Call(ctx, nautilusDest, nautilusPath, nautilusIface+"."+method, args...)
	})
}

func (c *Client) fileManager(what, method string, args ...interface{}) {
	c.fire(what, func(ctx context.Context) error {
		return c.caller.Call(ctx, fileManagerDest, fileManagerPath, fileManagerIface+"."+method, args...)
	})
}

// CopyURIs copies uris into the directory destURI.
func (c *Client) CopyURIs(uris []string, destURI string) {
	c.nautilus("copying files", "CopyURIs", uris, destURI)
}

// MoveURIs moves uris into the directory destURI.
func (c *Client) MoveURIs(uris []string, destURI string) {
	c.nautilus("moving files", "MoveURIs", uris, destURI)
}

// Trash moves uris to the trash.
func (c *Client) Trash(uris []string) {
	c.nautilus("trashing files", "TrashFiles", uris)
}

// EmptyTrash permanently deletes the trash contents.
func (c *Client) EmptyTrash() {
	c.nautilus("emptying trash", "EmptyTrash")
}

// CreateFolder creates the directory at uri.
func (c *Client) CreateFolder(uri string) {
	c.nautilus("creating new folder", "CreateFolder", uri)
}

// Undo reverts the file manager's last operation.
func (c *Client) Undo() {
	c.nautilus("performing undo", "Undo")
}

// Redo repeats the last undone operation.
func (c *Client) Redo() {
	c.nautilus("performing redo", "Redo")
}

// ShowItems reveals uris in a file manager window.
func (c *Client) ShowItems(uris []string) {
	c.fileManager("showing items in files", "ShowItems", uris, "")
}

// ShowItemProperties opens the properties dialog for uris.
func (c *Client) ShowItemProperties(uris []string) {
	c.fileManager("showing properties", "ShowItemProperties", uris, "")
}

// Open launches each uri with its default handler.
func (c *Client) Open(uris []string) {
	for _, uri := range uris {
		uri := uri
		c.fire("opening "+uri, func(ctx context.Context) error {
			return c.launcher.Launch(ctx, uri)
		})
	}
}

// OpenTerminal starts the terminal command line in dir, passing it as
// --working-directory.
func (c *Client) OpenTerminal(command, dir string) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		log.Printf("Error opening terminal: no terminal command configured")
		return
	}
	args := append(fields[1:], "--working-directory="+dir)
	c.fire("opening terminal", func(context.Context) error {
		return c.spawner.Spawn(dir, fields[0], args...)
	})
}

// UndoStatus reads whether the file manager can undo or redo. It blocks for
// at most one bus round trip.
func (c *Client) UndoStatus(ctx context.Context) (UndoState, error) {
	v, err := c.caller.Property(ctx, nautilusDest, nautilusPath, nautilusIface+".UndoStatus")
	if err != nil {
		return UndoNone, err
	}
	switch n := v.(type) {
	case int32:
		return UndoState(n), nil
	case uint32:
		return UndoState(n), nil
	case int:
		return UndoState(n), nil
	default:
		return UndoNone, fmt.Errorf("unexpected UndoStatus type %T", v)
	}
}

// Wait blocks until all issued operations have finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

// SessionBus calls methods on the user's session bus, connecting lazily.
type SessionBus struct {
	mu   sync.Mutex
	conn *dbus.Conn
}

func (s *SessionBus) connect() (*dbus.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil && s.conn.Connected() {
		return s.conn, nil
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	s.conn = conn
	return conn, nil
}

func (s *SessionBus) Call(ctx context.Context, dest, path, method string, args ...interface{}) error {
	conn, err := s.connect()
	if err != nil {
		return err
	}
	call := conn.Object(dest, dbus.ObjectPath(path)).CallWithContext(ctx, method, 0, args...)
	if call.Err != nil {
		return fmt.Errorf("%s: %w", method, call.Err)
	}
	return nil
}

// Property reads name (interface.property) through org.freedesktop.DBus.Properties.
func (s *SessionBus) Property(ctx context.Context, dest, path, name string) (interface{}, error) {
	conn, err := s.connect()
	if err != nil {
		return nil, err
	}
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return nil, fmt.Errorf("property %q has no interface", name)
	}
	var v dbus.Variant
	err = conn.Object(dest, dbus.ObjectPath(path)).
		CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", dbus.FlagNoAutoStart, name[:i], name[i+1:]).
		Store(&v)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	return v.Value(), nil
}

// Close releases the bus connection.
func (s *SessionBus) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// XDGOpen launches URIs through xdg-open.
type XDGOpen struct{}

func (XDGOpen) Launch(ctx context.Context, uri string) error {
	cmd := exec.CommandContext(ctx, "xdg-open", uri)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("xdg-open %s: %w", uri, err)
	}
	return nil
}

// Exec starts programs as children of the daemon and reaps them on exit.
type Exec struct{}

func (Exec) Spawn(dir, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	go cmd.Wait()
	return nil
}
