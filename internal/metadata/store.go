package metadata

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/1broseidon/deskgrid/internal/geometry"
)

// PositionKey is the attribute holding an icon's persisted anchor. It matches
// the key the file manager uses, so positions survive switching tools.
const PositionKey = "metadata::nautilus-icon-position"

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendXattr  = "xattr"
	BackendMemory = "memory"
)

// Store is a string-keyed attribute store attached to files.
type Store interface {
	Get(ctx context.Context, path, key string) (string, bool, error)
	Set(ctx context.Context, path, key, value string) error
	Close() error
}

// Renamer is implemented by stores keyed by path that must follow a file
// when it is renamed. Extended attributes move with the file on their own.
type Renamer interface {
	Rename(ctx context.Context, oldPath, newPath string) error
}

// Open returns the store for backend. dbPath is only used by the sqlite backend.
func Open(backend, dbPath string) (Store, error) {
	switch backend {
	case "", BackendSQLite:
		s, err := OpenSQLite(dbPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendXattr:
		return NewXattrStore(), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown metadata backend %q", backend)
	}
}

// ParseAnchor parses an "x,y" anchor value. Malformed values report false.
func ParseAnchor(value string) (geometry.ScreenPoint, bool) {
	parts := strings.Split(strings.TrimSpace(value), ",")
	if len(parts) != 2 {
		return geometry.ScreenPoint{}, false
	}
	x, err := parseCoord(parts[0])
	if err != nil {
		return geometry.ScreenPoint{}, false
	}
	y, err := parseCoord(parts[1])
	if err != nil {
		return geometry.ScreenPoint{}, false
	}
	return geometry.ScreenPoint{X: x, Y: y}, true
}

// FormatAnchor renders p in the "x,y" form read by ParseAnchor.
func FormatAnchor(p geometry.ScreenPoint) string {
	return strconv.Itoa(p.X) + "," + strconv.Itoa(p.Y)
}

// Older writers stored fractional pixels; round them.
func parseCoord(s string) (int, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return int(f - 0.5), nil
	}
	return int(f + 0.5), nil
}

// MemoryStore keeps attributes in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	attrs map[string]map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attrs: make(map[string]map[string]string)}
}

func (m *MemoryStore) Get(ctx context.Context, path, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.attrs[path][key]
	return v, ok, nil
}

func (m *MemoryStore) Set(ctx context.Context, path, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attrs[path] == nil {
		m.attrs[path] = make(map[string]string)
	}
	m.attrs[path][key] = value
	return nil
}

func (m *MemoryStore) Close() error { return nil }
