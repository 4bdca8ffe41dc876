package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// XattrStore keeps attributes in the file's "user." extended attributes, so
// they travel with the file when it is moved on the same filesystem.
type XattrStore struct{}

// NewXattrStore returns an extended-attribute backed store.
func NewXattrStore() *XattrStore {
	return &XattrStore{}
}

// xattrName maps "metadata::foo-bar" to "user.metadata.foo-bar".
func xattrName(key string) string {
	return "user." + strings.ReplaceAll(key, "::", ".")
}

func (x *XattrStore) Get(ctx context.Context, path, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	name := xattrName(key)
	buf := make([]byte, 256)
	for {
		n, err := unix.Getxattr(path, name, buf)
		if errors.Is(err, unix.ENODATA) {
			return "", false, nil
		}
		if errors.Is(err, unix.ERANGE) {
			buf = make([]byte, len(buf)*4)
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("getxattr %s %s: %w", path, name, err)
		}
		return string(buf[:n]), true, nil
	}
}

func (x *XattrStore) Set(ctx context.Context, path, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := xattrName(key)
	if err := unix.Setxattr(path, name, []byte(value), 0); err != nil {
		return fmt.Errorf("setxattr %s %s: %w", path, name, err)
	}
	return nil
}

func (x *XattrStore) Close() error { return nil }
