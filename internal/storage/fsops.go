package storage

import (
	"errors"
	"fmt"
	"os"
)

// Directory permissions for created device/version directories.
const dirPerm = 0o750

// Sentinel errors for filesystem primitives.
var (
	// ErrSourceMissing is returned by MoveDir when the source directory
	// does not exist.
	ErrSourceMissing = errors.New("storage: move source does not exist")

	// ErrDestinationExists is returned by MoveDir when the destination
	// already exists. Renames never overwrite silently.
	ErrDestinationExists = errors.New("storage: move destination already exists")
)

// EnsureDir creates the directory if it does not exist yet.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, dirPerm); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}
	return nil
}

// MoveDir renames a directory, including all its contents, from src
// to dst.
//
// Both endpoints are checked first: a missing source fails with
// ErrSourceMissing, an existing destination with ErrDestinationExists.
// The rename itself is atomic on the same filesystem; the whole data
// root is assumed to live on one filesystem.
func MoveDir(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSourceMissing, src)
		}
		return fmt.Errorf("checking move source %s: %w", src, err)
	}

	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking move destination %s: %w", dst, err)
	}

	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to %s: %w", src, dst, err)
	}
	return nil
}
