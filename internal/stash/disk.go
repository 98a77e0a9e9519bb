package stash

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Disk keeps uploaded images in a local directory.
type Disk struct {
	dir string
}

// NewDisk creates the upload directory when missing and returns a disk stash.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{dir: dir}, nil
}

// Store writes the upload under a generated name and returns its path.
func (d *Disk) Store(ctx context.Context, r io.Reader, size int64, originalName, contentType string) (string, error) {
	name := generateName(originalName)
	target := filepath.Join(d.dir, name)

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create stashed file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("write stashed file: %w", err)
	}
	return target, nil
}

// Open returns a reader over a stored file.
func (d *Disk) Open(ctx context.Context, storedPath string) (io.ReadCloser, error) {
	f, err := os.Open(d.resolve(storedPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("open stashed file: %w", err)
	}
	return f, nil
}

// Exists reports whether the stored file is present.
func (d *Disk) Exists(ctx context.Context, storedPath string) bool {
	_, err := os.Stat(d.resolve(storedPath))
	return err == nil
}

// Delete removes a stored file; a missing file is not an error.
func (d *Disk) Delete(ctx context.Context, storedPath string) error {
	if err := os.Remove(d.resolve(storedPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete stashed file: %w", err)
	}
	return nil
}

// resolve maps a stored path or bare filename into the stash directory. Only
// the base name is honored, which also blocks path traversal from the
// /uploads route.
func (d *Disk) resolve(storedPath string) string {
	return filepath.Join(d.dir, filepath.Base(storedPath))
}
