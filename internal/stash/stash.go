// Package stash stores user-uploaded images under collision-resistant
// generated names and serves them back for the /uploads route, PDF reports,
// and cleanup on analysis deletion.
package stash

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxUploadSize is the hard cap on accepted image uploads.
const MaxUploadSize = 10 * 1024 * 1024 // 10 MiB

// Stash abstracts where uploaded images live. Stored paths returned by Store
// are opaque to callers; Open, Exists and Delete accept either a stored path
// or its base filename.
type Stash interface {
	Store(ctx context.Context, r io.Reader, size int64, originalName, contentType string) (string, error)
	Open(ctx context.Context, storedPath string) (io.ReadCloser, error)
	Exists(ctx context.Context, storedPath string) bool
	Delete(ctx context.Context, storedPath string) error
}

// ValidateUpload enforces the size and content-type gate before anything is
// written to storage.
func ValidateUpload(size int64, contentType string) error {
	if size > MaxUploadSize {
		return ErrFileTooLarge
	}
	if !strings.HasPrefix(contentType, "image/") {
		return ErrNotAnImage
	}
	return nil
}

// generateName produces a unique filename preserving the original extension,
// in the form <unix-millis>-<random><ext>.
func generateName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), suffix, ext)
}
