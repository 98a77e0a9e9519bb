package stash

import "errors"

var (
	// ErrFileTooLarge signals that the upload exceeds MaxUploadSize.
	ErrFileTooLarge = errors.New("file too large")
	// ErrNotAnImage signals a content type outside image/*.
	ErrNotAnImage = errors.New("only image files are allowed")
	// ErrFileNotFound signals that the stored file could not be located.
	ErrFileNotFound = errors.New("stored file not found")
)
