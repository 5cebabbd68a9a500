package services

import "fmt"

// ValidationError marks bad or missing caller input (HTTP 400).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func newValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// PayloadTooLargeError rejects an upload over the size limit (HTTP 413).
type PayloadTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("file too large (%d bytes, max %d)", e.Size, e.Limit)
}

// NotFoundError marks a lookup of an absent entity (HTTP 404).
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// UnsupportedImageError reports a byte stream that could not be decoded or
// re-encoded as a raster image. Callers treat it as "no preview", never as
// a failed upload.
type UnsupportedImageError struct {
	Err error
}

func (e *UnsupportedImageError) Error() string {
	return fmt.Sprintf("unsupported image: %v", e.Err)
}

func (e *UnsupportedImageError) Unwrap() error { return e.Err }

// ArchiveError reports a container that could not be opened at all. The
// asset row created before expansion is deliberately retained, so the error
// carries its id as the caller's retry handle.
type ArchiveError struct {
	Name    string
	AssetID uint
	Err     error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("cannot open archive %s (asset %d): %v", e.Name, e.AssetID, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// StorageError wraps a disk write or remove failure (HTTP 500).
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
