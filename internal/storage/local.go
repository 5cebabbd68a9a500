package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Local owns the on-disk layout of the catalog: one private directory per
// asset under the uploads root, and a flat previews root. All public URL
// paths are derived here so that the rest of the service never assembles
// them by hand.
type Local struct {
	UploadsRoot  string
	PreviewsRoot string
}

func NewLocal(uploadsRoot, previewsRoot string) (*Local, error) {
	for _, dir := range []string{uploadsRoot, previewsRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return &Local{UploadsRoot: uploadsRoot, PreviewsRoot: previewsRoot}, nil
}

// AssetDir ensures and returns the asset's private directory.
func (l *Local) AssetDir(assetID uint) (string, error) {
	dir := filepath.Join(l.UploadsRoot, strconv.FormatUint(uint64(assetID), 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// FilePath maps an asset id plus a slash-separated relative path to the
// deterministic storage location inside the asset's directory.
func (l *Local) FilePath(assetID uint, relPath string) string {
	return filepath.Join(l.UploadsRoot, strconv.FormatUint(uint64(assetID), 10), filepath.FromSlash(relPath))
}

// WriteFile streams reader to dest, creating intermediate directories.
// Returns the number of bytes written.
func (l *Local) WriteFile(dest string, reader io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}
	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(out, reader)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return written, err
}

func (l *Local) Remove(path string) error {
	return os.Remove(path)
}

// RemoveAssetDir deletes the asset's private directory and everything in it.
func (l *Local) RemoveAssetDir(assetID uint) error {
	return os.RemoveAll(filepath.Join(l.UploadsRoot, strconv.FormatUint(uint64(assetID), 10)))
}

// PreviewFileName builds the flat preview name for a source file. Archive
// entries get a random infix because different entries can share a base
// name. Previews are always encoded as JPEG, hence the fixed extension.
func (l *Local) PreviewFileName(assetID uint, sourceName string, unique bool) string {
	base := path.Base(strings.ReplaceAll(sourceName, "\\", "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))
	if unique {
		return fmt.Sprintf("%d_%s_%s.jpg", assetID, uuid.NewString()[:8], stem)
	}
	return fmt.Sprintf("%d_%s.jpg", assetID, stem)
}

// PreviewFilePath returns the on-disk location of a preview by name.
func (l *Local) PreviewFilePath(name string) string {
	return filepath.Join(l.PreviewsRoot, name)
}

// WritePreview stores encoded preview bytes under the previews root and
// returns the public path to serve them from.
func (l *Local) WritePreview(name string, data []byte) (string, error) {
	if err := os.WriteFile(l.PreviewFilePath(name), data, 0o644); err != nil {
		return "", err
	}
	return PreviewPublicPath(name), nil
}

// UploadPublicPath is the read-only URL path for a stored original.
func UploadPublicPath(assetID uint, fileName string) string {
	return fmt.Sprintf("/uploads/%d/%s", assetID, fileName)
}

// PreviewPublicPath is the read-only URL path for a generated preview.
func PreviewPublicPath(name string) string {
	return "/previews/" + name
}
