package services

import (
	"context"
	"os"
	"path"
	"strings"

	"github.com/assetfarm/backend/internal/storage"
	"github.com/assetfarm/backend/pkg/logger"
	"github.com/klauspost/compress/zip"
)

// EntryFailure records one archive entry that could not be expanded. It
// never aborts the batch.
type EntryFailure struct {
	Entry  string `json:"entry"`
	Reason string `json:"reason"`
}

type ExpansionResult struct {
	FilesAdded int            `json:"filesAdded"`
	Failures   []EntryFailure `json:"failures,omitempty"`
}

// Expander unpacks a container file into individual file rows under its
// owning asset, placing entry bytes via the storage layout, generating
// previews for image entries, and turning entry paths into tag facets.
type Expander struct {
	catalog *Catalog
	store   *storage.Local
}

func NewExpander(catalog *Catalog, store *storage.Local) *Expander {
	return &Expander{catalog: catalog, store: store}
}

// Expand processes every non-directory entry in container-native order.
// Per-entry failures are captured, logged, and skipped. If the archive
// opens at all, the original archive file is deleted afterwards, even when
// some entries failed; a container that cannot be opened is an
// ArchiveError and the already-created asset row stays behind.
func (e *Expander) Expand(ctx context.Context, archivePath string, assetID uint, archiveName string) (ExpansionResult, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return ExpansionResult{}, &ArchiveError{Name: archiveName, AssetID: assetID, Err: err}
	}
	defer reader.Close()

	stem := strings.TrimSuffix(archiveName, path.Ext(archiveName))
	e.linkTag(ctx, assetID, "archive:"+stem)

	var result ExpansionResult
	fail := func(entry, reason string) {
		result.Failures = append(result.Failures, EntryFailure{Entry: entry, Reason: reason})
		logger.Warn("archive_entry_failed", map[string]interface{}{
			"asset_id": assetID,
			"archive":  archiveName,
			"entry":    entry,
			"reason":   reason,
		})
	}

	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		rel := path.Clean(strings.ReplaceAll(entry.Name, "\\", "/"))
		if rel == "." || strings.HasPrefix(rel, "../") || strings.HasPrefix(rel, "/") {
			fail(entry.Name, "entry path escapes the asset directory")
			continue
		}

		dest := e.store.FilePath(assetID, rel)
		src, err := entry.Open()
		if err != nil {
			fail(rel, err.Error())
			continue
		}
		written, err := e.store.WriteFile(dest, src)
		src.Close()
		if err != nil {
			_ = os.Remove(dest)
			fail(rel, err.Error())
			continue
		}

		mimeType := probeContentType(rel, sniffFile(dest))

		var previewPath *string
		if strings.HasPrefix(mimeType, "image/") {
			previewPath = e.generatePreview(assetID, rel, dest)
		}

		if _, err := e.catalog.AddFile(ctx, assetID, path.Base(rel), dest, written, mimeType, previewPath); err != nil {
			fail(rel, err.Error())
			continue
		}
		result.FilesAdded++

		e.linkTag(ctx, assetID, "archive-path:"+rel)
		if dir := path.Dir(rel); dir != "." {
			for _, segment := range strings.Split(dir, "/") {
				e.linkTag(ctx, assetID, segment)
			}
		}
		for _, tag := range DeriveTags(rel) {
			e.linkTag(ctx, assetID, tag)
		}
	}

	// The entries now live as individual file rows; the container itself
	// is no longer needed.
	if err := e.store.Remove(archivePath); err != nil {
		logger.Warn("archive_cleanup_failed", map[string]interface{}{
			"asset_id": assetID,
			"archive":  archivePath,
			"error":    err.Error(),
		})
	}

	return result, nil
}

// generatePreview attempts a thumbnail for an extracted image entry.
// Failure leaves the preview null and is never fatal.
func (e *Expander) generatePreview(assetID uint, rel, dest string) *string {
	data, err := os.ReadFile(dest)
	if err != nil {
		return nil
	}
	name := e.store.PreviewFileName(assetID, rel, true)
	thumb, err := GenerateThumbnail(data, thumbnailWidth, thumbnailHeight, name)
	if err != nil {
		logger.Warn("thumbnail_failed", map[string]interface{}{
			"asset_id": assetID,
			"entry":    rel,
			"error":    err.Error(),
		})
		return nil
	}
	publicPath, err := e.store.WritePreview(name, thumb)
	if err != nil {
		logger.Warn("preview_write_failed", map[string]interface{}{
			"asset_id": assetID,
			"entry":    rel,
			"error":    err.Error(),
		})
		return nil
	}
	return &publicPath
}

func (e *Expander) linkTag(ctx context.Context, assetID uint, name string) {
	if err := e.catalog.LinkName(ctx, assetID, LookupTag, name); err != nil {
		logger.Warn("tag_link_failed", map[string]interface{}{
			"asset_id": assetID,
			"tag":      name,
			"error":    err.Error(),
		})
	}
}
