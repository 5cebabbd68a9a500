package services

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/assetfarm/backend/internal/storage"
	"github.com/assetfarm/backend/pkg/logger"
)

// MaxFileSize is the default upload size limit.
const MaxFileSize = 20 * 1024 * 1024

var allowedExtensions = map[string]struct{}{
	"zip": {}, "png": {}, "jpg": {}, "jpeg": {}, "gif": {},
	"wav": {}, "mp3": {}, "ogg": {},
	"txt": {}, "md": {}, "html": {}, "json": {}, "xml": {},
}

// IngestRequest is one parsed multipart upload: scalar metadata plus
// exactly one file part.
type IngestRequest struct {
	AssetName   string
	Link        string
	StoreName   string
	AuthorName  string
	LicenseName string
	Tags        string
	Projects    string

	FileName string
	Size     int64
	Content  io.Reader
}

type IngestResult struct {
	AssetID   uint             `json:"assetId"`
	Message   string           `json:"message"`
	Expansion *ExpansionResult `json:"expansion,omitempty"`
}

// Ingestor orchestrates the upload pipeline: validation, asset creation,
// file placement, tag derivation, and archive expansion or direct file
// recording.
type Ingestor struct {
	catalog     *Catalog
	store       *storage.Local
	expander    *Expander
	maxFileSize int64
}

func NewIngestor(catalog *Catalog, store *storage.Local, expander *Expander, maxFileSize int64) *Ingestor {
	if maxFileSize <= 0 {
		maxFileSize = MaxFileSize
	}
	return &Ingestor{catalog: catalog, store: store, expander: expander, maxFileSize: maxFileSize}
}

// Ingest runs the end-to-end flow. The pre-checks (steps before the asset
// row exists) reject without side effects; once the asset row is created,
// later failures leave it behind in a partially populated state the caller
// can inspect or delete.
func (i *Ingestor) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	assetName := strings.TrimSpace(req.AssetName)
	fileName := filepath.Base(strings.ReplaceAll(strings.TrimSpace(req.FileName), "\\", "/"))
	if assetName == "" || fileName == "" || fileName == "." || req.Content == nil {
		return IngestResult{}, newValidationError("asset name and file are required")
	}
	if req.Size > i.maxFileSize {
		return IngestResult{}, &PayloadTooLargeError{Size: req.Size, Limit: i.maxFileSize}
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	if _, ok := allowedExtensions[ext]; !ok {
		return IngestResult{}, newValidationError("file type .%s is not allowed", ext)
	}

	assetID, err := i.catalog.CreateAsset(ctx, CreateAssetInput{
		Name:        assetName,
		Link:        req.Link,
		StoreName:   req.StoreName,
		AuthorName:  req.AuthorName,
		LicenseName: req.LicenseName,
		Tags:        req.Tags,
		Projects:    req.Projects,
	})
	if err != nil {
		return IngestResult{}, err
	}

	dest := i.store.FilePath(assetID, fileName)
	written, err := i.store.WriteFile(dest, req.Content)
	if err != nil {
		return IngestResult{AssetID: assetID}, &StorageError{Op: "write", Path: dest, Err: err}
	}

	logger.Info("asset_file_stored", map[string]interface{}{
		"asset_id":  assetID,
		"file_name": fileName,
		"size":      written,
	})

	// Filename-derived tags apply to every upload, archives included.
	for _, tag := range DeriveTags(fileName) {
		if err := i.catalog.LinkName(ctx, assetID, LookupTag, tag); err != nil {
			logger.Warn("tag_link_failed", map[string]interface{}{
				"asset_id": assetID,
				"tag":      tag,
				"error":    err.Error(),
			})
		}
	}

	if ext == "zip" {
		expansion, err := i.expander.Expand(ctx, dest, assetID, fileName)
		if err != nil {
			return IngestResult{AssetID: assetID}, err
		}
		return IngestResult{
			AssetID:   assetID,
			Message:   fmt.Sprintf("ZIP file uploaded and processed. Asset ID: %d", assetID),
			Expansion: &expansion,
		}, nil
	}

	mimeType := probeContentType(fileName, sniffFile(dest))

	var previewPath *string
	if strings.HasPrefix(mimeType, "image/") {
		previewPath = i.generatePreview(assetID, fileName, dest)
	}

	if _, err := i.catalog.AddFile(ctx, assetID, fileName, dest, written, mimeType, previewPath); err != nil {
		return IngestResult{AssetID: assetID}, err
	}

	return IngestResult{
		AssetID: assetID,
		Message: fmt.Sprintf("File uploaded and details saved. Asset ID: %d", assetID),
	}, nil
}

func (i *Ingestor) generatePreview(assetID uint, fileName, dest string) *string {
	data, err := os.ReadFile(dest)
	if err != nil {
		return nil
	}
	name := i.store.PreviewFileName(assetID, fileName, false)
	thumb, err := GenerateThumbnail(data, thumbnailWidth, thumbnailHeight, name)
	if err != nil {
		logger.Warn("thumbnail_failed", map[string]interface{}{
			"asset_id":  assetID,
			"file_name": fileName,
			"error":     err.Error(),
		})
		return nil
	}
	publicPath, err := i.store.WritePreview(name, thumb)
	if err != nil {
		logger.Warn("preview_write_failed", map[string]interface{}{
			"asset_id":  assetID,
			"file_name": fileName,
			"error":     err.Error(),
		})
		return nil
	}
	return &publicPath
}

// probeContentType resolves a MIME type from the extension first, falling
// back to content sniffing of the written bytes.
func probeContentType(name string, sniff []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	if len(sniff) > 0 {
		return http.DetectContentType(sniff)
	}
	return "application/octet-stream"
}

// sniffFile reads up to the 512 bytes http.DetectContentType considers.
func sniffFile(path string) []byte {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, _ := io.ReadFull(f, buf)
	return buf[:n]
}
