package handlers

import (
	"fmt"
	"path"
	"strings"

	"github.com/assetfarm/backend/internal/services"
	"github.com/assetfarm/backend/internal/storage"
	"github.com/assetfarm/backend/pkg/logger"
	"github.com/assetfarm/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// browseLimit caps the default asset listing.
const browseLimit = 20

type AssetsHandler struct {
	Catalog  *services.Catalog
	Search   *services.Search
	Ingestor *services.Ingestor
	Store    *storage.Local
}

func NewAssetsHandler(catalog *services.Catalog, search *services.Search, ingestor *services.Ingestor, store *storage.Local) *AssetsHandler {
	return &AssetsHandler{Catalog: catalog, Search: search, Ingestor: ingestor, Store: store}
}

func (h *AssetsHandler) List(c *fiber.Ctx) error {
	assets, err := h.Catalog.ListAssets(c.Context(), browseLimit, 0)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, assets)
}

func (h *AssetsHandler) Get(c *fiber.Ctx) error {
	assetID, err := parseAssetID(c)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid asset ID")
	}

	asset, err := h.Catalog.GetAsset(c.Context(), assetID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, asset)
}

func (h *AssetsHandler) SearchAssets(c *fiber.Ctx) error {
	results, err := h.Search.Search(c.Context(), c.Query("query"))
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, results)
}

func (h *AssetsHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}

	stream, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed opening uploaded file")
	}
	defer stream.Close()

	result, err := h.Ingestor.Ingest(c.Context(), services.IngestRequest{
		AssetName:   c.FormValue("asset_name"),
		Link:        c.FormValue("link"),
		StoreName:   c.FormValue("store_name"),
		AuthorName:  c.FormValue("author_name"),
		LicenseName: c.FormValue("license_name"),
		Tags:        c.FormValue("tags"),
		Projects:    c.FormValue("projects"),
		FileName:    fileHeader.Filename,
		Size:        fileHeader.Size,
		Content:     stream,
	})
	if err != nil {
		return respondError(c, err)
	}

	logger.Info("asset_uploaded", map[string]interface{}{
		"asset_id":  result.AssetID,
		"file_name": fileHeader.Filename,
		"file_size": fileHeader.Size,
	})

	return utils.Success(c, fiber.StatusCreated, result)
}

type updateAssetRequest struct {
	AssetName   string  `json:"assetName"`
	Link        *string `json:"link"`
	StoreName   *string `json:"storeName"`
	AuthorName  *string `json:"authorName"`
	LicenseName *string `json:"licenseName"`
	TagsString  *string `json:"tagsString"`
	Projects    *string `json:"projectsString"`
}

func (h *AssetsHandler) Update(c *fiber.Ctx) error {
	assetID, err := parseAssetID(c)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid asset ID")
	}

	var req updateAssetRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	err = h.Catalog.UpdateAsset(c.Context(), assetID, services.UpdateAssetInput{
		Name:        req.AssetName,
		Link:        stringValue(req.Link),
		StoreName:   stringValue(req.StoreName),
		AuthorName:  stringValue(req.AuthorName),
		LicenseName: stringValue(req.LicenseName),
		Tags:        stringValue(req.TagsString),
		Projects:    stringValue(req.Projects),
	})
	if err != nil {
		return respondError(c, err)
	}

	logger.Info("asset_updated", map[string]interface{}{"asset_id": assetID})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"message": fmt.Sprintf("Asset ID %d updated successfully.", assetID),
	})
}

func (h *AssetsHandler) Delete(c *fiber.Ctx) error {
	assetID, err := parseAssetID(c)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid asset ID")
	}

	// Collect preview names before the rows disappear; the preview root is
	// flat, so the cascade alone would leave the thumbnails behind.
	var previewNames []string
	if asset, err := h.Catalog.GetAsset(c.Context(), assetID); err == nil {
		for _, file := range asset.Files {
			if file.PreviewPath != nil {
				previewNames = append(previewNames, path.Base(*file.PreviewPath))
			}
		}
	}

	deleted, err := h.Catalog.DeleteAsset(c.Context(), assetID)
	if err != nil {
		return respondError(c, err)
	}
	if !deleted {
		return utils.Error(c, fiber.StatusNotFound, "asset not found")
	}

	if err := h.Store.RemoveAssetDir(assetID); err != nil {
		logger.Warn("asset_dir_cleanup_failed", map[string]interface{}{
			"asset_id": assetID,
			"error":    err.Error(),
		})
	}
	for _, name := range previewNames {
		if err := h.Store.Remove(h.Store.PreviewFilePath(name)); err != nil {
			logger.Warn("preview_cleanup_failed", map[string]interface{}{
				"asset_id": assetID,
				"preview":  name,
				"error":    err.Error(),
			})
		}
	}

	logger.Info("asset_deleted", map[string]interface{}{"asset_id": assetID})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "asset deleted"})
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
