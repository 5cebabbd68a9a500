package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/assetfarm/backend/internal/services"
	"github.com/assetfarm/backend/pkg/logger"
	"github.com/assetfarm/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

func parseAssetID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Params("id")), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// respondError maps the service error taxonomy onto HTTP statuses.
// Anything unrecognized is logged in full and surfaced as a bare 500.
func respondError(c *fiber.Ctx, err error) error {
	var (
		validationErr *services.ValidationError
		tooLargeErr   *services.PayloadTooLargeError
		notFoundErr   *services.NotFoundError
		archiveErr    *services.ArchiveError
		storageErr    *services.StorageError
	)

	switch {
	case errors.As(err, &validationErr):
		return utils.Error(c, fiber.StatusBadRequest, validationErr.Error())
	case errors.As(err, &tooLargeErr):
		return utils.Error(c, fiber.StatusRequestEntityTooLarge, tooLargeErr.Error())
	case errors.As(err, &notFoundErr):
		return utils.Error(c, fiber.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &archiveErr):
		logger.Error("archive_processing_failed", archiveErr, map[string]interface{}{
			"archive":  archiveErr.Name,
			"asset_id": archiveErr.AssetID,
		})
		return utils.Error(c, fiber.StatusInternalServerError,
			fmt.Sprintf("Failed to process ZIP file. Asset ID: %d", archiveErr.AssetID))
	case errors.As(err, &storageErr):
		logger.Error("storage_failed", storageErr, map[string]interface{}{
			"op":   storageErr.Op,
			"path": storageErr.Path,
		})
		return utils.Error(c, fiber.StatusInternalServerError, "storage failure")
	default:
		logger.Error("internal_error", err, map[string]interface{}{
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}
}
