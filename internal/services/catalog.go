package services

import (
	"context"
	"errors"
	"strings"

	"github.com/assetfarm/backend/internal/models"
	"github.com/assetfarm/backend/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LookupKind selects one of the small unique-name reference tables.
type LookupKind string

const (
	LookupStore   LookupKind = "store"
	LookupAuthor  LookupKind = "author"
	LookupLicense LookupKind = "license"
	LookupTag     LookupKind = "tag"
	LookupProject LookupKind = "project"
)

func (k LookupKind) table() string {
	switch k {
	case LookupStore:
		return "stores"
	case LookupAuthor:
		return "authors"
	case LookupLicense:
		return "licenses"
	case LookupTag:
		return "tags"
	case LookupProject:
		return "projects"
	}
	return ""
}

// lookupRow is the shared shape of every lookup table.
type lookupRow struct {
	ID   uint
	Name string
}

// Catalog owns the normalized relational schema: idempotent lookups,
// asset/file rows, and the association tables. Every exported mutating
// method runs inside a single transaction; a failure anywhere rolls the
// whole call back.
type Catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// GetOrCreate resolves name to its id in the kind's table, inserting the
// row if absent. The match is case-sensitive exact. Blank names are the
// caller's job to skip; passing one is a validation error.
func (c *Catalog) GetOrCreate(ctx context.Context, kind LookupKind, name string) (uint, error) {
	var id uint
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		id, txErr = getOrCreateLookup(tx, kind, name)
		return txErr
	})
	return id, err
}

func getOrCreateLookup(tx *gorm.DB, kind LookupKind, name string) (uint, error) {
	if strings.TrimSpace(name) == "" {
		return 0, newValidationError("%s name cannot be blank", kind)
	}
	table := kind.table()
	if table == "" {
		return 0, newValidationError("unknown lookup kind %q", kind)
	}

	var row lookupRow
	err := tx.Table(table).Where("name = ?", name).Take(&row).Error
	if err == nil {
		return row.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	return insertLookup(tx, kind, name)
}

// insertLookup races with concurrent creators of the same name. The insert
// skips on conflict rather than failing, because a failed statement would
// abort the surrounding transaction on postgres; zero rows affected means
// another caller won the race and the row is there to re-read.
func insertLookup(tx *gorm.DB, kind LookupKind, name string) (uint, error) {
	row := lookupRow{Name: name}
	res := tx.Table(kind.table()).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		var existing lookupRow
		if err := tx.Table(kind.table()).Where("name = ?", name).Take(&existing).Error; err != nil {
			return 0, err
		}
		return existing.ID, nil
	}
	return row.ID, nil
}

// Link associates a tag or project with an asset. Linking an already
// linked pair is a no-op.
func (c *Catalog) Link(ctx context.Context, assetID uint, kind LookupKind, id uint) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return linkAssociation(tx, assetID, kind, id)
	})
}

func linkAssociation(tx *gorm.DB, assetID uint, kind LookupKind, id uint) error {
	switch kind {
	case LookupTag:
		var count int64
		if err := tx.Model(&models.AssetTag{}).
			Where("asset_id = ? AND tag_id = ?", assetID, id).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		return tx.Create(&models.AssetTag{AssetID: assetID, TagID: id}).Error
	case LookupProject:
		var count int64
		if err := tx.Model(&models.AssetProject{}).
			Where("asset_id = ? AND project_id = ?", assetID, id).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		return tx.Create(&models.AssetProject{AssetID: assetID, ProjectID: id}).Error
	default:
		return newValidationError("lookup kind %q cannot be linked to an asset", kind)
	}
}

// LinkName resolves (or creates) a tag/project by name and links it in one
// transaction. Blank names are skipped silently, matching the lazy
// creation rule for user-supplied CSV lists and derived tags.
func (c *Catalog) LinkName(ctx context.Context, assetID uint, kind LookupKind, name string) error {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := getOrCreateLookup(tx, kind, name)
		if err != nil {
			return err
		}
		return linkAssociation(tx, assetID, kind, id)
	})
}

// CreateAssetInput carries the scalar metadata of a new asset. Tags and
// Projects are comma-separated name lists; blanks are dropped.
type CreateAssetInput struct {
	Name        string
	Link        string
	StoreName   string
	AuthorName  string
	LicenseName string
	Tags        string
	Projects    string
}

// CreateAsset resolves the scalar lookups, inserts the asset row, and links
// the initial tag/project sets, all in one transaction.
func (c *Catalog) CreateAsset(ctx context.Context, in CreateAssetInput) (uint, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return 0, newValidationError("asset name is required")
	}

	var assetID uint
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		asset := models.Asset{Name: name}
		if link := strings.TrimSpace(in.Link); link != "" {
			asset.Link = &link
		}

		var err error
		if asset.StoreID, err = resolveLookup(tx, LookupStore, in.StoreName); err != nil {
			return err
		}
		if asset.AuthorID, err = resolveLookup(tx, LookupAuthor, in.AuthorName); err != nil {
			return err
		}
		if asset.LicenseID, err = resolveLookup(tx, LookupLicense, in.LicenseName); err != nil {
			return err
		}

		if err := tx.Create(&asset).Error; err != nil {
			return err
		}
		assetID = asset.ID

		if err := linkNames(tx, assetID, LookupTag, splitCSV(in.Tags)); err != nil {
			return err
		}
		return linkNames(tx, assetID, LookupProject, splitCSV(in.Projects))
	})
	if err != nil {
		return 0, err
	}
	return assetID, nil
}

// resolveLookup maps an optional name to an optional lookup id; blank
// names resolve to nil rather than a row.
func resolveLookup(tx *gorm.DB, kind LookupKind, name string) (*uint, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	id, err := getOrCreateLookup(tx, kind, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func linkNames(tx *gorm.DB, assetID uint, kind LookupKind, names []string) error {
	for _, name := range names {
		id, err := getOrCreateLookup(tx, kind, name)
		if err != nil {
			return err
		}
		if err := linkAssociation(tx, assetID, kind, id); err != nil {
			return err
		}
	}
	return nil
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// AddFile appends a file row to an existing asset. fileName must be a
// basename; paths belong in StoragePath only.
func (c *Catalog) AddFile(ctx context.Context, assetID uint, fileName, storagePath string, size int64, mimeType string, previewPath *string) (uint, error) {
	if strings.ContainsAny(fileName, `/\`) {
		return 0, newValidationError("file name %q must not contain path separators", fileName)
	}

	var fileID uint
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var asset models.Asset
		if err := tx.Select("id").First(&asset, "id = ?", assetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "asset", ID: assetID}
			}
			return err
		}

		file := models.File{
			AssetID:     assetID,
			FileName:    fileName,
			StoragePath: storagePath,
			Size:        size,
			MimeType:    mimeType,
			PreviewPath: previewPath,
		}
		if err := tx.Create(&file).Error; err != nil {
			return err
		}
		fileID = file.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return fileID, nil
}

// ReplaceAssociations swaps the asset's full tag or project set for the
// parsed CSV list: delete all, then re-create.
func (c *Catalog) ReplaceAssociations(ctx context.Context, assetID uint, kind LookupKind, namesCSV string) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceAssociations(tx, assetID, kind, namesCSV)
	})
}

func replaceAssociations(tx *gorm.DB, assetID uint, kind LookupKind, namesCSV string) error {
	switch kind {
	case LookupTag:
		if err := tx.Where("asset_id = ?", assetID).Delete(&models.AssetTag{}).Error; err != nil {
			return err
		}
	case LookupProject:
		if err := tx.Where("asset_id = ?", assetID).Delete(&models.AssetProject{}).Error; err != nil {
			return err
		}
	default:
		return newValidationError("lookup kind %q has no asset associations", kind)
	}
	return linkNames(tx, assetID, kind, splitCSV(namesCSV))
}

// UpdateAssetInput mirrors the PUT contract: scalars are replaced, and the
// tag/project sets are rebuilt from the CSV lists.
type UpdateAssetInput struct {
	Name        string
	Link        string
	StoreName   string
	AuthorName  string
	LicenseName string
	Tags        string
	Projects    string
}

func (c *Catalog) UpdateAsset(ctx context.Context, assetID uint, in UpdateAssetInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return newValidationError("asset name is required")
	}

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var asset models.Asset
		if err := tx.First(&asset, "id = ?", assetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "asset", ID: assetID}
			}
			return err
		}

		asset.Name = name
		asset.Link = nil
		if link := strings.TrimSpace(in.Link); link != "" {
			asset.Link = &link
		}

		var err error
		if asset.StoreID, err = resolveLookup(tx, LookupStore, in.StoreName); err != nil {
			return err
		}
		if asset.AuthorID, err = resolveLookup(tx, LookupAuthor, in.AuthorName); err != nil {
			return err
		}
		if asset.LicenseID, err = resolveLookup(tx, LookupLicense, in.LicenseName); err != nil {
			return err
		}

		if err := tx.Save(&asset).Error; err != nil {
			return err
		}

		if err := replaceAssociations(tx, assetID, LookupTag, in.Tags); err != nil {
			return err
		}
		return replaceAssociations(tx, assetID, LookupProject, in.Projects)
	})
}

// GetAsset loads one asset with full nested file/tag/project detail.
func (c *Catalog) GetAsset(ctx context.Context, assetID uint) (*AssetDetail, error) {
	tx := c.db.WithContext(ctx)
	var asset models.Asset
	if err := tx.First(&asset, "id = ?", assetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "asset", ID: assetID}
		}
		return nil, err
	}
	detail, err := hydrateAsset(tx, asset)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListAssets returns hydrated assets ordered newest first.
func (c *Catalog) ListAssets(ctx context.Context, limit, offset int) ([]AssetDetail, error) {
	tx := c.db.WithContext(ctx)
	var assets []models.Asset
	if err := tx.Order("id DESC").Limit(limit).Offset(offset).Find(&assets).Error; err != nil {
		return nil, err
	}
	details := make([]AssetDetail, 0, len(assets))
	for _, asset := range assets {
		detail, err := hydrateAsset(tx, asset)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

// DeleteAsset cascades: files first, then both association tables, then
// the asset row. Returns false when the asset did not exist.
func (c *Catalog) DeleteAsset(ctx context.Context, assetID uint) (bool, error) {
	deleted := false
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var asset models.Asset
		if err := tx.Select("id").First(&asset, "id = ?", assetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if err := tx.Where("asset_id = ?", assetID).Delete(&models.File{}).Error; err != nil {
			return err
		}
		if err := tx.Where("asset_id = ?", assetID).Delete(&models.AssetTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("asset_id = ?", assetID).Delete(&models.AssetProject{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Asset{}, "id = ?", assetID).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// AssetDetail is the hydrated read model served by the API.
type AssetDetail struct {
	AssetID          uint         `json:"assetId"`
	AssetName        string       `json:"assetName"`
	Link             *string      `json:"link"`
	StoreName        *string      `json:"storeName"`
	AuthorName       *string      `json:"authorName"`
	LicenseName      *string      `json:"licenseName"`
	Tags             []string     `json:"tags"`
	Projects         []string     `json:"projects"`
	Files            []FileDetail `json:"files"`
	PreviewThumbnail *string      `json:"previewThumbnail"`
}

type FileDetail struct {
	FileID      uint    `json:"fileId"`
	AssetID     uint    `json:"assetId"`
	FileName    string  `json:"fileName"`
	FilePath    string  `json:"filePath"`
	PublicPath  string  `json:"publicPath"`
	FileSize    int64   `json:"fileSize"`
	FileType    string  `json:"fileType"`
	PreviewPath *string `json:"previewPath"`
}

func hydrateAsset(tx *gorm.DB, asset models.Asset) (AssetDetail, error) {
	detail := AssetDetail{
		AssetID:   asset.ID,
		AssetName: asset.Name,
		Link:      asset.Link,
		Tags:      []string{},
		Projects:  []string{},
		Files:     []FileDetail{},
	}

	var err error
	if detail.StoreName, err = lookupName(tx, LookupStore, asset.StoreID); err != nil {
		return detail, err
	}
	if detail.AuthorName, err = lookupName(tx, LookupAuthor, asset.AuthorID); err != nil {
		return detail, err
	}
	if detail.LicenseName, err = lookupName(tx, LookupLicense, asset.LicenseID); err != nil {
		return detail, err
	}

	var files []models.File
	if err := tx.Where("asset_id = ?", asset.ID).Order("id").Find(&files).Error; err != nil {
		return detail, err
	}
	for _, file := range files {
		fd := FileDetail{
			FileID:      file.ID,
			AssetID:     file.AssetID,
			FileName:    file.FileName,
			FilePath:    file.StoragePath,
			PublicPath:  storage.UploadPublicPath(file.AssetID, file.FileName),
			FileSize:    file.Size,
			FileType:    file.MimeType,
			PreviewPath: file.PreviewPath,
		}
		detail.Files = append(detail.Files, fd)
		if detail.PreviewThumbnail == nil && file.PreviewPath != nil {
			detail.PreviewThumbnail = file.PreviewPath
		}
	}

	var tags []string
	if err := tx.Table("tags").
		Joins("JOIN asset_tags ON asset_tags.tag_id = tags.id").
		Where("asset_tags.asset_id = ?", asset.ID).
		Order("tags.id").
		Pluck("tags.name", &tags).Error; err != nil {
		return detail, err
	}
	if tags != nil {
		detail.Tags = tags
	}

	var projects []string
	if err := tx.Table("projects").
		Joins("JOIN asset_projects ON asset_projects.project_id = projects.id").
		Where("asset_projects.asset_id = ?", asset.ID).
		Order("projects.id").
		Pluck("projects.name", &projects).Error; err != nil {
		return detail, err
	}
	if projects != nil {
		detail.Projects = projects
	}

	return detail, nil
}

func lookupName(tx *gorm.DB, kind LookupKind, id *uint) (*string, error) {
	if id == nil {
		return nil, nil
	}
	var row lookupRow
	if err := tx.Table(kind.table()).Where("id = ?", *id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row.Name, nil
}
