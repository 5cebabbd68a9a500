package services

import (
	"context"
	"database/sql"
	"strings"

	"gorm.io/gorm"
)

// Search builds a deduplicated newest-first result set by matching the
// query against asset names, tag names, store/author/license names, and
// file MIME types, all as case-insensitive substrings.
type Search struct {
	db      *gorm.DB
	catalog *Catalog
}

func NewSearch(db *gorm.DB, catalog *Catalog) *Search {
	return &Search{db: db, catalog: catalog}
}

func (s *Search) Search(ctx context.Context, query string) ([]AssetDetail, error) {
	if strings.TrimSpace(query) == "" {
		return nil, newValidationError("search query cannot be empty")
	}
	pattern := "%" + strings.ToLower(query) + "%"

	var ids []uint
	err := s.db.WithContext(ctx).
		Table("assets").
		Joins("LEFT JOIN asset_tags ON asset_tags.asset_id = assets.id").
		Joins("LEFT JOIN tags ON tags.id = asset_tags.tag_id").
		Joins("LEFT JOIN stores ON stores.id = assets.store_id").
		Joins("LEFT JOIN authors ON authors.id = assets.author_id").
		Joins("LEFT JOIN licenses ON licenses.id = assets.license_id").
		Joins("LEFT JOIN files ON files.asset_id = assets.id").
		Where(`LOWER(assets.name) LIKE @q
			OR LOWER(tags.name) LIKE @q
			OR LOWER(stores.name) LIKE @q
			OR LOWER(authors.name) LIKE @q
			OR LOWER(licenses.name) LIKE @q
			OR LOWER(files.mime_type) LIKE @q`, sql.Named("q", pattern)).
		Distinct().
		Order("assets.id DESC").
		Pluck("assets.id", &ids).Error
	if err != nil {
		return nil, err
	}

	results := make([]AssetDetail, 0, len(ids))
	for _, id := range ids {
		detail, err := s.catalog.GetAsset(ctx, id)
		if err != nil {
			return nil, err
		}
		results = append(results, *detail)
	}
	return results, nil
}
