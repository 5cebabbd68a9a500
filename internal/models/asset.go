package models

import "time"

// Asset is the cataloged logical item. Relations to lookup entities are
// plain foreign-key columns; detail views are assembled by id lookups in the
// catalog service rather than through preloaded object graphs.
type Asset struct {
	ID        uint      `json:"assetId" gorm:"primaryKey"`
	Name      string    `json:"assetName" gorm:"type:varchar(255);not null;index"`
	Link      *string   `json:"link,omitempty" gorm:"type:varchar(255)"`
	StoreID   *uint     `json:"-" gorm:"index"`
	AuthorID  *uint     `json:"-" gorm:"index"`
	LicenseID *uint     `json:"-" gorm:"index"`
	CreatedAt time.Time `json:"createdAt"`
}
