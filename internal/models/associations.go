package models

// Association rows. The composite primary key makes a duplicate
// (asset, tag) or (asset, project) pair impossible at the schema level.

type AssetTag struct {
	AssetID uint `json:"assetId" gorm:"primaryKey;autoIncrement:false"`
	TagID   uint `json:"tagId" gorm:"primaryKey;autoIncrement:false"`
}

type AssetProject struct {
	AssetID   uint `json:"assetId" gorm:"primaryKey;autoIncrement:false"`
	ProjectID uint `json:"projectId" gorm:"primaryKey;autoIncrement:false"`
}
