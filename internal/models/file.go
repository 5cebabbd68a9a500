package models

// File is one physical stored object belonging to an Asset: the original
// upload or an entry extracted from an archive. FileName is always a
// basename; StoragePath is the authoritative on-disk location.
type File struct {
	ID          uint    `json:"fileId" gorm:"primaryKey"`
	AssetID     uint    `json:"assetId" gorm:"not null;index"`
	FileName    string  `json:"fileName" gorm:"type:varchar(255);not null"`
	StoragePath string  `json:"filePath" gorm:"type:text;not null"`
	Size        int64   `json:"fileSize" gorm:"not null;default:0"`
	MimeType    string  `json:"fileType" gorm:"type:varchar(255);not null"`
	PreviewPath *string `json:"previewPath,omitempty" gorm:"type:text"`
}
