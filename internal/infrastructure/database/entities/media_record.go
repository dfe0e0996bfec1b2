package entities

import (
	"time"

	"gorm.io/datatypes"
)

// MediaRecord is the persisted gallery entry. Filename is the generated
// storage key and the natural lookup key; the surrogate ID exists only to
// keep GORM happy with autoincrement semantics.
type MediaRecord struct {
	ID           uint           `gorm:"primaryKey;autoIncrement"`
	Filename     string         `gorm:"type:varchar(64);uniqueIndex;not null"`
	OriginalName string         `gorm:"type:varchar(255);not null"`
	Name         string         `gorm:"type:varchar(255)"`
	URL          string         `gorm:"type:varchar(1024);not null"`
	Thumbnail    string         `gorm:"type:varchar(1024)"`
	StorageType  string         `gorm:"type:varchar(16);index;not null"`
	MediaType    string         `gorm:"type:varchar(16);not null"`
	MimeType     string         `gorm:"type:varchar(64);not null"`
	Bytes        int64          `gorm:"not null"`
	Width        int
	Height       int
	TakenAt      string         `gorm:"type:varchar(64)"`
	Location     string         `gorm:"type:varchar(255)"`
	Tags         datatypes.JSON
	Photographer string         `gorm:"type:varchar(255)"`
	UploadedAt   time.Time      `gorm:"index;not null"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
}

func (MediaRecord) TableName() string {
	return "media_records"
}
