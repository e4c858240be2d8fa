package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogCourse is the discoverable metadata upserted on successful publish.
type CatalogCourse struct {
	CourseID       uuid.UUID   `json:"course_id" gorm:"type:uuid;primary_key"`
	Title          string      `json:"title" gorm:"type:text;not null"`
	Subject        string      `json:"subject" gorm:"type:varchar(128);index"`
	GradeBand      string      `json:"grade_band" gorm:"type:varchar(16);index"`
	Tags           StringSlice `json:"tags" gorm:"type:jsonb;default:'[]'"`
	Visibility     string      `json:"visibility" gorm:"type:varchar(20);default:'private'"`
	ContentVersion int         `json:"content_version" gorm:"default:1"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (CatalogCourse) TableName() string {
	return "catalog_courses"
}

// CatalogVersion is the single-row monotonic counter used for downstream cache
// invalidation. It is only ever bumped inside the publisher's transaction,
// which serializes concurrent publishers at the database.
type CatalogVersion struct {
	ID      int `gorm:"primary_key"`
	Current int `gorm:"not null;default:0"`
}

func (CatalogVersion) TableName() string {
	return "catalog_versions"
}

// CatalogUpdateEntry is the append-only publish log, one row per successful
// publish.
type CatalogUpdateEntry struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	CourseID       uuid.UUID `json:"course_id" gorm:"type:uuid;not null;index"`
	Action         string    `json:"action" gorm:"type:varchar(20);not null"`
	CatalogVersion int       `json:"catalog_version" gorm:"not null;index"`
	Title          string    `json:"title" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
}

func (CatalogUpdateEntry) TableName() string {
	return "catalog_update_log"
}

func (e *CatalogUpdateEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	return nil
}
