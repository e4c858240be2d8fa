// Package catalog records discoverable course metadata on successful publish
// and bumps the monotonic catalog version consumed by downstream cache
// invalidation.
package catalog

import (
	"context"
	"errors"
	"log"

	"coursegen-worker/pkg/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Publisher upserts catalog metadata and appends to the update log.
type Publisher interface {
	Publish(ctx context.Context, course *models.CatalogCourse) (*models.CatalogUpdateEntry, error)
}

type gormPublisher struct {
	db *gorm.DB
}

func NewPublisher(db *gorm.DB) Publisher {
	return &gormPublisher{db: db}
}

// Publish runs upsert, version bump and log append in one transaction. The
// version bump uses UPDATE ... RETURNING against the single counter row, so
// concurrent publishers are serialized by the database and never observe the
// same version twice.
func (p *gormPublisher) Publish(ctx context.Context, course *models.CatalogCourse) (*models.CatalogUpdateEntry, error) {
	var entry *models.CatalogUpdateEntry

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		action := "created"
		var existing models.CatalogCourse
		err := tx.Where("course_id = ?", course.CourseID).First(&existing).Error
		switch {
		case err == nil:
			action = "updated"
			course.ContentVersion = existing.ContentVersion + 1
		case errors.Is(err, gorm.ErrRecordNotFound):
			course.ContentVersion = 1
		default:
			return err
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}},
			UpdateAll: true,
		}).Create(course).Error; err != nil {
			return err
		}

		var version int
		if err := tx.Raw(
			"UPDATE catalog_versions SET current = current + 1 WHERE id = 1 RETURNING current",
		).Scan(&version).Error; err != nil {
			return err
		}

		entry = &models.CatalogUpdateEntry{
			CourseID:       course.CourseID,
			Action:         action,
			CatalogVersion: version,
			Title:          course.Title,
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// PublishBestEffort runs Publish and deliberately discards the error after
// logging it. Catalog logging must never flip an already successful job back
// to failed; the discard is explicit here instead of an empty catch at every
// call site.
func PublishBestEffort(ctx context.Context, p Publisher, course *models.CatalogCourse) *models.CatalogUpdateEntry {
	entry, err := p.Publish(ctx, course)
	if err != nil {
		log.Printf("Catalog.PublishBestEffort: publish failed for course %s (job remains successful): %v",
			course.CourseID, err)
		return nil
	}
	return entry
}
