package catalog

import (
	"context"
	"sync"

	"coursegen-worker/pkg/models"

	"github.com/google/uuid"
)

// MemoryPublisher is an in-memory Publisher for tests and database-less runs.
// It keeps the same atomic version semantics under a mutex.
type MemoryPublisher struct {
	mu      sync.Mutex
	version int
	Courses map[uuid.UUID]*models.CatalogCourse
	Entries []*models.CatalogUpdateEntry

	// FailWith makes every Publish fail, for exercising the best-effort path.
	FailWith error
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{Courses: make(map[uuid.UUID]*models.CatalogCourse)}
}

func (p *MemoryPublisher) Publish(ctx context.Context, course *models.CatalogCourse) (*models.CatalogUpdateEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailWith != nil {
		return nil, p.FailWith
	}

	action := "created"
	if existing, ok := p.Courses[course.CourseID]; ok {
		action = "updated"
		course.ContentVersion = existing.ContentVersion + 1
	} else {
		course.ContentVersion = 1
	}

	stored := *course
	p.Courses[course.CourseID] = &stored

	p.version++
	entry := &models.CatalogUpdateEntry{
		ID:             uuid.New(),
		CourseID:       course.CourseID,
		Action:         action,
		CatalogVersion: p.version,
		Title:          course.Title,
	}
	p.Entries = append(p.Entries, entry)
	return entry, nil
}
