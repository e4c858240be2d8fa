package catalog

import (
	"context"
	"errors"
	"testing"

	"coursegen-worker/pkg/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPublisherVersionsAreMonotonic(t *testing.T) {
	pub := NewMemoryPublisher()
	courseA := uuid.New()
	courseB := uuid.New()

	first, err := pub.Publish(context.Background(), &models.CatalogCourse{CourseID: courseA, Title: "Fractions"})
	require.NoError(t, err)
	second, err := pub.Publish(context.Background(), &models.CatalogCourse{CourseID: courseB, Title: "Decimals"})
	require.NoError(t, err)
	third, err := pub.Publish(context.Background(), &models.CatalogCourse{CourseID: courseA, Title: "Fractions v2"})
	require.NoError(t, err)

	assert.Equal(t, 1, first.CatalogVersion)
	assert.Equal(t, 2, second.CatalogVersion)
	assert.Equal(t, 3, third.CatalogVersion)

	assert.Equal(t, "created", first.Action)
	assert.Equal(t, "created", second.Action)
	assert.Equal(t, "updated", third.Action)
}

func TestMemoryPublisherBumpsContentVersion(t *testing.T) {
	pub := NewMemoryPublisher()
	courseID := uuid.New()

	_, err := pub.Publish(context.Background(), &models.CatalogCourse{CourseID: courseID, Title: "v1"})
	require.NoError(t, err)
	_, err = pub.Publish(context.Background(), &models.CatalogCourse{CourseID: courseID, Title: "v2"})
	require.NoError(t, err)

	assert.Equal(t, 2, pub.Courses[courseID].ContentVersion)
	assert.Equal(t, "v2", pub.Courses[courseID].Title)
}

func TestPublishBestEffortSwallowsFailure(t *testing.T) {
	pub := NewMemoryPublisher()
	pub.FailWith = errors.New("catalog store offline")

	entry := PublishBestEffort(context.Background(), pub, &models.CatalogCourse{
		CourseID: uuid.New(),
		Title:    "Fractions",
	})

	assert.Nil(t, entry)
	assert.Empty(t, pub.Entries)
}

func TestPublishBestEffortReturnsEntryOnSuccess(t *testing.T) {
	pub := NewMemoryPublisher()

	entry := PublishBestEffort(context.Background(), pub, &models.CatalogCourse{
		CourseID: uuid.New(),
		Title:    "Fractions",
	})

	require.NotNil(t, entry)
	assert.GreaterOrEqual(t, entry.CatalogVersion, 1)
}
