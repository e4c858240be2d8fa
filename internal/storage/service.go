package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"coursegen-worker/pkg/models"
	"coursegen-worker/pkg/storage"

	"github.com/google/uuid"
)

// ArtifactService persists finished course artifacts and pipeline logs on top
// of a storage backend. Artifacts live at artifacts/{courseID}/course.json.
type ArtifactService struct {
	storage storage.Storage
}

func NewArtifactService(storage storage.Storage) *ArtifactService {
	return &ArtifactService{
		storage: storage,
	}
}

func artifactPath(courseID uuid.UUID) string {
	return fmt.Sprintf("artifacts/%s/course.json", courseID.String())
}

func logPath(jobID uuid.UUID) string {
	return fmt.Sprintf("logs/%s/pipeline.log", jobID.String())
}

// UploadArtifact serializes the draft and writes it to the artifact path.
func (s *ArtifactService) UploadArtifact(ctx context.Context, courseID uuid.UUID, draft *models.CourseDraft) error {
	data, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize artifact for course %s: %w", courseID, err)
	}

	if err := s.storage.Upload(ctx, artifactPath(courseID), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to upload artifact for course %s: %w", courseID, err)
	}

	return nil
}

// DownloadArtifact reads the persisted artifact back and decodes it. Used by
// the verifying step to confirm the write and by the artifact API endpoint.
func (s *ArtifactService) DownloadArtifact(ctx context.Context, courseID uuid.UUID) (*models.CourseDraft, error) {
	reader, err := s.storage.Download(ctx, artifactPath(courseID))
	if err != nil {
		return nil, fmt.Errorf("failed to download artifact for course %s: %w", courseID, err)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact for course %s: %w", courseID, err)
	}

	var draft models.CourseDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("artifact for course %s is not valid JSON: %w", courseID, err)
	}

	return &draft, nil
}

// ArtifactExists checks whether an artifact has been written for the course.
func (s *ArtifactService) ArtifactExists(ctx context.Context, courseID uuid.UUID) (bool, error) {
	return s.storage.Exists(ctx, artifactPath(courseID))
}

// ArtifactURL returns the access URL for a course artifact.
func (s *ArtifactService) ArtifactURL(ctx context.Context, courseID uuid.UUID) (string, error) {
	return s.storage.GetURL(ctx, artifactPath(courseID))
}

// SaveJobLog persists the pipeline log for a job.
func (s *ArtifactService) SaveJobLog(ctx context.Context, jobID uuid.UUID, logContent string) error {
	return s.storage.Upload(ctx, logPath(jobID), strings.NewReader(logContent))
}

// GetJobLog reads back the pipeline log for a job.
func (s *ArtifactService) GetJobLog(ctx context.Context, jobID uuid.UUID) (string, error) {
	reader, err := s.storage.Download(ctx, logPath(jobID))
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// DeleteArtifact removes a course artifact; missing files are not an error.
func (s *ArtifactService) DeleteArtifact(ctx context.Context, courseID uuid.UUID) error {
	return s.storage.Delete(ctx, artifactPath(courseID))
}
