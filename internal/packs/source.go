// Package packs resolves the knowledge pack to gate a job's content against.
// Packs are immutable per version and read-only at runtime.
package packs

import (
	"context"
	"errors"
	"log"
	"strings"

	"coursegen-worker/pkg/models"

	"gorm.io/gorm"
)

// Source looks up the pack for a topic/grade pair.
type Source interface {
	PackFor(ctx context.Context, topic, grade string) (*models.KnowledgePack, error)
}

type gormSource struct {
	db *gorm.DB
}

func NewGormSource(db *gorm.DB) Source {
	return &gormSource{db: db}
}

// PackFor returns the newest matching pack version. Falls back to a permissive
// default when no pack covers the topic/grade, so packless topics still pass
// through the pipeline with banned-term screening only.
func (s *gormSource) PackFor(ctx context.Context, topic, grade string) (*models.KnowledgePack, error) {
	var pack models.KnowledgePack
	err := s.db.WithContext(ctx).
		Where("topic = ? AND grade = ?", strings.ToLower(topic), grade).
		Order("version DESC").
		First(&pack).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Packs.PackFor: no pack for topic=%s grade=%s, using default", topic, grade)
			return DefaultPack(topic, grade), nil
		}
		return nil, err
	}

	return &pack, nil
}

// DefaultPack is the fallback profile: no vocabulary restriction (empty vocab
// sets are treated as unrestricted by callers that opt in), a baseline banned
// list and a mid readability bound.
func DefaultPack(topic, grade string) *models.KnowledgePack {
	return &models.KnowledgePack{
		PackID:  "default-" + strings.ToLower(topic) + "-g" + grade,
		Topic:   strings.ToLower(topic),
		Grade:   grade,
		Version: 0,
		AllowedVocab: models.VocabSets{
			Content:  []string{},
			Function: []string{},
		},
		BannedTerms:     []string{"gamble", "casino", "violence"},
		ReadingLevelMax: 2.0,
	}
}

// StaticSource serves a fixed pack, for tests.
type StaticSource struct {
	Pack *models.KnowledgePack
}

func (s *StaticSource) PackFor(ctx context.Context, topic, grade string) (*models.KnowledgePack, error) {
	return s.Pack, nil
}
