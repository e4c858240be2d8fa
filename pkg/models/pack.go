package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VocabSets holds the two allowed word sets of a knowledge pack. Content words
// carry the subject matter; function words are grammatical glue.
type VocabSets struct {
	Content  []string `json:"content"`
	Function []string `json:"function"`
}

func (v VocabSets) Value() (driver.Value, error) {
	return json.Marshal(v)
}

func (v *VocabSets) Scan(value interface{}) error {
	if value == nil {
		*v = VocabSets{}
		return nil
	}

	var bytes []byte
	switch val := value.(type) {
	case []byte:
		bytes = val
	case string:
		bytes = []byte(val)
	default:
		return fmt.Errorf("cannot scan %T into VocabSets", value)
	}

	if len(bytes) == 0 {
		*v = VocabSets{}
		return nil
	}

	return json.Unmarshal(bytes, v)
}

// KnowledgePack is a grade/topic-scoped content-safety profile. Packs are
// immutable per version; the pipeline only ever reads them.
type KnowledgePack struct {
	ID              uuid.UUID   `json:"id" gorm:"type:uuid;primary_key"`
	PackID          string      `json:"pack_id" gorm:"type:varchar(128);not null;uniqueIndex:idx_pack_version"`
	Topic           string      `json:"topic" gorm:"type:varchar(128);not null;index"`
	Grade           string      `json:"grade" gorm:"type:varchar(16);not null;index"`
	Version         int         `json:"version" gorm:"not null;default:1;uniqueIndex:idx_pack_version"`
	AllowedVocab    VocabSets   `json:"allowed_vocab" gorm:"type:jsonb"`
	BannedTerms     StringSlice `json:"banned_terms" gorm:"type:jsonb;default:'[]'"`
	ReadingLevelMax float64     `json:"reading_level_max" gorm:"not null;default:1.5"`
	CreatedAt       time.Time   `json:"created_at"`
}

func (KnowledgePack) TableName() string {
	return "knowledge_packs"
}

func (p *KnowledgePack) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	return nil
}
