package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ArtifactTypeQuestionPaper = "question_paper"
	ArtifactTypeAnswerSheet   = "answer_sheet"
	ArtifactTypeSolutionPaper = "solution_paper"
	// Reserved for future document kinds.
	ArtifactTypePassage      = "passage"
	ArtifactTypeMarkingGuide = "marking_guide"
	ArtifactTypeOther        = "other"
)

type PaperArtifact struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PaperID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"paper_id"`
	Type        string         `gorm:"column:type;not null;index" json:"type"`
	FileName    string         `gorm:"column:file_name;not null" json:"file_name"`
	StorageKey  string         `gorm:"column:storage_key;not null" json:"storage_key"`
	SizeBytes   int64          `gorm:"column:size_bytes;not null;default:0" json:"size_bytes"`
	GeneratedAt time.Time      `gorm:"column:generated_at;not null" json:"generated_at"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PaperArtifact) TableName() string { return "paper_artifact" }

func ValidArtifactType(t string) bool {
	switch t {
	case ArtifactTypeQuestionPaper, ArtifactTypeAnswerSheet, ArtifactTypeSolutionPaper,
		ArtifactTypePassage, ArtifactTypeMarkingGuide, ArtifactTypeOther:
		return true
	default:
		return false
	}
}
