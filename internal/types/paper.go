package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PaperStatusDraft     = "draft"
	PaperStatusFinalized = "finalized"
	PaperStatusPublished = "published"
)

// PaperPlacement is a question's position, number and awarded marks within a
// section. Numbers are 1-based and contiguous within their section.
type PaperPlacement struct {
	QuestionID uuid.UUID `json:"question_id"`
	Number     int       `json:"number"`
	Marks      int       `json:"marks"`
	Required   bool      `json:"required"`
}

type PaperSection struct {
	Name             string           `json:"name"`
	Instructions     string           `json:"instructions,omitempty"`
	TimeLimitMinutes int              `json:"time_limit_minutes"`
	Placements       []PaperPlacement `json:"placements"`
}

type Paper struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	OrganizationID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"organization_id"`
	LayoutID         *uuid.UUID     `gorm:"type:uuid;index" json:"layout_id,omitempty"`
	Title            string         `gorm:"column:title;not null" json:"title"`
	Description      string         `gorm:"column:description" json:"description"`
	Status           string         `gorm:"column:status;not null;default:draft;index" json:"status"`
	Version          int            `gorm:"column:version;not null;default:0" json:"version"`
	Sections         datatypes.JSON `gorm:"column:sections;type:jsonb" json:"sections"`
	TotalMarks       int            `gorm:"column:total_marks;not null;default:0" json:"total_marks"`
	TotalTimeMinutes int            `gorm:"column:total_time_minutes;not null;default:0" json:"total_time_minutes"`
	Artifacts        []*PaperArtifact `gorm:"foreignKey:PaperID;references:ID" json:"artifacts,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Paper) TableName() string { return "paper" }

// DecodeSections unmarshals the jsonb sections column.
func (p *Paper) DecodeSections() ([]PaperSection, error) {
	if len(p.Sections) == 0 {
		return []PaperSection{}, nil
	}
	var sections []PaperSection
	if err := json.Unmarshal(p.Sections, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// EncodeSections marshals sections back onto the model.
func (p *Paper) EncodeSections(sections []PaperSection) error {
	raw, err := json.Marshal(sections)
	if err != nil {
		return err
	}
	p.Sections = datatypes.JSON(raw)
	return nil
}

func MustEncodeSections(sections []PaperSection) datatypes.JSON {
	raw, err := json.Marshal(sections)
	if err != nil {
		return datatypes.JSON([]byte(`[]`))
	}
	return datatypes.JSON(raw)
}
