package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Blueprint struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"organization_id"`
	Name           string         `gorm:"column:name;not null" json:"name"`
	Subject        string         `gorm:"column:subject" json:"subject"`
	Sections       datatypes.JSON `gorm:"column:sections;type:jsonb" json:"sections"`
	Constraints    datatypes.JSON `gorm:"column:constraints;type:jsonb" json:"constraints"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Blueprint) TableName() string { return "blueprint" }
