package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RenderJobStatusQueued    = "queued"
	RenderJobStatusRunning   = "running"
	RenderJobStatusSucceeded = "succeeded"
	RenderJobStatusFailed    = "failed"
)

// RenderJob carries one paper id through the async rendering pipeline.
// Re-running a job for the same paper is safe: the pipeline always replaces
// the artifact list wholesale.
type RenderJob struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PaperID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"paper_id"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"organization_id"`
	Status         string         `gorm:"column:status;not null;index" json:"status"`
	Attempts       int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Error          string         `gorm:"column:error" json:"error"`
	LastErrorAt    *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	LockedAt       *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt    *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (RenderJob) TableName() string { return "render_job" }
