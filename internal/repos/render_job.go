package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/paperforge-backend/internal/logger"
	"github.com/yungbote/paperforge-backend/internal/types"
)

type RenderJobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, jobs []*types.RenderJob) ([]*types.RenderJob, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.RenderJob, error)
	GetLatestByPaper(ctx context.Context, tx *gorm.DB, paperID uuid.UUID) (*types.RenderJob, error)
	// ClaimNextRunnable picks the oldest queued job, or a failed one below
	// the attempt limit past its retry delay, or a running one with a stale
	// heartbeat, and marks it running with attempts incremented.
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.RenderJob, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type renderJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRenderJobRepo(db *gorm.DB, baseLog *logger.Logger) RenderJobRepo {
	return &renderJobRepo{db: db, log: baseLog.With("repo", "RenderJobRepo")}
}

func (r *renderJobRepo) Create(ctx context.Context, tx *gorm.DB, jobs []*types.RenderJob) ([]*types.RenderJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(jobs) == 0 {
		return []*types.RenderJob{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&jobs).Error; err != nil {
		return nil, MapError("RenderJobRepo.Create", err)
	}
	return jobs, nil
}

func (r *renderJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.RenderJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.RenderJob
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, MapError("RenderJobRepo.GetByID", err)
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *renderJobRepo) GetLatestByPaper(ctx context.Context, tx *gorm.DB, paperID uuid.UUID) (*types.RenderJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if paperID == uuid.Nil {
		return nil, nil
	}
	var job types.RenderJob
	err := transaction.WithContext(ctx).
		Where("paper_id = ?", paperID).
		Order("created_at DESC").
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, MapError("RenderJobRepo.GetLatestByPaper", err)
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *renderJobRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.RenderJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	retryCutoff := now.Add(-retryDelay)
	staleCutoff := now.Add(-staleRunning)
	var claimed *types.RenderJob
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var job types.RenderJob
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
				(
					status = ?
					OR (
						status = ?
						AND attempts < ?
						AND (last_error_at IS NULL OR last_error_at < ?)
					)
					OR (
						status = ?
						AND heartbeat_at IS NOT NULL
						AND heartbeat_at < ?
					)
				)
			`, types.RenderJobStatusQueued,
				types.RenderJobStatusFailed, maxAttempts, retryCutoff,
				types.RenderJobStatusRunning, staleCutoff).
			Order("created_at ASC")
		qErr := q.First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.RenderJob{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":       types.RenderJobStatusRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}
		job.Status = types.RenderJobStatusRunning
		job.Attempts = job.Attempts + 1
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, MapError("RenderJobRepo.ClaimNextRunnable", err)
	}
	return claimed, nil
}

func (r *renderJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	if err := transaction.WithContext(ctx).
		Model(&types.RenderJob{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return MapError("RenderJobRepo.UpdateFields", err)
	}
	return nil
}

func (r *renderJobRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	if err := transaction.WithContext(ctx).
		Model(&types.RenderJob{}).
		Where("id = ? AND status = ?", id, types.RenderJobStatusRunning).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error; err != nil {
		return MapError("RenderJobRepo.Heartbeat", err)
	}
	return nil
}
