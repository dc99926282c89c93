package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/paperforge-backend/internal/logger"
	"github.com/yungbote/paperforge-backend/internal/types"
)

type PaperRepo interface {
	Create(ctx context.Context, tx *gorm.DB, papers []*types.Paper) ([]*types.Paper, error)
	GetByID(ctx context.Context, tx *gorm.DB, orgID, paperID uuid.UUID) (*types.Paper, error)
	ListByOrganization(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.Paper, error)
	// UpdateByVersion applies updates only when the stored version still
	// matches. Returns false on a compare-and-set miss.
	UpdateByVersion(ctx context.Context, tx *gorm.DB, paperID uuid.UUID, expectedVersion int, updates map[string]interface{}) (bool, error)
	// UpdateByStatus applies updates only while the paper is in one of the
	// allowed statuses. Used for the worker's compensating revert.
	UpdateByStatus(ctx context.Context, tx *gorm.DB, paperID uuid.UUID, allowedStatuses []string, updates map[string]interface{}) (bool, error)
	SoftDelete(ctx context.Context, tx *gorm.DB, paperID uuid.UUID) error
}

type paperRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPaperRepo(db *gorm.DB, baseLog *logger.Logger) PaperRepo {
	return &paperRepo{db: db, log: baseLog.With("repo", "PaperRepo")}
}

func (r *paperRepo) Create(ctx context.Context, tx *gorm.DB, papers []*types.Paper) ([]*types.Paper, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(papers) == 0 {
		return []*types.Paper{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&papers).Error; err != nil {
		return nil, MapError("PaperRepo.Create", err)
	}
	return papers, nil
}

func (r *paperRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID, paperID uuid.UUID) (*types.Paper, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var paper types.Paper
	err := transaction.WithContext(ctx).
		Preload("Artifacts").
		Where("id = ? AND organization_id = ?", paperID, orgID).
		Limit(1).
		Find(&paper).Error
	if err != nil {
		return nil, MapError("PaperRepo.GetByID", err)
	}
	if paper.ID == uuid.Nil {
		return nil, nil
	}
	return &paper, nil
}

func (r *paperRepo) ListByOrganization(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.Paper, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Paper
	if err := transaction.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, MapError("PaperRepo.ListByOrganization", err)
	}
	return out, nil
}

func (r *paperRepo) UpdateByVersion(ctx context.Context, tx *gorm.DB, paperID uuid.UUID, expectedVersion int, updates map[string]interface{}) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(ctx).
		Model(&types.Paper{}).
		Where("id = ? AND version = ?", paperID, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return false, MapError("PaperRepo.UpdateByVersion", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *paperRepo) UpdateByStatus(ctx context.Context, tx *gorm.DB, paperID uuid.UUID, allowedStatuses []string, updates map[string]interface{}) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(ctx).
		Model(&types.Paper{}).
		Where("id = ? AND status IN ?", paperID, allowedStatuses).
		Updates(updates)
	if res.Error != nil {
		return false, MapError("PaperRepo.UpdateByStatus", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *paperRepo) SoftDelete(ctx context.Context, tx *gorm.DB, paperID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("id = ?", paperID).
		Delete(&types.Paper{}).Error; err != nil {
		return MapError("PaperRepo.SoftDelete", err)
	}
	return nil
}
