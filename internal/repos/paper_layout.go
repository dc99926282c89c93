package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/paperforge-backend/internal/logger"
	"github.com/yungbote/paperforge-backend/internal/types"
)

type PaperLayoutRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, orgID, layoutID uuid.UUID) (*types.PaperLayout, error)
	GetDefault(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) (*types.PaperLayout, error)
	ListByOrganization(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.PaperLayout, error)
}

type paperLayoutRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPaperLayoutRepo(db *gorm.DB, baseLog *logger.Logger) PaperLayoutRepo {
	return &paperLayoutRepo{db: db, log: baseLog.With("repo", "PaperLayoutRepo")}
}

func (r *paperLayoutRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID, layoutID uuid.UUID) (*types.PaperLayout, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var layout types.PaperLayout
	err := transaction.WithContext(ctx).
		Where("id = ? AND organization_id = ?", layoutID, orgID).
		Limit(1).
		Find(&layout).Error
	if err != nil {
		return nil, MapError("PaperLayoutRepo.GetByID", err)
	}
	if layout.ID == uuid.Nil {
		return nil, nil
	}
	return &layout, nil
}

func (r *paperLayoutRepo) GetDefault(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) (*types.PaperLayout, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var layout types.PaperLayout
	err := transaction.WithContext(ctx).
		Where("organization_id = ? AND is_default = ?", orgID, true).
		Limit(1).
		Find(&layout).Error
	if err != nil {
		return nil, MapError("PaperLayoutRepo.GetDefault", err)
	}
	if layout.ID == uuid.Nil {
		return nil, nil
	}
	return &layout, nil
}

func (r *paperLayoutRepo) ListByOrganization(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.PaperLayout, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PaperLayout
	if err := transaction.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, MapError("PaperLayoutRepo.ListByOrganization", err)
	}
	return out, nil
}
