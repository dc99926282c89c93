package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/paperforge-backend/internal/logger"
	"github.com/yungbote/paperforge-backend/internal/types"
)

type BlueprintRepo interface {
	Create(ctx context.Context, tx *gorm.DB, blueprints []*types.Blueprint) ([]*types.Blueprint, error)
	GetByID(ctx context.Context, tx *gorm.DB, orgID, blueprintID uuid.UUID) (*types.Blueprint, error)
	ListByOrganization(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.Blueprint, error)
}

type blueprintRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBlueprintRepo(db *gorm.DB, baseLog *logger.Logger) BlueprintRepo {
	return &blueprintRepo{db: db, log: baseLog.With("repo", "BlueprintRepo")}
}

func (r *blueprintRepo) Create(ctx context.Context, tx *gorm.DB, blueprints []*types.Blueprint) ([]*types.Blueprint, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(blueprints) == 0 {
		return []*types.Blueprint{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&blueprints).Error; err != nil {
		return nil, MapError("BlueprintRepo.Create", err)
	}
	return blueprints, nil
}

func (r *blueprintRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID, blueprintID uuid.UUID) (*types.Blueprint, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var blueprint types.Blueprint
	err := transaction.WithContext(ctx).
		Where("id = ? AND organization_id = ?", blueprintID, orgID).
		Limit(1).
		Find(&blueprint).Error
	if err != nil {
		return nil, MapError("BlueprintRepo.GetByID", err)
	}
	if blueprint.ID == uuid.Nil {
		return nil, nil
	}
	return &blueprint, nil
}

func (r *blueprintRepo) ListByOrganization(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.Blueprint, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Blueprint
	if err := transaction.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, MapError("BlueprintRepo.ListByOrganization", err)
	}
	return out, nil
}
