package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/paperforge-backend/internal/logger"
	"github.com/yungbote/paperforge-backend/internal/types"
)

type PaperArtifactRepo interface {
	ListByPaper(ctx context.Context, tx *gorm.DB, paperID uuid.UUID) ([]*types.PaperArtifact, error)
	GetByPaperAndType(ctx context.Context, tx *gorm.DB, paperID uuid.UUID, artifactType string) (*types.PaperArtifact, error)
	// ReplaceForPaper swaps the paper's whole artifact list in one
	// transaction; the render pipeline is last-writer-wins by design.
	ReplaceForPaper(ctx context.Context, tx *gorm.DB, paperID uuid.UUID, artifacts []*types.PaperArtifact) error
	DeleteByPaper(ctx context.Context, tx *gorm.DB, paperID uuid.UUID) error
}

type paperArtifactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPaperArtifactRepo(db *gorm.DB, baseLog *logger.Logger) PaperArtifactRepo {
	return &paperArtifactRepo{db: db, log: baseLog.With("repo", "PaperArtifactRepo")}
}

func (r *paperArtifactRepo) ListByPaper(ctx context.Context, tx *gorm.DB, paperID uuid.UUID) ([]*types.PaperArtifact, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PaperArtifact
	if err := transaction.WithContext(ctx).
		Where("paper_id = ?", paperID).
		Order("type ASC").
		Find(&out).Error; err != nil {
		return nil, MapError("PaperArtifactRepo.ListByPaper", err)
	}
	return out, nil
}

func (r *paperArtifactRepo) GetByPaperAndType(ctx context.Context, tx *gorm.DB, paperID uuid.UUID, artifactType string) (*types.PaperArtifact, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var artifact types.PaperArtifact
	err := transaction.WithContext(ctx).
		Where("paper_id = ? AND type = ?", paperID, artifactType).
		Order("generated_at DESC").
		Limit(1).
		Find(&artifact).Error
	if err != nil {
		return nil, MapError("PaperArtifactRepo.GetByPaperAndType", err)
	}
	if artifact.ID == uuid.Nil {
		return nil, nil
	}
	return &artifact, nil
}

func (r *paperArtifactRepo) ReplaceForPaper(ctx context.Context, tx *gorm.DB, paperID uuid.UUID, artifacts []*types.PaperArtifact) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Unscoped().
			Where("paper_id = ?", paperID).
			Delete(&types.PaperArtifact{}).Error; err != nil {
			return err
		}
		if len(artifacts) == 0 {
			return nil
		}
		return txx.Create(&artifacts).Error
	})
	if err != nil {
		return MapError("PaperArtifactRepo.ReplaceForPaper", err)
	}
	return nil
}

func (r *paperArtifactRepo) DeleteByPaper(ctx context.Context, tx *gorm.DB, paperID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Unscoped().
		Where("paper_id = ?", paperID).
		Delete(&types.PaperArtifact{}).Error; err != nil {
		return MapError("PaperArtifactRepo.DeleteByPaper", err)
	}
	return nil
}
