package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/paperforge-backend/internal/logger"
	"github.com/yungbote/paperforge-backend/internal/types"
)

// QuestionFilter is the read contract against the question bank. Archived
// questions are always excluded.
type QuestionFilter struct {
	OrganizationID uuid.UUID
	Types          []string
	TopicIDs       []uuid.UUID
	Difficulties   []string
	ApprovedOnly   bool
	ExcludeIDs     []uuid.UUID
	// NotUsedSince excludes questions whose last_used_at falls on or after
	// the cutoff (recency exclusion).
	NotUsedSince *time.Time
	Limit        int
}

// QuestionRepo is the query surface of the question bank plus the usage
// counter operations; the bank's own CRUD and review workflow live elsewhere.
type QuestionRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, questionIDs []uuid.UUID) ([]*types.Question, error)
	Search(ctx context.Context, tx *gorm.DB, filter QuestionFilter) ([]*types.Question, error)
	// AdjustUsage moves the usage counter by delta (+1 on placement, -1 on
	// removal) and stamps last_used_at on increments.
	AdjustUsage(ctx context.Context, tx *gorm.DB, questionID uuid.UUID, delta int) error
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	return &questionRepo{db: db, log: baseLog.With("repo", "QuestionRepo")}
}

func (r *questionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, questionIDs []uuid.UUID) ([]*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Question
	if len(questionIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ? AND organization_id = ?", questionIDs, orgID).
		Find(&out).Error; err != nil {
		return nil, MapError("QuestionRepo.GetByIDs", err)
	}
	return out, nil
}

func (r *questionRepo) Search(ctx context.Context, tx *gorm.DB, filter QuestionFilter) ([]*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Where("organization_id = ? AND archived = ?", filter.OrganizationID, false)
	if len(filter.Types) > 0 {
		q = q.Where("type IN ?", filter.Types)
	}
	if len(filter.TopicIDs) > 0 {
		q = q.Where("topic_id IN ?", filter.TopicIDs)
	}
	if len(filter.Difficulties) > 0 {
		q = q.Where("difficulty IN ?", filter.Difficulties)
	}
	if filter.ApprovedOnly {
		q = q.Where("approval_status = ?", types.ApprovalStatusApproved)
	}
	if len(filter.ExcludeIDs) > 0 {
		q = q.Where("id NOT IN ?", filter.ExcludeIDs)
	}
	if filter.NotUsedSince != nil {
		q = q.Where("last_used_at IS NULL OR last_used_at < ?", *filter.NotUsedSince)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var out []*types.Question
	if err := q.Order("usage_count ASC, created_at ASC").Find(&out).Error; err != nil {
		return nil, MapError("QuestionRepo.Search", err)
	}
	return out, nil
}

func (r *questionRepo) AdjustUsage(ctx context.Context, tx *gorm.DB, questionID uuid.UUID, delta int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if questionID == uuid.Nil || delta == 0 {
		return nil
	}
	updates := map[string]interface{}{
		"usage_count": gorm.Expr("GREATEST(usage_count + ?, 0)", delta),
		"updated_at":  time.Now(),
	}
	if delta > 0 {
		updates["last_used_at"] = time.Now()
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Question{}).
		Where("id = ?", questionID).
		Updates(updates).Error; err != nil {
		return MapError("QuestionRepo.AdjustUsage", err)
	}
	return nil
}
