package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/paperforge-backend/internal/domain"
	dompaper "github.com/yungbote/paperforge-backend/internal/domain/paper"
	"github.com/yungbote/paperforge-backend/internal/logger"
	"github.com/yungbote/paperforge-backend/internal/repos"
	"github.com/yungbote/paperforge-backend/internal/types"
)

type SwapAdvisorService interface {
	// SuggestSwaps lists approved, unarchived bank questions sharing the
	// placed question's topic and difficulty, excluding everything already
	// placed anywhere in the paper. Unranked.
	SuggestSwaps(ctx context.Context, orgID, paperID uuid.UUID, sectionIndex, questionNumber int) ([]*types.Question, error)
}

type swapAdvisorService struct {
	db           *gorm.DB
	log          *logger.Logger
	paperRepo    repos.PaperRepo
	questionRepo repos.QuestionRepo
}

func NewSwapAdvisorService(db *gorm.DB, baseLog *logger.Logger, paperRepo repos.PaperRepo, questionRepo repos.QuestionRepo) SwapAdvisorService {
	return &swapAdvisorService{
		db:           db,
		log:          baseLog.With("service", "SwapAdvisorService"),
		paperRepo:    paperRepo,
		questionRepo: questionRepo,
	}
}

func (s *swapAdvisorService) SuggestSwaps(ctx context.Context, orgID, paperID uuid.UUID, sectionIndex, questionNumber int) ([]*types.Question, error) {
	const op = "SwapAdvisorService.SuggestSwaps"
	paper, err := s.paperRepo.GetByID(ctx, nil, orgID, paperID)
	if err != nil {
		return nil, err
	}
	if paper == nil {
		return nil, domain.NotFoundf(op, "paper %s not found", paperID)
	}
	sections, err := paper.DecodeSections()
	if err != nil {
		return nil, domain.Wrap(domain.CodeInternal, op, err)
	}
	placement, err := dompaper.FindPlacement(sections, sectionIndex, questionNumber)
	if err != nil {
		return nil, err
	}
	placed, err := s.questionRepo.GetByIDs(ctx, nil, orgID, []uuid.UUID{placement.QuestionID})
	if err != nil {
		return nil, err
	}
	if len(placed) == 0 {
		return nil, domain.NotFoundf(op, "placed question %s no longer exists", placement.QuestionID)
	}
	target := placed[0]
	return s.questionRepo.Search(ctx, nil, repos.QuestionFilter{
		OrganizationID: orgID,
		TopicIDs:       []uuid.UUID{target.TopicID},
		Difficulties:   []string{target.Difficulty},
		ApprovedOnly:   true,
		ExcludeIDs:     dompaper.PlacedQuestionIDs(sections),
	})
}
