package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/paperforge-backend/internal/domain"
	domblueprint "github.com/yungbote/paperforge-backend/internal/domain/blueprint"
	dompaper "github.com/yungbote/paperforge-backend/internal/domain/paper"
	"github.com/yungbote/paperforge-backend/internal/logger"
	"github.com/yungbote/paperforge-backend/internal/repos"
	"github.com/yungbote/paperforge-backend/internal/types"
)

type GeneratePaperRequest struct {
	BlueprintID uuid.UUID  `json:"blueprint_id"`
	Title       string     `json:"title,omitempty"`
	LayoutID    *uuid.UUID `json:"layout_id,omitempty"`
	// Constraint overrides; nil fields keep the blueprint's values.
	ExcludeRecentlyUsed *bool       `json:"exclude_recently_used,omitempty"`
	RecentWindowDays    *int        `json:"recent_window_days,omitempty"`
	ExtraExcludeIDs     []uuid.UUID `json:"extra_exclude_ids,omitempty"`
}

type PaperGenerationService interface {
	// Generate fills a draft paper from a blueprint in one transaction-like
	// run; a failed section fails the whole run and creates no paper.
	Generate(ctx context.Context, tenantID, orgID uuid.UUID, req GeneratePaperRequest) (*types.Paper, error)
}

type paperGenerationService struct {
	db            *gorm.DB
	log           *logger.Logger
	paperRepo     repos.PaperRepo
	questionRepo  repos.QuestionRepo
	blueprintRepo repos.BlueprintRepo
}

func NewPaperGenerationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	paperRepo repos.PaperRepo,
	questionRepo repos.QuestionRepo,
	blueprintRepo repos.BlueprintRepo,
) PaperGenerationService {
	return &paperGenerationService{
		db:            db,
		log:           baseLog.With("service", "PaperGenerationService"),
		paperRepo:     paperRepo,
		questionRepo:  questionRepo,
		blueprintRepo: blueprintRepo,
	}
}

func (s *paperGenerationService) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.db == nil {
		return fn(nil)
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *paperGenerationService) Generate(ctx context.Context, tenantID, orgID uuid.UUID, req GeneratePaperRequest) (*types.Paper, error) {
	const op = "PaperGenerationService.Generate"

	model, err := s.blueprintRepo.GetByID(ctx, nil, orgID, req.BlueprintID)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, domain.NotFoundf(op, "blueprint %s not found", req.BlueprintID)
	}
	def, err := domblueprint.FromModel(model)
	if err != nil {
		return nil, err
	}
	if req.ExcludeRecentlyUsed != nil {
		def.Constraints.ExcludeRecentlyUsed = *req.ExcludeRecentlyUsed
	}
	if req.RecentWindowDays != nil {
		def.Constraints.RecentWindowDays = *req.RecentWindowDays
	}
	if len(req.ExtraExcludeIDs) > 0 {
		def.Constraints.ExcludeQuestionIDs = append(def.Constraints.ExcludeQuestionIDs, req.ExtraExcludeIDs...)
	}
	if err := domblueprint.Validate(def); err != nil {
		return nil, err
	}

	var notUsedSince *time.Time
	if def.Constraints.ExcludeRecentlyUsed {
		cutoff := time.Now().AddDate(0, 0, -def.Constraints.RecentWindowDays)
		notUsedSince = &cutoff
	}

	title := req.Title
	if title == "" {
		title = def.Name
	}

	var paper *types.Paper
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		// Ids drawn for earlier sections are excluded for later ones so no
		// question appears twice in the paper.
		running := append([]uuid.UUID{}, def.Constraints.ExcludeQuestionIDs...)
		sections := make([]types.PaperSection, 0, len(def.Sections))
		var selectedIDs []uuid.UUID

		for _, plan := range def.Sections {
			pool, err := s.questionRepo.Search(ctx, tx, repos.QuestionFilter{
				OrganizationID: orgID,
				Types:          plan.QuestionTypes,
				ApprovedOnly:   def.Constraints.ApprovedOnly,
				ExcludeIDs:     running,
				NotUsedSince:   notUsedSince,
			})
			if err != nil {
				return err
			}
			selected, err := domblueprint.SelectForSection(plan, pool)
			if err != nil {
				return err
			}
			placements := make([]types.PaperPlacement, 0, len(selected))
			for i, q := range selected {
				marks := plan.MarksPerQuestion
				if plan.MixedMarks {
					marks = q.DefaultMarks
				}
				placements = append(placements, types.PaperPlacement{
					QuestionID: q.ID,
					Number:     i + 1,
					Marks:      marks,
					Required:   true,
				})
				running = append(running, q.ID)
				selectedIDs = append(selectedIDs, q.ID)
			}
			sections = append(sections, types.PaperSection{
				Name:             plan.Name,
				Instructions:     plan.Instructions,
				TimeLimitMinutes: plan.TimeLimitMinutes,
				Placements:       placements,
			})
		}

		totalMarks, totalTime := dompaper.Totals(sections)
		now := time.Now()
		paper = &types.Paper{
			ID:               uuid.New(),
			TenantID:         tenantID,
			OrganizationID:   orgID,
			LayoutID:         req.LayoutID,
			Title:            title,
			Status:           types.PaperStatusDraft,
			Version:          0,
			Sections:         types.MustEncodeSections(sections),
			TotalMarks:       totalMarks,
			TotalTimeMinutes: totalTime,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if _, err := s.paperRepo.Create(ctx, tx, []*types.Paper{paper}); err != nil {
			return err
		}
		for _, id := range selectedIDs {
			if err := s.questionRepo.AdjustUsage(ctx, tx, id, +1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Generated paper from blueprint",
		"paper_id", paper.ID, "blueprint_id", req.BlueprintID, "sections", len(def.Sections))
	return paper, nil
}
