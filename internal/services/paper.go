package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/paperforge-backend/internal/domain"
	dompaper "github.com/yungbote/paperforge-backend/internal/domain/paper"
	"github.com/yungbote/paperforge-backend/internal/logger"
	"github.com/yungbote/paperforge-backend/internal/repos"
	"github.com/yungbote/paperforge-backend/internal/types"
)

type SectionDefinition struct {
	Name             string `json:"name"`
	Instructions     string `json:"instructions"`
	TimeLimitMinutes int    `json:"time_limit_minutes"`
}

type CreatePaperRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	LayoutID    *uuid.UUID          `json:"layout_id,omitempty"`
	Sections    []SectionDefinition `json:"sections"`
}

type UpdatePaperRequest struct {
	Title           *string              `json:"title,omitempty"`
	Description     *string              `json:"description,omitempty"`
	LayoutID        *uuid.UUID           `json:"layout_id,omitempty"`
	Sections        *[]SectionDefinition `json:"sections,omitempty"`
	ExpectedVersion *int                 `json:"expected_version,omitempty"`
}

type AddQuestionsRequest struct {
	SectionIndex    int         `json:"section_index"`
	QuestionIDs     []uuid.UUID `json:"question_ids"`
	MarksOverride   *int        `json:"marks_override,omitempty"`
	Required        bool        `json:"required"`
	ExpectedVersion *int        `json:"expected_version,omitempty"`
}

type SwapQuestionRequest struct {
	SectionIndex    int        `json:"section_index"`
	QuestionNumber  int        `json:"question_number"`
	NewQuestionID   uuid.UUID  `json:"new_question_id"`
	MarksOverride   *int       `json:"marks_override,omitempty"`
	ExpectedVersion *int       `json:"expected_version,omitempty"`
}

type PaperService interface {
	Create(ctx context.Context, tenantID, orgID uuid.UUID, req CreatePaperRequest) (*types.Paper, error)
	Get(ctx context.Context, orgID, paperID uuid.UUID) (*types.Paper, error)
	List(ctx context.Context, orgID uuid.UUID) ([]*types.Paper, error)
	Update(ctx context.Context, orgID, paperID uuid.UUID, req UpdatePaperRequest) (*types.Paper, error)
	Delete(ctx context.Context, orgID, paperID uuid.UUID) error
	AddQuestions(ctx context.Context, orgID, paperID uuid.UUID, req AddQuestionsRequest) (*types.Paper, error)
	RemoveQuestion(ctx context.Context, orgID, paperID uuid.UUID, sectionIndex, questionNumber int, expectedVersion *int) (*types.Paper, error)
	ReorderSection(ctx context.Context, orgID, paperID uuid.UUID, sectionIndex int, orderedIDs []uuid.UUID, expectedVersion *int) (*types.Paper, error)
	SwapQuestion(ctx context.Context, orgID, paperID uuid.UUID, req SwapQuestionRequest) (*types.Paper, error)
	Finalize(ctx context.Context, orgID, paperID uuid.UUID, expectedVersion *int) (*types.Paper, *types.RenderJob, error)
	Publish(ctx context.Context, orgID, paperID uuid.UUID) (*types.Paper, error)
	Unfinalize(ctx context.Context, orgID, paperID uuid.UUID) (*types.Paper, error)
	ArtifactDownloadURL(ctx context.Context, orgID, paperID uuid.UUID, artifactType string) (string, error)
	// LatestRenderJob returns the newest render job for the paper, or nil
	// when the paper has never been finalized.
	LatestRenderJob(ctx context.Context, orgID, paperID uuid.UUID) (*types.RenderJob, error)
	ListArtifacts(ctx context.Context, orgID, paperID uuid.UUID) ([]*types.PaperArtifact, error)
}

type paperService struct {
	db           *gorm.DB
	log          *logger.Logger
	paperRepo    repos.PaperRepo
	questionRepo repos.QuestionRepo
	artifactRepo repos.PaperArtifactRepo
	jobRepo      repos.RenderJobRepo
	bucket       BucketService
	signedURLTTL time.Duration
}

func NewPaperService(
	db *gorm.DB,
	baseLog *logger.Logger,
	paperRepo repos.PaperRepo,
	questionRepo repos.QuestionRepo,
	artifactRepo repos.PaperArtifactRepo,
	jobRepo repos.RenderJobRepo,
	bucket BucketService,
	signedURLTTL time.Duration,
) PaperService {
	if signedURLTTL <= 0 {
		signedURLTTL = 15 * time.Minute
	}
	return &paperService{
		db:           db,
		log:          baseLog.With("service", "PaperService"),
		paperRepo:    paperRepo,
		questionRepo: questionRepo,
		artifactRepo: artifactRepo,
		jobRepo:      jobRepo,
		bucket:       bucket,
		signedURLTTL: signedURLTTL,
	}
}

func (s *paperService) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.db == nil {
		return fn(nil)
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *paperService) Create(ctx context.Context, tenantID, orgID uuid.UUID, req CreatePaperRequest) (*types.Paper, error) {
	const op = "PaperService.Create"
	if req.Title == "" {
		return nil, domain.Validationf(op, "title is required")
	}
	sections := make([]types.PaperSection, 0, len(req.Sections))
	for _, def := range req.Sections {
		sections = append(sections, types.PaperSection{
			Name:             def.Name,
			Instructions:     def.Instructions,
			TimeLimitMinutes: def.TimeLimitMinutes,
			Placements:       []types.PaperPlacement{},
		})
	}
	totalMarks, totalTime := dompaper.Totals(sections)
	now := time.Now()
	paper := &types.Paper{
		ID:               uuid.New(),
		TenantID:         tenantID,
		OrganizationID:   orgID,
		LayoutID:         req.LayoutID,
		Title:            req.Title,
		Description:      req.Description,
		Status:           types.PaperStatusDraft,
		Version:          0,
		Sections:         types.MustEncodeSections(sections),
		TotalMarks:       totalMarks,
		TotalTimeMinutes: totalTime,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := s.paperRepo.Create(ctx, nil, []*types.Paper{paper}); err != nil {
		return nil, err
	}
	return paper, nil
}

func (s *paperService) Get(ctx context.Context, orgID, paperID uuid.UUID) (*types.Paper, error) {
	const op = "PaperService.Get"
	paper, err := s.paperRepo.GetByID(ctx, nil, orgID, paperID)
	if err != nil {
		return nil, err
	}
	if paper == nil {
		return nil, domain.NotFoundf(op, "paper %s not found", paperID)
	}
	return paper, nil
}

func (s *paperService) List(ctx context.Context, orgID uuid.UUID) ([]*types.Paper, error) {
	return s.paperRepo.ListByOrganization(ctx, nil, orgID)
}

func (s *paperService) Update(ctx context.Context, orgID, paperID uuid.UUID, req UpdatePaperRequest) (*types.Paper, error) {
	const op = "PaperService.Update"
	paper, err := s.Get(ctx, orgID, paperID)
	if err != nil {
		return nil, err
	}
	if err := dompaper.RequireStatus(op, paper.Status, types.PaperStatusDraft); err != nil {
		return nil, err
	}
	if err := dompaper.RequireVersion(op, paper.Version, req.ExpectedVersion); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"version": paper.Version + 1}
	if req.Title != nil {
		if *req.Title == "" {
			return nil, domain.Validationf(op, "title cannot be empty")
		}
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.LayoutID != nil {
		updates["layout_id"] = *req.LayoutID
	}

	var removedQuestionIDs []uuid.UUID
	if req.Sections != nil {
		current, err := paper.DecodeSections()
		if err != nil {
			return nil, domain.Wrap(domain.CodeInternal, op, err)
		}
		next := make([]types.PaperSection, 0, len(*req.Sections))
		for i, def := range *req.Sections {
			section := types.PaperSection{
				Name:             def.Name,
				Instructions:     def.Instructions,
				TimeLimitMinutes: def.TimeLimitMinutes,
				Placements:       []types.PaperPlacement{},
			}
			// Placements survive a metadata edit of an existing section.
			if i < len(current) {
				section.Placements = current[i].Placements
			}
			next = append(next, section)
		}
		// Placements in dropped sections release their usage counters.
		for i := len(*req.Sections); i < len(current); i++ {
			for _, p := range current[i].Placements {
				removedQuestionIDs = append(removedQuestionIDs, p.QuestionID)
			}
		}
		totalMarks, totalTime := dompaper.Totals(next)
		updates["sections"] = types.MustEncodeSections(next)
		updates["total_marks"] = totalMarks
		updates["total_time_minutes"] = totalTime
	}

	err = s.inTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.paperRepo.UpdateByVersion(ctx, tx, paperID, paper.Version, updates)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflictf(op, "paper was modified concurrently; reload and retry")
		}
		for _, id := range removedQuestionIDs {
			if err := s.questionRepo.AdjustUsage(ctx, tx, id, -1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orgID, paperID)
}

func (s *paperService) Delete(ctx context.Context, orgID, paperID uuid.UUID) error {
	const op = "PaperService.Delete"
	paper, err := s.Get(ctx, orgID, paperID)
	if err != nil {
		return err
	}
	if err := dompaper.RequireStatus(op, paper.Status, types.PaperStatusDraft); err != nil {
		return err
	}
	sections, err := paper.DecodeSections()
	if err != nil {
		return domain.Wrap(domain.CodeInternal, op, err)
	}
	// Storage cleanup is best-effort: the database row, not storage residue,
	// is the source of truth.
	if s.bucket != nil {
		if err := s.bucket.DeletePrefix(ctx, paperStoragePrefix(orgID, paperID)); err != nil {
			s.log.Warn("Artifact storage cleanup failed during delete", "paper_id", paperID, "error", err)
		}
	}
	return s.inTx(ctx, func(tx *gorm.DB) error {
		if err := s.artifactRepo.DeleteByPaper(ctx, tx, paperID); err != nil {
			return err
		}
		for _, id := range dompaper.PlacedQuestionIDs(sections) {
			if err := s.questionRepo.AdjustUsage(ctx, tx, id, -1); err != nil {
				return err
			}
		}
		return s.paperRepo.SoftDelete(ctx, tx, paperID)
	})
}

// validateBankQuestions checks existence, organization ownership, and archive
// state for every id, returning the questions keyed by id.
func (s *paperService) validateBankQuestions(ctx context.Context, op string, orgID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*types.Question, error) {
	questions, err := s.questionRepo.GetByIDs(ctx, nil, orgID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return nil, domain.NotFoundf(op, "question %s not found in this organization", id)
		}
		if q.Archived {
			return nil, domain.Validationf(op, "question %s is archived", id)
		}
	}
	return byID, nil
}

func (s *paperService) AddQuestions(ctx context.Context, orgID, paperID uuid.UUID, req AddQuestionsRequest) (*types.Paper, error) {
	const op = "PaperService.AddQuestions"
	paper, err := s.Get(ctx, orgID, paperID)
	if err != nil {
		return nil, err
	}
	if err := dompaper.RequireStatus(op, paper.Status, types.PaperStatusDraft); err != nil {
		return nil, err
	}
	if err := dompaper.RequireVersion(op, paper.Version, req.ExpectedVersion); err != nil {
		return nil, err
	}
	if len(req.QuestionIDs) == 0 {
		return nil, domain.Validationf(op, "no question ids supplied")
	}
	byID, err := s.validateBankQuestions(ctx, op, orgID, req.QuestionIDs)
	if err != nil {
		return nil, err
	}
	sections, err := paper.DecodeSections()
	if err != nil {
		return nil, domain.Wrap(domain.CodeInternal, op, err)
	}
	placements := make([]types.PaperPlacement, 0, len(req.QuestionIDs))
	for _, id := range req.QuestionIDs {
		marks := byID[id].DefaultMarks
		if req.MarksOverride != nil {
			marks = *req.MarksOverride
		}
		placements = append(placements, types.PaperPlacement{
			QuestionID: id,
			Marks:      marks,
			Required:   req.Required,
		})
	}
	next, err := dompaper.AddPlacements(sections, req.SectionIndex, placements)
	if err != nil {
		return nil, err
	}
	if err := s.persistSections(ctx, op, paper, next, req.QuestionIDs, nil); err != nil {
		return nil, err
	}
	return s.Get(ctx, orgID, paperID)
}

func (s *paperService) RemoveQuestion(ctx context.Context, orgID, paperID uuid.UUID, sectionIndex, questionNumber int, expectedVersion *int) (*types.Paper, error) {
	const op = "PaperService.RemoveQuestion"
	paper, err := s.Get(ctx, orgID, paperID)
	if err != nil {
		return nil, err
	}
	if err := dompaper.RequireStatus(op, paper.Status, types.PaperStatusDraft); err != nil {
		return nil, err
	}
	if err := dompaper.RequireVersion(op, paper.Version, expectedVersion); err != nil {
		return nil, err
	}
	sections, err := paper.DecodeSections()
	if err != nil {
		return nil, domain.Wrap(domain.CodeInternal, op, err)
	}
	next, removedID, err := dompaper.RemovePlacement(sections, sectionIndex, questionNumber)
	if err != nil {
		return nil, err
	}
	if err := s.persistSections(ctx, op, paper, next, nil, []uuid.UUID{removedID}); err != nil {
		return nil, err
	}
	return s.Get(ctx, orgID, paperID)
}

func (s *paperService) ReorderSection(ctx context.Context, orgID, paperID uuid.UUID, sectionIndex int, orderedIDs []uuid.UUID, expectedVersion *int) (*types.Paper, error) {
	const op = "PaperService.ReorderSection"
	paper, err := s.Get(ctx, orgID, paperID)
	if err != nil {
		return nil, err
	}
	if err := dompaper.RequireStatus(op, paper.Status, types.PaperStatusDraft); err != nil {
		return nil, err
	}
	if err := dompaper.RequireVersion(op, paper.Version, expectedVersion); err != nil {
		return nil, err
	}
	sections, err := paper.DecodeSections()
	if err != nil {
		return nil, domain.Wrap(domain.CodeInternal, op, err)
	}
	next, err := dompaper.Reorder(sections, sectionIndex, orderedIDs)
	if err != nil {
		return nil, err
	}
	if err := s.persistSections(ctx, op, paper, next, nil, nil); err != nil {
		return nil, err
	}
	return s.Get(ctx, orgID, paperID)
}

func (s *paperService) SwapQuestion(ctx context.Context, orgID, paperID uuid.UUID, req SwapQuestionRequest) (*types.Paper, error) {
	const op = "PaperService.SwapQuestion"
	paper, err := s.Get(ctx, orgID, paperID)
	if err != nil {
		return nil, err
	}
	if err := dompaper.RequireStatus(op, paper.Status, types.PaperStatusDraft); err != nil {
		return nil, err
	}
	if err := dompaper.RequireVersion(op, paper.Version, req.ExpectedVersion); err != nil {
		return nil, err
	}
	byID, err := s.validateBankQuestions(ctx, op, orgID, []uuid.UUID{req.NewQuestionID})
	if err != nil {
		return nil, err
	}
	sections, err := paper.DecodeSections()
	if err != nil {
		return nil, domain.Wrap(domain.CodeInternal, op, err)
	}
	marks := byID[req.NewQuestionID].DefaultMarks
	if req.MarksOverride != nil {
		marks = *req.MarksOverride
	}
	next, oldID, err := dompaper.SwapPlacement(sections, req.SectionIndex, req.QuestionNumber, req.NewQuestionID, marks)
	if err != nil {
		return nil, err
	}
	// The outgoing question must also still exist unarchived in this org.
	if _, err := s.validateBankQuestions(ctx, op, orgID, []uuid.UUID{oldID}); err != nil {
		return nil, err
	}
	if err := s.persistSections(ctx, op, paper, next, []uuid.UUID{req.NewQuestionID}, []uuid.UUID{oldID}); err != nil {
		return nil, err
	}
	return s.Get(ctx, orgID, paperID)
}

// persistSections writes new sections plus recomputed totals under the CAS
// guard and adjusts usage counters in the same transaction.
func (s *paperService) persistSections(ctx context.Context, op string, paper *types.Paper, sections []types.PaperSection, incrementIDs, decrementIDs []uuid.UUID) error {
	totalMarks, totalTime := dompaper.Totals(sections)
	updates := map[string]interface{}{
		"sections":           types.MustEncodeSections(sections),
		"total_marks":        totalMarks,
		"total_time_minutes": totalTime,
		"version":            paper.Version + 1,
	}
	return s.inTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.paperRepo.UpdateByVersion(ctx, tx, paper.ID, paper.Version, updates)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflictf(op, "paper was modified concurrently; reload and retry")
		}
		for _, id := range incrementIDs {
			if err := s.questionRepo.AdjustUsage(ctx, tx, id, +1); err != nil {
				return err
			}
		}
		for _, id := range decrementIDs {
			if err := s.questionRepo.AdjustUsage(ctx, tx, id, -1); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *paperService) Finalize(ctx context.Context, orgID, paperID uuid.UUID, expectedVersion *int) (*types.Paper, *types.RenderJob, error) {
	const op = "PaperService.Finalize"
	paper, err := s.Get(ctx, orgID, paperID)
	if err != nil {
		return nil, nil, err
	}
	if err := dompaper.RequireStatus(op, paper.Status, types.PaperStatusDraft); err != nil {
		return nil, nil, err
	}
	if err := dompaper.RequireVersion(op, paper.Version, expectedVersion); err != nil {
		return nil, nil, err
	}
	sections, err := paper.DecodeSections()
	if err != nil {
		return nil, nil, domain.Wrap(domain.CodeInternal, op, err)
	}
	if err := dompaper.ValidateForFinalize(op, sections); err != nil {
		return nil, nil, err
	}

	now := time.Now()
	job := &types.RenderJob{
		ID:             uuid.New(),
		PaperID:        paper.ID,
		OrganizationID: orgID,
		Status:         types.RenderJobStatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.paperRepo.UpdateByVersion(ctx, tx, paper.ID, paper.Version, map[string]interface{}{
			"status":  types.PaperStatusFinalized,
			"version": paper.Version + 1,
		})
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflictf(op, "paper was modified concurrently; reload and retry")
		}
		_, err = s.jobRepo.Create(ctx, tx, []*types.RenderJob{job})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	updated, err := s.Get(ctx, orgID, paperID)
	if err != nil {
		return nil, nil, err
	}
	return updated, job, nil
}

func (s *paperService) Publish(ctx context.Context, orgID, paperID uuid.UUID) (*types.Paper, error) {
	const op = "PaperService.Publish"
	paper, err := s.Get(ctx, orgID, paperID)
	if err != nil {
		return nil, err
	}
	if err := dompaper.RequireStatus(op, paper.Status, types.PaperStatusFinalized); err != nil {
		return nil, err
	}
	artifacts, err := s.artifactRepo.ListByPaper(ctx, nil, paperID)
	if err != nil {
		return nil, err
	}
	if len(artifacts) == 0 {
		return nil, domain.PreconditionFailedf(op, "paper has no generated artifacts yet")
	}
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.paperRepo.UpdateByVersion(ctx, tx, paper.ID, paper.Version, map[string]interface{}{
			"status":  types.PaperStatusPublished,
			"version": paper.Version + 1,
		})
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflictf(op, "paper was modified concurrently; reload and retry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orgID, paperID)
}

func (s *paperService) Unfinalize(ctx context.Context, orgID, paperID uuid.UUID) (*types.Paper, error) {
	const op = "PaperService.Unfinalize"
	paper, err := s.Get(ctx, orgID, paperID)
	if err != nil {
		return nil, err
	}
	if err := dompaper.RequireStatus(op, paper.Status, types.PaperStatusFinalized); err != nil {
		return nil, err
	}
	if s.bucket != nil {
		if err := s.bucket.DeletePrefix(ctx, paperStoragePrefix(orgID, paperID)); err != nil {
			s.log.Warn("Artifact storage cleanup failed during unfinalize", "paper_id", paperID, "error", err)
		}
	}
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		if err := s.artifactRepo.DeleteByPaper(ctx, tx, paperID); err != nil {
			return err
		}
		ok, err := s.paperRepo.UpdateByVersion(ctx, tx, paper.ID, paper.Version, map[string]interface{}{
			"status":  types.PaperStatusDraft,
			"version": paper.Version + 1,
		})
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflictf(op, "paper was modified concurrently; reload and retry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orgID, paperID)
}

func (s *paperService) ArtifactDownloadURL(ctx context.Context, orgID, paperID uuid.UUID, artifactType string) (string, error) {
	const op = "PaperService.ArtifactDownloadURL"
	if !types.ValidArtifactType(artifactType) {
		return "", domain.Validationf(op, "unknown artifact type %q", artifactType)
	}
	if _, err := s.Get(ctx, orgID, paperID); err != nil {
		return "", err
	}
	artifact, err := s.artifactRepo.GetByPaperAndType(ctx, nil, paperID, artifactType)
	if err != nil {
		return "", err
	}
	if artifact == nil {
		return "", domain.NotFoundf(op, "no %s artifact for paper %s", artifactType, paperID)
	}
	if s.bucket == nil {
		return "", domain.NewError(domain.CodeInternal, op, "object storage is not configured", nil)
	}
	url, err := s.bucket.SignedURL(artifact.StorageKey, s.signedURLTTL)
	if err != nil {
		return "", domain.Wrap(domain.CodeInternal, op, err)
	}
	return url, nil
}

func (s *paperService) LatestRenderJob(ctx context.Context, orgID, paperID uuid.UUID) (*types.RenderJob, error) {
	if _, err := s.Get(ctx, orgID, paperID); err != nil {
		return nil, err
	}
	return s.jobRepo.GetLatestByPaper(ctx, nil, paperID)
}

func (s *paperService) ListArtifacts(ctx context.Context, orgID, paperID uuid.UUID) ([]*types.PaperArtifact, error) {
	if _, err := s.Get(ctx, orgID, paperID); err != nil {
		return nil, err
	}
	return s.artifactRepo.ListByPaper(ctx, nil, paperID)
}

func paperStoragePrefix(orgID, paperID uuid.UUID) string {
	return fmt.Sprintf("papers/%s/%s/", orgID, paperID)
}
