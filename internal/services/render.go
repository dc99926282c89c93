package services

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/paperforge-backend/internal/chromium"
	"github.com/yungbote/paperforge-backend/internal/domain"
	dompaper "github.com/yungbote/paperforge-backend/internal/domain/paper"
	"github.com/yungbote/paperforge-backend/internal/logger"
	"github.com/yungbote/paperforge-backend/internal/paperdoc"
	"github.com/yungbote/paperforge-backend/internal/repos"
	"github.com/yungbote/paperforge-backend/internal/types"
)

type RenderResult struct {
	Artifacts  []*types.PaperArtifact
	TotalBytes int64
}

// RenderPipeline turns a finalized paper into its three stored PDF artifacts.
type RenderPipeline interface {
	GeneratePaperPDFs(ctx context.Context, orgID, paperID uuid.UUID) (*RenderResult, error)
}

type renderService struct {
	db           *gorm.DB
	log          *logger.Logger
	paperRepo    repos.PaperRepo
	questionRepo repos.QuestionRepo
	layoutRepo   repos.PaperLayoutRepo
	artifactRepo repos.PaperArtifactRepo
	bucket       BucketService
	renderer     chromium.PDFRenderer
}

func NewRenderService(
	db *gorm.DB,
	baseLog *logger.Logger,
	paperRepo repos.PaperRepo,
	questionRepo repos.QuestionRepo,
	layoutRepo repos.PaperLayoutRepo,
	artifactRepo repos.PaperArtifactRepo,
	bucket BucketService,
	renderer chromium.PDFRenderer,
) RenderPipeline {
	return &renderService{
		db:           db,
		log:          baseLog.With("service", "RenderService"),
		paperRepo:    paperRepo,
		questionRepo: questionRepo,
		layoutRepo:   layoutRepo,
		artifactRepo: artifactRepo,
		bucket:       bucket,
		renderer:     renderer,
	}
}

// GeneratePaperPDFs builds, renders, and uploads all three documents, then
// replaces the paper's artifact list in one update. A partial run replaces
// nothing; the caller retries the whole job.
func (s *renderService) GeneratePaperPDFs(ctx context.Context, orgID, paperID uuid.UUID) (*RenderResult, error) {
	const op = "RenderService.GeneratePaperPDFs"

	if s.bucket == nil {
		return nil, domain.NewError(domain.CodeRetryable, op, "object storage is not configured", nil)
	}

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

	questionIDs := dompaper.PlacedQuestionIDs(sections)
	questions, err := s.questionRepo.GetByIDs(ctx, nil, orgID, questionIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	settings, err := s.resolveLayout(ctx, paper)
	if err != nil {
		return nil, err
	}

	in := paperdoc.BuildInput{
		Paper:     paper,
		Sections:  sections,
		Questions: byID,
		Layout:    settings,
	}
	documents := map[string]string{
		types.ArtifactTypeQuestionPaper: paperdoc.BuildQuestionPaper(in),
		types.ArtifactTypeAnswerSheet:   paperdoc.BuildAnswerSheet(in),
		types.ArtifactTypeSolutionPaper: paperdoc.BuildSolutionPaper(in),
	}
	for artifactType, doc := range documents {
		doc = paperdoc.ApplyBranding(doc, settings.PrimaryColor)
		documents[artifactType] = paperdoc.ApplyWatermark(doc, settings.Watermark)
	}

	generatedAt := time.Now()
	var mu sync.Mutex
	artifacts := make([]*types.PaperArtifact, 0, len(documents))
	var totalBytes int64

	g, gctx := errgroup.WithContext(ctx)
	for artifactType, doc := range documents {
		artifactType, doc := artifactType, doc
		g.Go(func() error {
			pdf, err := s.renderer.RenderPDF(gctx, doc)
			if err != nil {
				return domain.Wrap(domain.CodeRetryable, op, fmt.Errorf("render %s: %w", artifactType, err))
			}
			fileName := fmt.Sprintf("%s_%d.pdf", artifactType, generatedAt.Unix())
			key := artifactStorageKey(orgID, paperID, artifactType, generatedAt)
			size, err := s.bucket.UploadFile(gctx, key, bytes.NewReader(pdf))
			if err != nil {
				return domain.Wrap(domain.CodeRetryable, op, fmt.Errorf("upload %s: %w", artifactType, err))
			}
			mu.Lock()
			artifacts = append(artifacts, &types.PaperArtifact{
				ID:          uuid.New(),
				PaperID:     paperID,
				Type:        artifactType,
				FileName:    fileName,
				StorageKey:  key,
				SizeBytes:   size,
				GeneratedAt: generatedAt,
			})
			totalBytes += size
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.artifactRepo.ReplaceForPaper(ctx, nil, paperID, artifacts); err != nil {
		return nil, err
	}
	return &RenderResult{Artifacts: artifacts, TotalBytes: totalBytes}, nil
}

func (s *renderService) resolveLayout(ctx context.Context, paper *types.Paper) (paperdoc.LayoutSettings, error) {
	var layout *types.PaperLayout
	var err error
	if paper.LayoutID != nil {
		layout, err = s.layoutRepo.GetByID(ctx, nil, paper.OrganizationID, *paper.LayoutID)
	} else {
		layout, err = s.layoutRepo.GetDefault(ctx, nil, paper.OrganizationID)
	}
	if err != nil {
		return paperdoc.LayoutSettings{}, err
	}
	// A missing layout row falls back to the embedded preset.
	return paperdoc.SettingsFromModel(layout), nil
}

// artifactStorageKey is the persisted key convention other systems rely on:
// papers/{organizationId}/{paperId}/{artifactType}_{timestamp}.pdf
func artifactStorageKey(orgID, paperID uuid.UUID, artifactType string, at time.Time) string {
	return fmt.Sprintf("papers/%s/%s/%s_%d.pdf", orgID, paperID, artifactType, at.Unix())
}
