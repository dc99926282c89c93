package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/paperforge-backend/internal/domain"
	domblueprint "github.com/yungbote/paperforge-backend/internal/domain/blueprint"
	"github.com/yungbote/paperforge-backend/internal/logger"
	"github.com/yungbote/paperforge-backend/internal/repos"
	"github.com/yungbote/paperforge-backend/internal/types"
)

type CreateBlueprintRequest struct {
	Name        string                     `json:"name"`
	Subject     string                     `json:"subject"`
	Sections    []domblueprint.SectionPlan `json:"sections"`
	Constraints domblueprint.Constraints   `json:"constraints"`
}

type BlueprintService interface {
	Create(ctx context.Context, orgID uuid.UUID, req CreateBlueprintRequest) (*types.Blueprint, error)
	Get(ctx context.Context, orgID, blueprintID uuid.UUID) (*types.Blueprint, error)
	List(ctx context.Context, orgID uuid.UUID) ([]*types.Blueprint, error)
	ListLayouts(ctx context.Context, orgID uuid.UUID) ([]*types.PaperLayout, error)
}

type blueprintService struct {
	db            *gorm.DB
	log           *logger.Logger
	blueprintRepo repos.BlueprintRepo
	layoutRepo    repos.PaperLayoutRepo
}

func NewBlueprintService(
	db *gorm.DB,
	baseLog *logger.Logger,
	blueprintRepo repos.BlueprintRepo,
	layoutRepo repos.PaperLayoutRepo,
) BlueprintService {
	return &blueprintService{
		db:            db,
		log:           baseLog.With("service", "BlueprintService"),
		blueprintRepo: blueprintRepo,
		layoutRepo:    layoutRepo,
	}
}

func (s *blueprintService) Create(ctx context.Context, orgID uuid.UUID, req CreateBlueprintRequest) (*types.Blueprint, error) {
	const op = "BlueprintService.Create"
	if req.Name == "" {
		return nil, domain.Validationf(op, "name is required")
	}
	def := domblueprint.Definition{
		Name:        req.Name,
		Sections:    req.Sections,
		Constraints: req.Constraints,
	}
	if err := domblueprint.Validate(def); err != nil {
		return nil, err
	}
	sectionsJSON, err := json.Marshal(req.Sections)
	if err != nil {
		return nil, domain.Wrap(domain.CodeValidation, op, err)
	}
	constraintsJSON, err := json.Marshal(req.Constraints)
	if err != nil {
		return nil, domain.Wrap(domain.CodeValidation, op, err)
	}
	now := time.Now()
	bp := &types.Blueprint{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           req.Name,
		Subject:        req.Subject,
		Sections:       datatypes.JSON(sectionsJSON),
		Constraints:    datatypes.JSON(constraintsJSON),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	created, err := s.blueprintRepo.Create(ctx, nil, []*types.Blueprint{bp})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

func (s *blueprintService) Get(ctx context.Context, orgID, blueprintID uuid.UUID) (*types.Blueprint, error) {
	const op = "BlueprintService.Get"
	bp, err := s.blueprintRepo.GetByID(ctx, nil, orgID, blueprintID)
	if err != nil {
		return nil, err
	}
	if bp == nil {
		return nil, domain.NotFoundf(op, "blueprint %s not found", blueprintID)
	}
	return bp, nil
}

func (s *blueprintService) List(ctx context.Context, orgID uuid.UUID) ([]*types.Blueprint, error) {
	return s.blueprintRepo.ListByOrganization(ctx, nil, orgID)
}

func (s *blueprintService) ListLayouts(ctx context.Context, orgID uuid.UUID) ([]*types.PaperLayout, error) {
	return s.layoutRepo.ListByOrganization(ctx, nil, orgID)
}
