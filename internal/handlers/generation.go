package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/paperforge-backend/internal/logger"
	"github.com/yungbote/paperforge-backend/internal/services"
)

type GenerationHandler struct {
	log               *logger.Logger
	generationService services.PaperGenerationService
	blueprintService  services.BlueprintService
}

func NewGenerationHandler(log *logger.Logger, generationService services.PaperGenerationService, blueprintService services.BlueprintService) *GenerationHandler {
	return &GenerationHandler{
		log:               log.With("handler", "GenerationHandler"),
		generationService: generationService,
		blueprintService:  blueprintService,
	}
}

func (h *GenerationHandler) Generate(c *gin.Context) {
	rd, ok := requireOrg(c)
	if !ok {
		return
	}
	var req services.GeneratePaperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	paper, err := h.generationService.Generate(c.Request.Context(), rd.TenantID, rd.OrganizationID, req)
	if err != nil {
		h.log.Error("Generate paper failed", "error", err, "blueprint_id", req.BlueprintID)
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"paper": paper})
}

func (h *GenerationHandler) CreateBlueprint(c *gin.Context) {
	rd, ok := requireOrg(c)
	if !ok {
		return
	}
	var req services.CreateBlueprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	bp, err := h.blueprintService.Create(c.Request.Context(), rd.OrganizationID, req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"blueprint": bp})
}

func (h *GenerationHandler) ListBlueprints(c *gin.Context) {
	rd, ok := requireOrg(c)
	if !ok {
		return
	}
	blueprints, err := h.blueprintService.List(c.Request.Context(), rd.OrganizationID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"blueprints": blueprints})
}

func (h *GenerationHandler) GetBlueprint(c *gin.Context) {
	rd, ok := requireOrg(c)
	if !ok {
		return
	}
	blueprintID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_blueprint_id", err)
		return
	}
	bp, err := h.blueprintService.Get(c.Request.Context(), rd.OrganizationID, blueprintID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"blueprint": bp})
}

func (h *GenerationHandler) ListLayouts(c *gin.Context) {
	rd, ok := requireOrg(c)
	if !ok {
		return
	}
	layouts, err := h.blueprintService.ListLayouts(c.Request.Context(), rd.OrganizationID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"layouts": layouts})
}
