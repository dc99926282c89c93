package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/paperforge-backend/internal/logger"
	"github.com/yungbote/paperforge-backend/internal/requestdata"
	"github.com/yungbote/paperforge-backend/internal/services"
)

type PaperHandler struct {
	log          *logger.Logger
	paperService services.PaperService
	swapAdvisor  services.SwapAdvisorService
}

func NewPaperHandler(log *logger.Logger, paperService services.PaperService, swapAdvisor services.SwapAdvisorService) *PaperHandler {
	return &PaperHandler{
		log:          log.With("handler", "PaperHandler"),
		paperService: paperService,
		swapAdvisor:  swapAdvisor,
	}
}

func requireOrg(c *gin.Context) (*requestdata.RequestData, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.OrganizationID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return nil, false
	}
	return rd, true
}

func paperIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_paper_id", err)
		return uuid.Nil, false
	}
	return id, true
}

func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_"+name, err)
		return 0, false
	}
	return v, true
}

func (h *PaperHandler) Create(c *gin.Context) {
	rd, ok := requireOrg(c)
	if !ok {
		return
	}
	var req services.CreatePaperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	paper, err := h.paperService.Create(c.Request.Context(), rd.TenantID, rd.OrganizationID, req)
	if err != nil {
		h.log.Error("Create paper failed", "error", err, "organization_id", rd.OrganizationID)
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"paper": paper})
}

func (h *PaperHandler) List(c *gin.Context) {
	rd, ok := requireOrg(c)
	if !ok {
		return
	}
	papers, err := h.paperService.List(c.Request.Context(), rd.OrganizationID)
	if err != nil {
		h.log.Error("List papers failed", "error", err, "organization_id", rd.OrganizationID)
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"papers": papers})
}

func (h *PaperHandler) Get(c *gin.Context) {
	rd, ok := requireOrg(c)
	if !ok {
		return
	}
	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}
	paper, err := h.paperService.Get(c.Request.Context(), rd.OrganizationID, paperID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	job, err := h.paperService.LatestRenderJob(c.Request.Context(), rd.OrganizationID, paperID)
	if err != nil {
		h.log.Warn("Latest render job lookup failed", "error", err, "paper_id", paperID)
	}
	artifacts, err := h.paperService.ListArtifacts(c.Request.Context(), rd.OrganizationID, paperID)
	if err != nil {
		h.log.Warn("Artifact lookup failed", "error", err, "paper_id", paperID)
	}
	RespondOK(c, gin.H{"paper": paper, "latest_job": job, "artifacts": artifacts})
}

func (h *PaperHandler) Update(c *gin.Context) {
	rd, ok := requireOrg(c)
	if !ok {
		return
	}
	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}
	var req services.UpdatePaperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	paper, err := h.paperService.Update(c.Request.Context(), rd.OrganizationID, paperID, req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"paper": paper})
}

func (h *PaperHandler) Delete(c *gin.Context) {
	rd, ok := requireOrg(c)
	if !ok {
		return
	}
	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}
	if err := h.paperService.Delete(c.Request.Context(), rd.OrganizationID, paperID); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

func (h *PaperHandler) AddQuestions(c *gin.Context) {
	rd, ok := requireOrg(c)
	if !ok {
		return
	}
	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}
	var req services.AddQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	paper, err := h.paperService.AddQuestions(c.Request.Context(), rd.OrganizationID, paperID, req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"paper": paper})
}

func (h *PaperHandler) RemoveQuestion(c *gin.Context) {
	rd, ok := requireOrg(c)
	if !ok {
		return
	}
	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}
	sectionIndex, ok := intParam(c, "sec")
	if !ok {
		return
	}
	number, ok := intParam(c, "num")
	if !ok {
		return
	}
	expectedVersion := expectedVersionQuery(c)
	paper, err := h.paperService.RemoveQuestion(c.Request.Context(), rd.OrganizationID, paperID, sectionIndex, number, expectedVersion)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"paper": paper})
}

type reorderRequest struct {
	OrderedQuestionIDs []uuid.UUID `json:"ordered_question_ids"`
	ExpectedVersion    *int        `json:"expected_version,omitempty"`
}

func (h *PaperHandler) ReorderSection(c *gin.Context) {
	rd, ok := requireOrg(c)
	if !ok {
		return
	}
	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}
	sectionIndex, ok := intParam(c, "sec")
	if !ok {
		return
	}
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	paper, err := h.paperService.ReorderSection(c.Request.Context(), rd.OrganizationID, paperID, sectionIndex, req.OrderedQuestionIDs, req.ExpectedVersion)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"paper": paper})
}

func (h *PaperHandler) SwapQuestion(c *gin.Context) {
	rd, ok := requireOrg(c)
	if !ok {
		return
	}
	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}
	sectionIndex, ok := intParam(c, "sec")
	if !ok {
		return
	}
	number, ok := intParam(c, "num")
	if !ok {
		return
	}
	var req services.SwapQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	req.SectionIndex = sectionIndex
	req.QuestionNumber = number
	paper, err := h.paperService.SwapQuestion(c.Request.Context(), rd.OrganizationID, paperID, req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"paper": paper})
}

func (h *PaperHandler) SwapSuggestions(c *gin.Context) {
	rd, ok := requireOrg(c)
	if !ok {
		return
	}
	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}
	sectionIndex, ok := intParam(c, "sec")
	if !ok {
		return
	}
	number, ok := intParam(c, "num")
	if !ok {
		return
	}
	suggestions, err := h.swapAdvisor.SuggestSwaps(c.Request.Context(), rd.OrganizationID, paperID, sectionIndex, number)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"suggestions": suggestions})
}

func (h *PaperHandler) Finalize(c *gin.Context) {
	rd, ok := requireOrg(c)
	if !ok {
		return
	}
	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}
	expectedVersion := expectedVersionQuery(c)
	paper, job, err := h.paperService.Finalize(c.Request.Context(), rd.OrganizationID, paperID, expectedVersion)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"paper": paper, "job_id": job.ID})
}

func (h *PaperHandler) Publish(c *gin.Context) {
	rd, ok := requireOrg(c)
	if !ok {
		return
	}
	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}
	paper, err := h.paperService.Publish(c.Request.Context(), rd.OrganizationID, paperID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"paper": paper})
}

func (h *PaperHandler) Unfinalize(c *gin.Context) {
	rd, ok := requireOrg(c)
	if !ok {
		return
	}
	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}
	paper, err := h.paperService.Unfinalize(c.Request.Context(), rd.OrganizationID, paperID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"paper": paper})
}

func (h *PaperHandler) ArtifactDownload(c *gin.Context) {
	rd, ok := requireOrg(c)
	if !ok {
		return
	}
	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}
	url, err := h.paperService.ArtifactDownloadURL(c.Request.Context(), rd.OrganizationID, paperID, c.Param("type"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"url": url})
}

// expectedVersionQuery reads ?expected_version= for the endpoints that take
// no request body.
func expectedVersionQuery(c *gin.Context) *int {
	raw := c.Query("expected_version")
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}
