package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shubhojeet-Ghosh/elysium-agents/auth"
	"github.com/Shubhojeet-Ghosh/elysium-agents/logging"
	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

type AgentHandlers struct {
	agentService   services.AgentService
	knowledgeStore services.KnowledgeStore
}

func NewAgentHandlers(agentService services.AgentService, knowledgeStore services.KnowledgeStore) *AgentHandlers {
	return &AgentHandlers{
		agentService:   agentService,
		knowledgeStore: knowledgeStore,
	}
}

// respondError maps a service error to the uniform failure body.
func respondError(c *gin.Context, err error) {
	appErr := models.AsAppError(err)
	if appErr.Kind == models.ErrInternal || appErr.Kind == models.ErrUpstream {
		logging.L().Errorw("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(appErr.HTTPStatus(), models.ErrorResponse{
		Success: false,
		Message: appErr.PublicMessage(),
	})
}

func (h *AgentHandlers) PreBuildAgent(c *gin.Context) {
	agent, err := h.agentService.PreBuildAgent(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "agent": agent})
}

func (h *AgentHandlers) BuildAgent(c *gin.Context) {
	h.scheduleBuild(c, h.agentService.BuildAgent, "agent build started")
}

func (h *AgentHandlers) UpdateAgent(c *gin.Context) {
	h.scheduleBuild(c, h.agentService.UpdateAgent, "agent update started")
}

// scheduleBuild acknowledges immediately; ingestion continues in the
// background after the response returns.
func (h *AgentHandlers) scheduleBuild(c *gin.Context, schedule func(ctx context.Context, owner string, req models.BuildAgentRequest) (string, error), message string) {
	var req models.BuildAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("invalid request body: %v", err))
		return
	}
	agentID, err := schedule(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.BuildAgentResponse{
		Success: true,
		AgentID: agentID,
		Message: message,
	})
}

func (h *AgentHandlers) GetAgentDetails(c *gin.Context) {
	agent, err := h.agentService.GetAgentDetails(c.Request.Context(), auth.UserID(c), c.Param("agent_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "agent": agent})
}

func (h *AgentHandlers) ListAgents(c *gin.Context) {
	agents, err := h.agentService.ListAgents(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "agents": agents})
}

func (h *AgentHandlers) DeleteAgent(c *gin.Context) {
	if err := h.agentService.DeleteAgent(c.Request.Context(), auth.UserID(c), c.Param("agent_id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "agent deleted"})
}

func (h *AgentHandlers) GeneratePresignedURLs(c *gin.Context) {
	var req models.PresignedURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("invalid request body: %v", err))
		return
	}
	uploads, err := h.agentService.GeneratePresignedUploads(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "uploads": uploads})
}

func (h *AgentHandlers) ListAgentURLs(c *gin.Context) {
	var req models.ListSourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("invalid request body: %v", err))
		return
	}
	page, err := h.knowledgeStore.ListURLs(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "page": page})
}

func (h *AgentHandlers) ListAgentFiles(c *gin.Context) {
	var req models.ListSourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("invalid request body: %v", err))
		return
	}
	page, err := h.knowledgeStore.ListFiles(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "page": page})
}

func (h *AgentHandlers) ListAgentCustomTexts(c *gin.Context) {
	var req models.ListSourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("invalid request body: %v", err))
		return
	}
	page, err := h.knowledgeStore.ListCustomTexts(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "page": page})
}

func (h *AgentHandlers) ListAgentQAPairs(c *gin.Context) {
	var req models.ListSourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("invalid request body: %v", err))
		return
	}
	page, err := h.knowledgeStore.ListQAPairs(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "page": page})
}

func (h *AgentHandlers) removeSources(c *gin.Context, knowledgeType models.KnowledgeType) {
	var req models.RemoveSourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("invalid request body: %v", err))
		return
	}
	resp, err := h.agentService.RemoveSources(c.Request.Context(), auth.UserID(c), knowledgeType, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AgentHandlers) RemoveAgentLinks(c *gin.Context) {
	h.removeSources(c, models.KnowledgeTypeURL)
}

func (h *AgentHandlers) DeleteAgentFiles(c *gin.Context) {
	h.removeSources(c, models.KnowledgeTypeFile)
}

// DeleteAgentCustomData removes custom texts or Q&A pairs depending on the
// data_type field in the payload.
func (h *AgentHandlers) DeleteAgentCustomData(c *gin.Context) {
	var req struct {
		models.RemoveSourcesRequest
		DataType string `json:"data_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("invalid request body: %v", err))
		return
	}
	var knowledgeType models.KnowledgeType
	switch req.DataType {
	case "custom_text":
		knowledgeType = models.KnowledgeTypeCustomText
	case "custom_qa", "qna":
		knowledgeType = models.KnowledgeTypeCustomQA
	default:
		respondError(c, models.NewValidationError("data_type must be custom_text or custom_qa"))
		return
	}
	resp, err := h.agentService.RemoveSources(c.Request.Context(), auth.UserID(c), knowledgeType, req.RemoveSourcesRequest)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
