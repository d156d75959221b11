package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

type ChatHandlers struct {
	chatService services.ChatService
	visitors    services.VisitorRegistry
}

func NewChatHandlers(chatService services.ChatService, visitors services.VisitorRegistry) *ChatHandlers {
	return &ChatHandlers{chatService: chatService, visitors: visitors}
}

// ndjsonTransport writes one JSON frame per line and flushes after each so
// clients see chunks as they arrive.
type ndjsonTransport struct {
	writer  gin.ResponseWriter
	encoder *json.Encoder
	flusher http.Flusher
}

func newNDJSONTransport(c *gin.Context) *ndjsonTransport {
	c.Writer.Header().Set("Content-Type", "application/x-ndjson")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	flusher, _ := c.Writer.(http.Flusher)
	return &ndjsonTransport{
		writer:  c.Writer,
		encoder: json.NewEncoder(c.Writer),
		flusher: flusher,
	}
}

func (t *ndjsonTransport) Send(frame models.StreamFrame) error {
	if err := t.encoder.Encode(frame); err != nil {
		return err
	}
	if t.flusher != nil {
		t.flusher.Flush()
	}
	return nil
}

// QueryAgent answers a visitor message. Streaming is the default; stream=false
// returns a single JSON reply instead.
func (h *ChatHandlers) QueryAgent(c *gin.Context) {
	var req models.QueryAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("invalid request body: %v", err))
		return
	}

	streaming := req.Stream == nil || *req.Stream
	if !streaming {
		reply, err := h.chatService.QueryAgent(c.Request.Context(), req, nil)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "reply": reply})
		return
	}

	transport := newNDJSONTransport(c)
	if _, err := h.chatService.QueryAgent(c.Request.Context(), req, transport); err != nil {
		// Headers are already out; the terminal frame carried the fallback.
		// Quota and validation denials before any frame still need a body.
		appErr := models.AsAppError(err)
		if c.Writer.Size() <= 0 {
			_ = transport.Send(models.StreamFrame{
				Chunk:        "",
				Done:         true,
				FullResponse: appErr.PublicMessage(),
				Role:         string(models.RoleAgent),
			})
		}
	}
}

func (h *ChatHandlers) RotateConversation(c *gin.Context) {
	var req models.RotateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("invalid request body: %v", err))
		return
	}
	conversationID, err := h.chatService.RotateConversation(c.Request.Context(), req.AgentID, req.ChatSessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.RotateConversationResponse{
		Success:        true,
		ConversationID: conversationID,
	})
}

type visitorPresenceRequest struct {
	AgentID       string `json:"agent_id"`
	ChatSessionID string `json:"chat_session_id"`
	DisplayName   string `json:"display_name,omitempty"`
}

// VisitorOnline registers a visitor session as present on the agent.
func (h *ChatHandlers) VisitorOnline(c *gin.Context) {
	var req visitorPresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("invalid request body: %v", err))
		return
	}
	if req.AgentID == "" || req.ChatSessionID == "" {
		respondError(c, models.NewValidationError("agent_id and chat_session_id are required"))
		return
	}
	if err := h.visitors.AddVisitor(c.Request.Context(), req.AgentID, req.ChatSessionID, req.DisplayName); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// VisitorOffline drops a visitor session from the agent's presence set.
func (h *ChatHandlers) VisitorOffline(c *gin.Context) {
	var req visitorPresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("invalid request body: %v", err))
		return
	}
	if req.AgentID == "" || req.ChatSessionID == "" {
		respondError(c, models.NewValidationError("agent_id and chat_session_id are required"))
		return
	}
	if err := h.visitors.RemoveVisitor(c.Request.Context(), req.AgentID, req.ChatSessionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListVisitors returns the visitors currently attached to an agent.
func (h *ChatHandlers) ListVisitors(c *gin.Context) {
	agentID := c.Param("agent_id")
	if agentID == "" {
		respondError(c, models.NewValidationError("agent_id is required"))
		return
	}
	visitors, err := h.visitors.ListVisitors(c.Request.Context(), agentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(visitors), "visitors": visitors})
}
