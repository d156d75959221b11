package impl

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shubhojeet-Ghosh/elysium-agents/config"
	"github.com/Shubhojeet-Ghosh/elysium-agents/logging"
	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

const (
	cardSeparator = "\n\n###\n\n"
	// chatFallbackMessage is what the visitor sees when the LLM call fails.
	chatFallbackMessage = "I'm having trouble answering right now. Please try again in a moment."
	persistTimeout      = 15 * time.Second
)

type chatServiceImpl struct {
	agents    services.AgentStore
	chats     services.ChatStore
	retrieval services.RetrievalService
	enhancer  services.EnhancerService
	registry  services.ModelRegistry
	quotas    services.QuotaService

	historyLimit    int
	maxHistoryLimit int
	logger          *zap.SugaredLogger

	// afterPersist fires once background persistence settles. Tests hook it.
	afterPersist func()
}

func NewChatService(
	agents services.AgentStore,
	chats services.ChatStore,
	retrieval services.RetrievalService,
	enhancer services.EnhancerService,
	registry services.ModelRegistry,
	quotas services.QuotaService,
	cfg *config.ChatConfig,
) services.ChatService {
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 10
	}
	maxHistoryLimit := cfg.MaxHistoryLimit
	if maxHistoryLimit <= 0 {
		maxHistoryLimit = 50
	}
	if historyLimit > maxHistoryLimit {
		historyLimit = maxHistoryLimit
	}
	return &chatServiceImpl{
		agents:          agents,
		chats:           chats,
		retrieval:       retrieval,
		enhancer:        enhancer,
		registry:        registry,
		quotas:          quotas,
		historyLimit:    historyLimit,
		maxHistoryLimit: maxHistoryLimit,
		logger:          logging.Named("chat"),
	}
}

func (s *chatServiceImpl) QueryAgent(ctx context.Context, req models.QueryAgentRequest, transport services.StreamTransport) (*models.ChatReply, error) {
	if req.AgentID == "" {
		return nil, models.NewValidationError("agent_id is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, models.NewValidationError("message is required")
	}

	userMessageID := uuid.NewString()
	agentMessageID := uuid.NewString()
	userCreatedAt := time.Now().UTC()

	chatSessionID := req.ChatSessionID
	if chatSessionID == "" {
		chatSessionID = "un-" + uuid.NewString()
	}

	session, err := s.chats.GetSession(ctx, req.AgentID, chatSessionID)
	if err != nil {
		return nil, err
	}

	var history []models.ChatMessage
	if session != nil && session.ConversationID != "" {
		history, err = s.chats.ConversationHistory(ctx, chatSessionID, session.ConversationID, s.historyLimit)
		if err != nil {
			return nil, err
		}
	}

	historyTurns := make([]services.ChatTurn, len(history))
	for i, msg := range history {
		role := services.TurnRoleUser
		if msg.Role == models.RoleAgent {
			role = services.TurnRoleAssistant
		}
		historyTurns[i] = services.ChatTurn{Role: role, Content: msg.Content}
	}

	enhanced := s.enhancer.EnhanceQuery(ctx, req.Message, historyTurns)

	// Agent config and retrieval are independent; run them together.
	var (
		agent    *models.Agent
		cards    []models.SourceCard
		agentErr error
		cardsErr error
		wg       sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		agent, agentErr = s.agents.GetAgent(ctx, req.AgentID)
	}()
	go func() {
		defer wg.Done()
		cards, cardsErr = s.retrieval.Retrieve(ctx, req.AgentID, enhanced)
	}()
	wg.Wait()

	if agentErr != nil {
		return nil, agentErr
	}
	if agent == nil {
		return nil, models.NewNotFoundError("agent %s not found", req.AgentID)
	}
	if cardsErr != nil {
		s.logger.Warnw("retrieval failed, continuing without knowledge base", "agent_id", req.AgentID, "error", cardsErr)
		cards = nil
	}

	if err := s.quotas.CanSendChat(ctx, agent.OwnerUserID); err != nil {
		return nil, err
	}

	if session == nil {
		session = &models.ChatSession{
			AgentID:        req.AgentID,
			ChatSessionID:  chatSessionID,
			ConversationID: uuid.NewString(),
			Channel:        models.ChannelFromSessionID(chatSessionID),
			DisplayName:    sessionDisplayName(agent),
			VisitorOnline:  true,
			CreatedAt:      userCreatedAt,
			UpdatedAt:      userCreatedAt,
		}
		if err := s.chats.CreateSession(ctx, session); err != nil {
			return nil, err
		}
	} else if session.ConversationID == "" {
		session.ConversationID = uuid.NewString()
		if err := s.chats.SetSessionConversation(ctx, req.AgentID, chatSessionID, session.ConversationID); err != nil {
			return nil, err
		}
	}

	llmMessages := s.assembleMessages(agent, historyTurns, cards, req.Message)
	spec := s.registry.Resolve(agent.LLMModel)
	llmReq := services.LLMRequest{
		Model:       spec.Name,
		Messages:    llmMessages,
		Temperature: agent.Temperature,
	}

	var responseText string
	if transport != nil {
		responseText, err = spec.Handler.StreamComplete(ctx, llmReq, func(chunk string) error {
			return transport.Send(models.StreamFrame{Chunk: chunk, Done: false})
		})
	} else {
		responseText, err = spec.Handler.Complete(ctx, llmReq)
	}
	agentCreatedAt := time.Now().UTC()

	if err != nil {
		s.logger.Errorw("llm completion failed",
			"agent_id", req.AgentID, "chat_session_id", chatSessionID, "model", spec.Name, "error", err)
		if transport != nil {
			_ = transport.Send(models.StreamFrame{
				Chunk:        "",
				Done:         true,
				FullResponse: chatFallbackMessage,
				MessageID:    agentMessageID,
				CreatedAt:    agentCreatedAt.Format(time.RFC3339),
				Role:         string(models.RoleAgent),
			})
		}
		// The user turn still happened; only the agent message is withheld.
		s.persistAsync([]models.ChatMessage{
			userMessage(req, chatSessionID, session.ConversationID, userMessageID, enhanced, userCreatedAt),
		})
		return nil, models.NewUpstreamError("llm completion failed", err)
	}

	if transport != nil {
		_ = transport.Send(models.StreamFrame{
			Chunk:        "",
			Done:         true,
			FullResponse: responseText,
			MessageID:    agentMessageID,
			CreatedAt:    agentCreatedAt.Format(time.RFC3339),
			Role:         string(models.RoleAgent),
		})
	}

	s.persistAsync([]models.ChatMessage{
		userMessage(req, chatSessionID, session.ConversationID, userMessageID, enhanced, userCreatedAt),
		{
			AgentID:        req.AgentID,
			ChatSessionID:  chatSessionID,
			ConversationID: session.ConversationID,
			MessageID:      agentMessageID,
			Role:           models.RoleAgent,
			Content:        responseText,
			CreatedAt:      agentCreatedAt,
		},
	})

	go func() {
		quotaCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.quotas.AdvanceChatQuota(quotaCtx, agent.OwnerUserID); err != nil {
			s.logger.Warnw("failed to advance chat quota", "owner", agent.OwnerUserID, "error", err)
		}
	}()

	return &models.ChatReply{
		MessageID:      agentMessageID,
		Content:        responseText,
		ConversationID: session.ConversationID,
		CreatedAt:      agentCreatedAt.Format(time.RFC3339),
	}, nil
}

func (s *chatServiceImpl) RotateConversation(ctx context.Context, agentID, chatSessionID string) (string, error) {
	if agentID == "" || chatSessionID == "" {
		return "", models.NewValidationError("agent_id and chat_session_id are required")
	}
	session, err := s.chats.GetSession(ctx, agentID, chatSessionID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", models.NewNotFoundError("chat session %s not found", chatSessionID)
	}
	conversationID := uuid.NewString()
	if err := s.chats.SetSessionConversation(ctx, agentID, chatSessionID, conversationID); err != nil {
		return "", err
	}
	return conversationID, nil
}

// persistAsync writes messages on a detached context so the reply is never
// delayed; failures are logged and swallowed.
func (s *chatServiceImpl) persistAsync(messages []models.ChatMessage) {
	go func() {
		persistCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.chats.InsertMessages(persistCtx, messages); err != nil {
			s.logger.Errorw("failed to persist chat messages",
				"agent_id", messages[0].AgentID, "chat_session_id", messages[0].ChatSessionID, "error", err)
		}
		if s.afterPersist != nil {
			s.afterPersist()
		}
	}()
}

func userMessage(req models.QueryAgentRequest, chatSessionID, conversationID, messageID, enhanced string, createdAt time.Time) models.ChatMessage {
	msg := models.ChatMessage{
		AgentID:        req.AgentID,
		ChatSessionID:  chatSessionID,
		ConversationID: conversationID,
		MessageID:      messageID,
		Role:           models.RoleUser,
		Content:        req.Message,
		CreatedAt:      createdAt,
	}
	if enhanced != req.Message {
		msg.EnhancedMessage = enhanced
	}
	return msg
}

func sessionDisplayName(agent *models.Agent) string {
	if len(agent.AgentAliases) > 0 {
		return agent.AgentAliases[int(time.Now().UnixNano())%len(agent.AgentAliases)]
	}
	return agent.AgentName
}

// assembleMessages builds the LLM message list: fixed instruction, the
// agent's own system prompt, the history, the knowledge-base block, and the
// raw user query in the last position.
func (s *chatServiceImpl) assembleMessages(agent *models.Agent, history []services.ChatTurn, cards []models.SourceCard, rawMessage string) []services.ChatTurn {
	turns := make([]services.ChatTurn, 0, len(history)+4)
	turns = append(turns, services.ChatTurn{Role: services.TurnRoleSystem, Content: baseInstruction(agent.AgentName)})
	if strings.TrimSpace(agent.SystemPrompt) != "" {
		turns = append(turns, services.ChatTurn{Role: services.TurnRoleSystem, Content: agent.SystemPrompt})
	}
	turns = append(turns, history...)
	if block := FormatKnowledgeBlock(cards); block != "" {
		turns = append(turns, services.ChatTurn{Role: services.TurnRoleUser, Content: block})
	}
	turns = append(turns, services.ChatTurn{Role: services.TurnRoleUser, Content: rawMessage})
	return turns
}

func baseInstruction(agentName string) string {
	var sb strings.Builder
	if agentName != "" {
		sb.WriteString("You are " + agentName + ", a helpful AI assistant.\n")
	} else {
		sb.WriteString("You are a helpful AI assistant.\n")
	}
	sb.WriteString(`Answer using only the information in the Knowledge Base section of this conversation.
If the Knowledge Base does not contain the answer, say so politely; never invent facts, prices or links.
Greetings and small talk may be answered without the Knowledge Base.
Keep answers concise and format them with simple markdown.`)
	return sb.String()
}

// FormatKnowledgeBlock renders retrieved source cards for the prompt. Each
// card is one metadata line of truthy-only fields, a blank line, then the
// chunk text; cards are joined by the ### separator.
func FormatKnowledgeBlock(cards []models.SourceCard) string {
	if len(cards) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(cards))
	for _, card := range cards {
		parts := []string{"source: " + card.KnowledgeSource}
		if card.PageType != "" {
			parts = append(parts, "page_type: "+string(card.PageType))
		}
		if card.Summary != "" {
			parts = append(parts, "summary: "+card.Summary)
		}
		if card.ProductName != nil && *card.ProductName != "" {
			parts = append(parts, "product_name: "+*card.ProductName)
		}
		if card.ProductID != nil && *card.ProductID != "" {
			parts = append(parts, "product_id: "+*card.ProductID)
		}
		if card.Category != nil && *card.Category != "" {
			parts = append(parts, "category: "+*card.Category)
		}
		if card.Price != nil {
			parts = append(parts, "price: "+strconv.FormatFloat(*card.Price, 'f', -1, 64))
		}
		if card.Currency != nil && *card.Currency != "" {
			parts = append(parts, "currency: "+*card.Currency)
		}
		if card.IsAvailable != nil {
			parts = append(parts, fmt.Sprintf("is_available: %t", *card.IsAvailable))
		}

		entry := strings.Join(parts, " | ")
		if card.TextContent != "" {
			entry += "\n\n" + card.TextContent
		}
		rendered = append(rendered, entry)
	}
	return "Knowledge Base:\n" + strings.Join(rendered, cardSeparator)
}
