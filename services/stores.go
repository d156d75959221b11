package services

import (
	"context"

	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
)

// AgentStore persists agent documents.
type AgentStore interface {
	CreateAgent(ctx context.Context, agent *models.Agent) error
	GetAgent(ctx context.Context, agentID string) (*models.Agent, error)
	ListAgentsByOwner(ctx context.Context, ownerUserID string) ([]models.Agent, error)
	UpdateAgentStatus(ctx context.Context, agentID string, status models.AgentStatus, currentTask string) error
	UpdateAgentFields(ctx context.Context, agentID string, fields map[string]any) error
	DeleteAgent(ctx context.Context, agentID string) error
}

// KnowledgeStore persists the per-source bookkeeping rows. Upserts are
// keyed by (agent_id, source key) so re-ingesting a source updates in place.
type KnowledgeStore interface {
	UpsertURLRecords(ctx context.Context, agentID string, urls []string, status models.SourceStatus) error
	UpsertFileRecords(ctx context.Context, agentID string, files []models.FileDescriptor, status models.SourceStatus) error
	UpsertCustomTextRecords(ctx context.Context, agentID string, texts []models.CustomTextInput, status models.SourceStatus) error
	UpsertQAPairRecords(ctx context.Context, agentID string, pairs []models.QAPairInput, status models.SourceStatus) error

	ListURLs(ctx context.Context, req models.ListSourcesRequest) (*models.SourcePage[models.AgentURLRecord], error)
	ListFiles(ctx context.Context, req models.ListSourcesRequest) (*models.SourcePage[models.AgentFileRecord], error)
	ListCustomTexts(ctx context.Context, req models.ListSourcesRequest) (*models.SourcePage[models.CustomTextRecord], error)
	ListQAPairs(ctx context.Context, req models.ListSourcesRequest) (*models.SourcePage[models.QAPairRecord], error)

	DeleteURLs(ctx context.Context, agentID string, urls []string) (int64, error)
	DeleteFiles(ctx context.Context, agentID string, fileNames []string) (int64, error)
	DeleteCustomTexts(ctx context.Context, agentID string, aliases []string) (int64, error)
	DeleteQAPairs(ctx context.Context, agentID string, aliases []string) (int64, error)

	// DeleteAllForAgent removes every source row of the agent.
	DeleteAllForAgent(ctx context.Context, agentID string) error
}

// ChatStore persists sessions and messages.
type ChatStore interface {
	GetSession(ctx context.Context, agentID, chatSessionID string) (*models.ChatSession, error)
	CreateSession(ctx context.Context, session *models.ChatSession) error
	SetSessionConversation(ctx context.Context, agentID, chatSessionID, conversationID string) error

	// ConversationHistory returns the last `limit` messages of the
	// conversation in ascending chronological order.
	ConversationHistory(ctx context.Context, chatSessionID, conversationID string, limit int) ([]models.ChatMessage, error)

	InsertMessages(ctx context.Context, messages []models.ChatMessage) error

	// DeleteAgentChats removes all sessions and messages of the agent.
	DeleteAgentChats(ctx context.Context, agentID string) error
}
