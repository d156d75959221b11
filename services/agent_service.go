package services

import (
	"context"

	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
)

// AgentService owns the agent lifecycle: creation, the asynchronous
// ingestion pipeline, listing, and cascading deletion.
type AgentService interface {
	// PreBuildAgent creates an empty agent shell with default config.
	PreBuildAgent(ctx context.Context, ownerUserID string) (*models.Agent, error)

	// BuildAgent validates the request, transitions the agent to indexing,
	// and schedules ingestion in the background. Returns the agent id.
	BuildAgent(ctx context.Context, ownerUserID string, req models.BuildAgentRequest) (string, error)

	// UpdateAgent is BuildAgent for an existing agent; it transitions
	// through updating instead of indexing.
	UpdateAgent(ctx context.Context, ownerUserID string, req models.BuildAgentRequest) (string, error)

	GetAgentDetails(ctx context.Context, ownerUserID, agentID string) (*models.Agent, error)
	ListAgents(ctx context.Context, ownerUserID string) ([]models.Agent, error)

	// DeleteAgent cascades to source rows, both vector collections, and
	// all sessions/messages.
	DeleteAgent(ctx context.Context, ownerUserID, agentID string) error

	// RemoveSources batch-deletes knowledge sources of one type, cascading
	// to the vector collections.
	RemoveSources(ctx context.Context, ownerUserID string, knowledgeType models.KnowledgeType, req models.RemoveSourcesRequest) (*models.RemoveSourcesResponse, error)

	// GeneratePresignedUploads mints upload slots for agent files.
	GeneratePresignedUploads(ctx context.Context, ownerUserID string, req models.PresignedURLRequest) ([]models.PresignedUpload, error)
}
