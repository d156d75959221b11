package services

import (
	"context"

	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
)

// RetrievalService fuses catalog-level routing with chunk-level retrieval
// and returns ranked source cards for prompt assembly.
type RetrievalService interface {
	Retrieve(ctx context.Context, agentID, query string) ([]models.SourceCard, error)
}
