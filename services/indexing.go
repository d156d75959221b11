package services

import (
	"context"

	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
)

// EmbeddingService turns texts into fixed-dimension vectors. Implementations
// batch: one call per input slice.
type EmbeddingService interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// MetadataService summarizes fetched pages into structured catalog entries.
// A page whose extraction fails maps to a nil entry; the batch continues.
type MetadataService interface {
	ExtractCatalogEntries(ctx context.Context, pages []models.FetchResult) []*models.CatalogEntry
}

// VectorFilter is the payload filter shape every vector operation uses.
// Zero-valued fields are omitted from the built filter.
type VectorFilter struct {
	AgentID          string
	KnowledgeSource  string
	KnowledgeSources []string
	KnowledgeType    string
}

// VectorPoint is one point headed for a collection.
type VectorPoint struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// VectorHit is one scored search result.
type VectorHit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// VectorClient is the narrow vector-database surface the indexer and
// retrieval engine need.
type VectorClient interface {
	EnsureCollections(ctx context.Context) error
	Upsert(ctx context.Context, collection string, points []VectorPoint) error
	DeleteByFilter(ctx context.Context, collection string, filter VectorFilter) error
	Search(ctx context.Context, collection string, vector []float32, filter VectorFilter, limit int) ([]VectorHit, error)
}

// IndexerService embeds chunks and catalog entries and upserts them with
// atomic per-source replacement.
type IndexerService interface {
	IndexURLKnowledge(ctx context.Context, agentID string, pages []models.FetchResult) models.IndexReport
	IndexCatalogEntries(ctx context.Context, agentID string, entries []*models.CatalogEntry) models.IndexReport
	IndexFileKnowledge(ctx context.Context, agentID, fileName, text string) models.IndexReport
	IndexCustomText(ctx context.Context, agentID, alias, text string) models.IndexReport
	IndexQAPair(ctx context.Context, agentID string, pair models.QAPairInput) models.IndexReport

	// RemoveKnowledgeSources deletes all points for the named sources from
	// the knowledge base, and from the catalog when the type is url.
	RemoveKnowledgeSources(ctx context.Context, agentID string, knowledgeType models.KnowledgeType, sources []string) error

	// RemoveAgentPoints clears both collections for the agent.
	RemoveAgentPoints(ctx context.Context, agentID string) error
}
