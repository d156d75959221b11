package impl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shubhojeet-Ghosh/elysium-agents/config"
	"github.com/Shubhojeet-Ghosh/elysium-agents/logging"
	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

// pointNamespace seeds the deterministic point ids. Never change it: ids
// derived from it must stay stable across deployments so re-indexing
// overwrites in place.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("elysium-agents.knowledge"))

// DeterministicPointID derives a stable uuid from the identifying parts of a
// point.
func DeterministicPointID(parts ...string) string {
	return uuid.NewSHA1(pointNamespace, []byte(strings.Join(parts, "|"))).String()
}

type indexerServiceImpl struct {
	vectors      services.VectorClient
	embedder     services.EmbeddingService
	chunkSize    int
	chunkOverlap int
	logger       *zap.SugaredLogger
}

func NewIndexerService(vectors services.VectorClient, embedder services.EmbeddingService, cfg *config.ChunkerConfig) services.IndexerService {
	return &indexerServiceImpl{
		vectors:      vectors,
		embedder:     embedder,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		logger:       logging.Named("indexer"),
	}
}

func (s *indexerServiceImpl) IndexURLKnowledge(ctx context.Context, agentID string, pages []models.FetchResult) models.IndexReport {
	var report models.IndexReport
	var chunks []models.KnowledgeChunk

	for _, page := range pages {
		if !page.Success || strings.TrimSpace(page.TextContent) == "" {
			if page.Error != "" {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", page.URL, page.Error))
			}
			continue
		}
		texts := ChunkText(page.TextContent, s.chunkSize, s.chunkOverlap)
		for i, text := range texts {
			chunks = append(chunks, models.KnowledgeChunk{
				AgentID:         agentID,
				KnowledgeSource: page.NormalizedURL,
				KnowledgeType:   models.KnowledgeTypeURL,
				TextIndex:       i,
				TextContent:     text,
			})
		}
		report.TotalProcessed++
	}

	report.Merge(s.upsertChunks(ctx, agentID, chunks))
	return report
}

func (s *indexerServiceImpl) IndexFileKnowledge(ctx context.Context, agentID, fileName, text string) models.IndexReport {
	return s.indexSingleSource(ctx, agentID, models.KnowledgeTypeFile, fileName, text)
}

func (s *indexerServiceImpl) IndexCustomText(ctx context.Context, agentID, alias, text string) models.IndexReport {
	return s.indexSingleSource(ctx, agentID, models.KnowledgeTypeCustomText, alias, text)
}

func (s *indexerServiceImpl) IndexQAPair(ctx context.Context, agentID string, pair models.QAPairInput) models.IndexReport {
	var report models.IndexReport
	text := models.SerializeQAPair(pair.Question, pair.Answer)
	chunk := models.KnowledgeChunk{
		AgentID:         agentID,
		KnowledgeSource: pair.QnaAlias,
		KnowledgeType:   models.KnowledgeTypeCustomQA,
		TextIndex:       0,
		TextContent:     text,
	}
	report.TotalProcessed = 1
	report.Merge(s.upsertChunks(ctx, agentID, []models.KnowledgeChunk{chunk}))
	return report
}

func (s *indexerServiceImpl) indexSingleSource(ctx context.Context, agentID string, knowledgeType models.KnowledgeType, source, text string) models.IndexReport {
	var report models.IndexReport
	if strings.TrimSpace(text) == "" {
		report.Errors = append(report.Errors, source+": empty text")
		return report
	}
	texts := ChunkText(text, s.chunkSize, s.chunkOverlap)
	chunks := make([]models.KnowledgeChunk, len(texts))
	for i, t := range texts {
		chunks[i] = models.KnowledgeChunk{
			AgentID:         agentID,
			KnowledgeSource: source,
			KnowledgeType:   knowledgeType,
			TextIndex:       i,
			TextContent:     t,
		}
	}
	report.TotalProcessed = 1
	report.Merge(s.upsertChunks(ctx, agentID, chunks))
	return report
}

// upsertChunks is the batched upsert protocol shared by every knowledge
// type: one embedding call for all chunk texts, a filter-delete per distinct
// source (scoped by knowledge_type for non-URL sources so nothing
// cross-type is lost), then a single upsert. Delete-then-upsert means a
// mid-run crash can lose the old chunks but a retry re-creates them;
// duplicates are never left behind.
func (s *indexerServiceImpl) upsertChunks(ctx context.Context, agentID string, chunks []models.KnowledgeChunk) models.IndexReport {
	var report models.IndexReport
	if len(chunks) == 0 {
		return report
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.TextContent
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		report.Errors = append(report.Errors, "embedding failed: "+err.Error())
		return report
	}

	type sourceKey struct {
		source        string
		knowledgeType models.KnowledgeType
	}
	distinct := make(map[sourceKey]bool)
	for _, chunk := range chunks {
		distinct[sourceKey{chunk.KnowledgeSource, chunk.KnowledgeType}] = true
	}
	for key := range distinct {
		filter := services.VectorFilter{
			AgentID:         agentID,
			KnowledgeSource: key.source,
		}
		if key.knowledgeType != models.KnowledgeTypeURL {
			filter.KnowledgeType = string(key.knowledgeType)
		}
		if err := s.vectors.DeleteByFilter(ctx, CollectionKnowledgeBase, filter); err != nil {
			report.Errors = append(report.Errors, key.source+": stale delete failed: "+err.Error())
			return report
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	points := make([]services.VectorPoint, len(chunks))
	for i, chunk := range chunks {
		var id string
		if chunk.KnowledgeType == models.KnowledgeTypeURL {
			// URL chunks rely on the filter-delete above, not id reuse.
			id = uuid.NewString()
		} else {
			id = DeterministicPointID(agentID, string(chunk.KnowledgeType), chunk.KnowledgeSource, fmt.Sprintf("%d", chunk.TextIndex))
		}
		points[i] = services.VectorPoint{
			ID:     id,
			Vector: vectors[i],
			Payload: map[string]any{
				"agent_id":         agentID,
				"knowledge_source": chunk.KnowledgeSource,
				"knowledge_type":   string(chunk.KnowledgeType),
				"text_index":       chunk.TextIndex,
				"text_content":     chunk.TextContent,
				"created_at":       now,
			},
		}
	}

	if err := s.vectors.Upsert(ctx, CollectionKnowledgeBase, points); err != nil {
		report.Errors = append(report.Errors, "upsert failed: "+err.Error())
		return report
	}
	report.TotalChunks = len(points)
	return report
}

func (s *indexerServiceImpl) IndexCatalogEntries(ctx context.Context, agentID string, entries []*models.CatalogEntry) models.IndexReport {
	var report models.IndexReport

	valid := make([]*models.CatalogEntry, 0, len(entries))
	for _, entry := range entries {
		if entry != nil && entry.Summary != "" {
			valid = append(valid, entry)
		}
	}
	if len(valid) == 0 {
		return report
	}

	summaries := make([]string, len(valid))
	for i, entry := range valid {
		summaries[i] = entry.Summary
	}
	vectors, err := s.embedder.EmbedTexts(ctx, summaries)
	if err != nil {
		report.Errors = append(report.Errors, "catalog embedding failed: "+err.Error())
		return report
	}

	now := time.Now().UTC().Format(time.RFC3339)
	points := make([]services.VectorPoint, 0, len(valid))
	for i, entry := range valid {
		// Belt and braces: the id is already deterministic per (agent, url),
		// but a pre-delete also clears points written under older payload
		// schemas.
		filter := services.VectorFilter{AgentID: agentID, KnowledgeSource: entry.URL}
		if err := s.vectors.DeleteByFilter(ctx, CollectionWebCatalog, filter); err != nil {
			report.Errors = append(report.Errors, entry.URL+": catalog delete failed: "+err.Error())
			continue
		}

		payload := map[string]any{
			"agent_id":         agentID,
			"knowledge_source": entry.URL,
			"knowledge_type":   string(models.KnowledgeTypeURL),
			"page_type":        string(entry.PageType),
			"summary":          entry.Summary,
			"url":              entry.URL,
			"created_at":       now,
		}
		if entry.ProductName != nil {
			payload["product_name"] = *entry.ProductName
		}
		if entry.ProductID != nil {
			payload["product_id"] = *entry.ProductID
		}
		if entry.Category != nil {
			payload["category"] = *entry.Category
		}
		if entry.Price != nil {
			payload["price"] = *entry.Price
		}
		if entry.Currency != nil {
			payload["currency"] = *entry.Currency
		}
		if entry.IsAvailable != nil {
			payload["is_available"] = *entry.IsAvailable
		}

		points = append(points, services.VectorPoint{
			ID:      DeterministicPointID(agentID, entry.URL),
			Vector:  vectors[i],
			Payload: payload,
		})
		report.TotalProcessed++
	}

	if len(points) > 0 {
		if err := s.vectors.Upsert(ctx, CollectionWebCatalog, points); err != nil {
			report.Errors = append(report.Errors, "catalog upsert failed: "+err.Error())
			return report
		}
		report.TotalChunks = len(points)
	}
	return report
}

func (s *indexerServiceImpl) RemoveKnowledgeSources(ctx context.Context, agentID string, knowledgeType models.KnowledgeType, sources []string) error {
	if len(sources) == 0 {
		return nil
	}
	filter := services.VectorFilter{
		AgentID:          agentID,
		KnowledgeSources: sources,
	}
	if knowledgeType != models.KnowledgeTypeURL {
		filter.KnowledgeType = string(knowledgeType)
	}
	if err := s.vectors.DeleteByFilter(ctx, CollectionKnowledgeBase, filter); err != nil {
		return err
	}
	if knowledgeType == models.KnowledgeTypeURL {
		return s.vectors.DeleteByFilter(ctx, CollectionWebCatalog, services.VectorFilter{
			AgentID:          agentID,
			KnowledgeSources: sources,
		})
	}
	return nil
}

func (s *indexerServiceImpl) RemoveAgentPoints(ctx context.Context, agentID string) error {
	filter := services.VectorFilter{AgentID: agentID}
	if err := s.vectors.DeleteByFilter(ctx, CollectionKnowledgeBase, filter); err != nil {
		return err
	}
	return s.vectors.DeleteByFilter(ctx, CollectionWebCatalog, filter)
}
