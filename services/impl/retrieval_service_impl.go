package impl

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Shubhojeet-Ghosh/elysium-agents/logging"
	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

const (
	catalogTopK     = 10
	knowledgeTopK   = 15
	chunkJoiner     = "\n\n"
	chunkHeadFormat = "[Chunk %d]\n%s"
)

type retrievalServiceImpl struct {
	vectors  services.VectorClient
	embedder services.EmbeddingService
	logger   *zap.SugaredLogger
}

func NewRetrievalService(vectors services.VectorClient, embedder services.EmbeddingService) services.RetrievalService {
	return &retrievalServiceImpl{
		vectors:  vectors,
		embedder: embedder,
		logger:   logging.Named("retrieval"),
	}
}

// Retrieve embeds the query once, routes through the catalog, then runs the
// source-biased and direct knowledge-base searches in parallel. Catalog
// routing biases retrieval toward relevant pages; the direct search keeps
// recall for chunks whose page summary did not rank.
func (r *retrievalServiceImpl) Retrieve(ctx context.Context, agentID, query string) ([]models.SourceCard, error) {
	vectors, err := r.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, models.NewUpstreamError("query embedding returned no vector", nil)
	}
	queryVector := vectors[0]

	catalogHits, err := r.vectors.Search(ctx, CollectionWebCatalog, queryVector, services.VectorFilter{AgentID: agentID}, catalogTopK)
	if err != nil {
		return nil, err
	}

	catalogEntries := make([]models.ScoredCatalogEntry, 0, len(catalogHits))
	catalogSources := make([]string, 0, len(catalogHits))
	for _, hit := range catalogHits {
		entry := catalogEntryFromPayload(hit.Payload)
		source := payloadString(hit.Payload, "knowledge_source")
		if source == "" {
			continue
		}
		catalogSources = append(catalogSources, source)
		catalogEntries = append(catalogEntries, models.ScoredCatalogEntry{
			KnowledgeSource: source,
			Entry:           entry,
			Score:           hit.Score,
		})
	}

	var biasedHits, directHits []services.VectorHit
	g, groupCtx := errgroup.WithContext(ctx)
	if len(catalogSources) > 0 {
		g.Go(func() error {
			hits, err := r.vectors.Search(groupCtx, CollectionKnowledgeBase, queryVector, services.VectorFilter{
				AgentID:          agentID,
				KnowledgeSources: catalogSources,
			}, knowledgeTopK)
			biasedHits = hits
			return err
		})
	}
	g.Go(func() error {
		hits, err := r.vectors.Search(groupCtx, CollectionKnowledgeBase, queryVector, services.VectorFilter{
			AgentID: agentID,
		}, knowledgeTopK)
		directHits = hits
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	chunks := dedupeChunks(append(biasedHits, directHits...))
	return mergeSourceCards(catalogEntries, chunks), nil
}

// dedupeChunks collapses the union of both searches by
// (knowledge_source, text_index), keeping the higher score on collision.
func dedupeChunks(hits []services.VectorHit) []models.ScoredChunk {
	type chunkKey struct {
		source    string
		textIndex int
	}
	best := make(map[chunkKey]models.ScoredChunk)
	order := make([]chunkKey, 0, len(hits))

	for _, hit := range hits {
		chunk := models.ScoredChunk{
			KnowledgeSource: payloadString(hit.Payload, "knowledge_source"),
			KnowledgeType:   models.KnowledgeType(payloadString(hit.Payload, "knowledge_type")),
			TextIndex:       payloadInt(hit.Payload, "text_index"),
			TextContent:     payloadString(hit.Payload, "text_content"),
			Score:           hit.Score,
		}
		if chunk.KnowledgeSource == "" {
			continue
		}
		key := chunkKey{chunk.KnowledgeSource, chunk.TextIndex}
		existing, seen := best[key]
		if !seen {
			order = append(order, key)
			best[key] = chunk
		} else if chunk.Score > existing.Score {
			best[key] = chunk
		}
	}

	out := make([]models.ScoredChunk, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

// mergeSourceCards groups chunks per source (max score, chunks ascending by
// text_index, annotated concatenation), folds in the catalog entries, and
// ranks the union by score descending.
func mergeSourceCards(catalogEntries []models.ScoredCatalogEntry, chunks []models.ScoredChunk) []models.SourceCard {
	cards := make(map[string]*models.SourceCard)
	order := []string{}

	upsert := func(source string) *models.SourceCard {
		if card, ok := cards[source]; ok {
			return card
		}
		card := &models.SourceCard{KnowledgeSource: source}
		cards[source] = card
		order = append(order, source)
		return card
	}

	for _, entry := range catalogEntries {
		card := upsert(entry.KnowledgeSource)
		card.KnowledgeType = models.KnowledgeTypeURL
		card.PageType = entry.Entry.PageType
		card.Summary = entry.Entry.Summary
		card.ProductName = entry.Entry.ProductName
		card.ProductID = entry.Entry.ProductID
		card.Category = entry.Entry.Category
		card.Price = entry.Entry.Price
		card.Currency = entry.Entry.Currency
		card.IsAvailable = entry.Entry.IsAvailable
		if entry.Score > card.Score {
			card.Score = entry.Score
		}
	}

	grouped := make(map[string][]models.ScoredChunk)
	for _, chunk := range chunks {
		grouped[chunk.KnowledgeSource] = append(grouped[chunk.KnowledgeSource], chunk)
	}
	for _, chunk := range chunks {
		group, ok := grouped[chunk.KnowledgeSource]
		if !ok {
			continue
		}
		delete(grouped, chunk.KnowledgeSource)

		sort.Slice(group, func(i, j int) bool { return group[i].TextIndex < group[j].TextIndex })

		maxScore := 0.0
		parts := make([]string, len(group))
		for i, c := range group {
			if c.Score > maxScore {
				maxScore = c.Score
			}
			parts[i] = fmt.Sprintf(chunkHeadFormat, c.TextIndex, c.TextContent)
		}

		card := upsert(chunk.KnowledgeSource)
		if card.KnowledgeType == "" {
			card.KnowledgeType = chunk.KnowledgeType
		}
		card.TextContent = strings.Join(parts, chunkJoiner)
		if maxScore > card.Score {
			card.Score = maxScore
		}
	}

	out := make([]models.SourceCard, 0, len(order))
	for _, source := range order {
		out = append(out, *cards[source])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func catalogEntryFromPayload(payload map[string]any) models.CatalogEntry {
	entry := models.CatalogEntry{
		PageType: models.PageType(payloadString(payload, "page_type")),
		Summary:  payloadString(payload, "summary"),
		URL:      payloadString(payload, "url"),
	}
	if v, ok := payload["product_name"].(string); ok {
		entry.ProductName = &v
	}
	if v, ok := payload["product_id"].(string); ok {
		entry.ProductID = &v
	}
	if v, ok := payload["category"].(string); ok {
		entry.Category = &v
	}
	if v, ok := payloadFloatOK(payload, "price"); ok {
		entry.Price = &v
	}
	if v, ok := payload["currency"].(string); ok {
		entry.Currency = &v
	}
	if v, ok := payload["is_available"].(bool); ok {
		entry.IsAvailable = &v
	}
	return entry
}

func payloadString(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func payloadInt(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func payloadFloatOK(payload map[string]any, key string) (float64, bool) {
	switch v := payload[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}
