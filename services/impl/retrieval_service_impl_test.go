package impl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

func seedRetrievalFixture(t *testing.T) (*fakeVectorClient, *fakeEmbedder) {
	t.Helper()
	vectors := newFakeVectorClient()
	embedder := newFakeEmbedder()
	embedder.vectors["how much is the widget?"] = []float32{1, 0, 0}

	ctx := context.Background()

	// Catalog: the widget product page ranks close to the query, the blog
	// page far from it.
	require.NoError(t, vectors.Upsert(ctx, CollectionWebCatalog, []services.VectorPoint{
		{
			ID:     "cat-widget",
			Vector: []float32{0.9, 0.1, 0},
			Payload: map[string]any{
				"agent_id":         "agent-1",
				"knowledge_source": "https://shop/widget",
				"page_type":        "product",
				"summary":          "The Widget product page.",
				"url":              "https://shop/widget",
				"product_name":     "Widget",
				"price":            9.99,
				"currency":         "USD",
			},
		},
		{
			ID:     "cat-blog",
			Vector: []float32{0, 0.2, 0.9},
			Payload: map[string]any{
				"agent_id":         "agent-1",
				"knowledge_source": "https://shop/blog",
				"page_type":        "content",
				"summary":          "Company blog posts.",
				"url":              "https://shop/blog",
			},
		},
	}))

	// Knowledge base: two widget chunks (out of order), one orphan chunk
	// from a page that has no catalog entry.
	require.NoError(t, vectors.Upsert(ctx, CollectionKnowledgeBase, []services.VectorPoint{
		{
			ID:     "kb-widget-1",
			Vector: []float32{0.8, 0.2, 0},
			Payload: map[string]any{
				"agent_id": "agent-1", "knowledge_source": "https://shop/widget",
				"knowledge_type": "url", "text_index": 1, "text_content": "Shipping is free.",
			},
		},
		{
			ID:     "kb-widget-0",
			Vector: []float32{0.95, 0.05, 0},
			Payload: map[string]any{
				"agent_id": "agent-1", "knowledge_source": "https://shop/widget",
				"knowledge_type": "url", "text_index": 0, "text_content": "The widget costs $9.99.",
			},
		},
		{
			ID:     "kb-faq-0",
			Vector: []float32{0.5, 0.5, 0},
			Payload: map[string]any{
				"agent_id": "agent-1", "knowledge_source": "faq",
				"knowledge_type": "custom_text", "text_index": 0, "text_content": "Returns accepted within 30 days.",
			},
		},
	}))

	return vectors, embedder
}

func TestRetrieveMergeProperties(t *testing.T) {
	vectors, embedder := seedRetrievalFixture(t)
	retrieval := NewRetrievalService(vectors, embedder)

	cards, err := retrieval.Retrieve(context.Background(), "agent-1", "how much is the widget?")
	require.NoError(t, err)
	require.NotEmpty(t, cards)

	// No duplicate sources.
	seen := map[string]bool{}
	for _, card := range cards {
		assert.False(t, seen[card.KnowledgeSource], "duplicate source %s", card.KnowledgeSource)
		seen[card.KnowledgeSource] = true
	}

	// Scores are monotone non-increasing.
	for i := 1; i < len(cards); i++ {
		assert.GreaterOrEqual(t, cards[i-1].Score, cards[i].Score)
	}
}

func TestRetrieveTopCardCarriesCatalogFacts(t *testing.T) {
	vectors, embedder := seedRetrievalFixture(t)
	retrieval := NewRetrievalService(vectors, embedder)

	cards, err := retrieval.Retrieve(context.Background(), "agent-1", "how much is the widget?")
	require.NoError(t, err)
	require.NotEmpty(t, cards)

	top := cards[0]
	assert.Equal(t, "https://shop/widget", top.KnowledgeSource)
	require.NotNil(t, top.ProductName)
	assert.Equal(t, "Widget", *top.ProductName)
	require.NotNil(t, top.Price)
	assert.Equal(t, 9.99, *top.Price)
}

func TestRetrieveChunksConcatenatedInTextIndexOrder(t *testing.T) {
	vectors, embedder := seedRetrievalFixture(t)
	retrieval := NewRetrievalService(vectors, embedder)

	cards, err := retrieval.Retrieve(context.Background(), "agent-1", "how much is the widget?")
	require.NoError(t, err)

	var widget *models.SourceCard
	for i := range cards {
		if cards[i].KnowledgeSource == "https://shop/widget" {
			widget = &cards[i]
		}
	}
	require.NotNil(t, widget)
	assert.Equal(t,
		"[Chunk 0]\nThe widget costs $9.99.\n\n[Chunk 1]\nShipping is free.",
		widget.TextContent)
}

func TestRetrieveCatalogOnlyAndChunkOnlyCards(t *testing.T) {
	vectors, embedder := seedRetrievalFixture(t)
	retrieval := NewRetrievalService(vectors, embedder)

	cards, err := retrieval.Retrieve(context.Background(), "agent-1", "how much is the widget?")
	require.NoError(t, err)

	bydSource := map[string]models.SourceCard{}
	for _, card := range cards {
		bydSource[card.KnowledgeSource] = card
	}

	// Catalog-only: summary set, no chunk text.
	blog, ok := bydSource["https://shop/blog"]
	require.True(t, ok)
	assert.NotEmpty(t, blog.Summary)
	assert.Empty(t, blog.TextContent)

	// Chunk-only: text set, no summary.
	faq, ok := bydSource["faq"]
	require.True(t, ok)
	assert.Empty(t, faq.Summary)
	assert.NotEmpty(t, faq.TextContent)
	assert.Equal(t, models.KnowledgeTypeCustomText, faq.KnowledgeType)
}

func TestRetrieveEmptyAgentReturnsNoCards(t *testing.T) {
	retrieval := NewRetrievalService(newFakeVectorClient(), newFakeEmbedder())
	cards, err := retrieval.Retrieve(context.Background(), "agent-missing", "anything")
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestDedupeChunksKeepsHigherScore(t *testing.T) {
	hits := []services.VectorHit{
		{Score: 0.4, Payload: map[string]any{"knowledge_source": "a", "text_index": 0, "text_content": "x", "knowledge_type": "url"}},
		{Score: 0.9, Payload: map[string]any{"knowledge_source": "a", "text_index": 0, "text_content": "x", "knowledge_type": "url"}},
		{Score: 0.5, Payload: map[string]any{"knowledge_source": "a", "text_index": 1, "text_content": "y", "knowledge_type": "url"}},
	}
	chunks := dedupeChunks(hits)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0.9, chunks[0].Score)
}
