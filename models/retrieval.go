package models

// ScoredChunk is one knowledge-base hit before grouping.
type ScoredChunk struct {
	KnowledgeSource string        `json:"knowledge_source"`
	KnowledgeType   KnowledgeType `json:"knowledge_type"`
	TextIndex       int           `json:"text_index"`
	TextContent     string        `json:"text_content"`
	Score           float64       `json:"score"`
}

// ScoredCatalogEntry is one catalog hit.
type ScoredCatalogEntry struct {
	KnowledgeSource string       `json:"knowledge_source"`
	Entry           CatalogEntry `json:"entry"`
	Score           float64      `json:"score"`
}

// SourceCard is the per-source merged record returned by retrieval:
// structured catalog metadata (when the source ranked in the catalog),
// concatenated chunk text (when it ranked in the knowledge base), and the
// maximum score seen across both.
type SourceCard struct {
	KnowledgeSource string        `json:"knowledge_source"`
	KnowledgeType   KnowledgeType `json:"knowledge_type,omitempty"`
	PageType        PageType      `json:"page_type,omitempty"`
	Summary         string        `json:"summary,omitempty"`
	ProductName     *string       `json:"product_name,omitempty"`
	ProductID       *string       `json:"product_id,omitempty"`
	Category        *string       `json:"category,omitempty"`
	Price           *float64      `json:"price,omitempty"`
	Currency        *string       `json:"currency,omitempty"`
	IsAvailable     *bool         `json:"is_available,omitempty"`
	Score           float64       `json:"score"`
	TextContent     string        `json:"text_content,omitempty"`
}
