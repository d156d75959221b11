package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// KnowledgeType identifies where a knowledge source came from.
type KnowledgeType string

const (
	KnowledgeTypeURL        KnowledgeType = "url"
	KnowledgeTypeFile       KnowledgeType = "file"
	KnowledgeTypeCustomText KnowledgeType = "custom_text"
	KnowledgeTypeCustomQA   KnowledgeType = "custom_qa"
)

// SourceStatus is the indexing state of one knowledge source.
type SourceStatus string

const (
	SourceStatusIndexing SourceStatus = "indexing"
	SourceStatusIndexed  SourceStatus = "indexed"
	SourceStatusActive   SourceStatus = "active"
	SourceStatusFailed   SourceStatus = "failed"
)

// PageType classifies a catalog entry.
type PageType string

const (
	PageTypeProduct PageType = "product"
	PageTypeContent PageType = "content"
)

// KnowledgeChunk is one chunk of source text headed for the knowledge base.
type KnowledgeChunk struct {
	AgentID         string        `json:"agent_id"`
	KnowledgeSource string        `json:"knowledge_source"`
	KnowledgeType   KnowledgeType `json:"knowledge_type"`
	TextIndex       int           `json:"text_index"`
	TextContent     string        `json:"text_content"`
}

// CatalogEntry is the structured per-URL summary used for page-level routing.
// Optional fields stay nil when the extractor could not determine them.
type CatalogEntry struct {
	PageType    PageType `json:"page_type"`
	Summary     string   `json:"summary"`
	URL         string   `json:"url"`
	ProductName *string  `json:"product_name,omitempty"`
	ProductID   *string  `json:"product_id,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Currency    *string  `json:"currency,omitempty"`
	IsAvailable *bool    `json:"is_available,omitempty"`
}

// FetchResult is the per-URL outcome of a fetch batch. Failures set Success
// false and Error; they never abort the batch.
type FetchResult struct {
	Success       bool     `json:"success"`
	URL           string   `json:"url"`
	NormalizedURL string   `json:"normalized_url,omitempty"`
	FinalURL      string   `json:"final_url,omitempty"`
	Title         string   `json:"title,omitempty"`
	TextContent   string   `json:"text_content,omitempty"`
	TextLength    int      `json:"text_length"`
	Hrefs         []string `json:"hrefs,omitempty"`
	HrefsCount    int      `json:"hrefs_count"`
	StatusCode    int      `json:"status_code,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// FileDescriptor identifies an uploaded document in object storage.
type FileDescriptor struct {
	FileName   string `json:"file_name" bson:"file_name"`
	FileKey    string `json:"file_key" bson:"file_key"`
	CDNURL     string `json:"cdn_url,omitempty" bson:"cdn_url,omitempty"`
	FileSource string `json:"file_source,omitempty" bson:"file_source,omitempty"`
}

// CustomTextInput is an author-supplied free-text source.
type CustomTextInput struct {
	CustomTextAlias string `json:"custom_text_alias"`
	CustomText      string `json:"custom_text"`
}

// QAPairInput is an author-supplied question/answer source.
type QAPairInput struct {
	QnaAlias string `json:"qna_alias"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// IndexReport summarizes one indexing run. Partial success is valid: Errors
// collects the per-source failures while the rest of the batch lands.
type IndexReport struct {
	TotalProcessed int      `json:"total_processed"`
	TotalChunks    int      `json:"total_chunks"`
	Errors         []string `json:"errors,omitempty"`
}

// Merge folds another report into this one.
func (r *IndexReport) Merge(other IndexReport) {
	r.TotalProcessed += other.TotalProcessed
	r.TotalChunks += other.TotalChunks
	r.Errors = append(r.Errors, other.Errors...)
}

// AgentURLRecord is one indexed URL row.
type AgentURLRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AgentID   string             `bson:"agent_id" json:"agent_id"`
	URL       string             `bson:"url" json:"url"`
	Status    SourceStatus       `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// AgentFileRecord is one indexed file row.
type AgentFileRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AgentID    string             `bson:"agent_id" json:"agent_id"`
	FileName   string             `bson:"file_name" json:"file_name"`
	FileKey    string             `bson:"file_key,omitempty" json:"file_key,omitempty"`
	CDNURL     string             `bson:"cdn_url,omitempty" json:"cdn_url,omitempty"`
	FileSource string             `bson:"file_source,omitempty" json:"file_source,omitempty"`
	Status     SourceStatus       `bson:"status" json:"status"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// CustomTextRecord is one custom-text row, keyed by alias.
type CustomTextRecord struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AgentID         string             `bson:"agent_id" json:"agent_id"`
	CustomTextAlias string             `bson:"custom_text_alias" json:"custom_text_alias"`
	CustomText      string             `bson:"custom_text" json:"custom_text"`
	Status          SourceStatus       `bson:"status" json:"status"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// QAPairRecord is one question/answer row, keyed by alias.
type QAPairRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AgentID   string             `bson:"agent_id" json:"agent_id"`
	QnaAlias  string             `bson:"qna_alias" json:"qna_alias"`
	Question  string             `bson:"question" json:"question"`
	Answer    string             `bson:"answer" json:"answer"`
	Status    SourceStatus       `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// ObjectID accessors let generic pagination read the cursor key off any
// record type.
func (r AgentURLRecord) ObjectID() primitive.ObjectID   { return r.ID }
func (r AgentFileRecord) ObjectID() primitive.ObjectID  { return r.ID }
func (r CustomTextRecord) ObjectID() primitive.ObjectID { return r.ID }
func (r QAPairRecord) ObjectID() primitive.ObjectID     { return r.ID }

// SerializeQAPair flattens a question/answer pair into the single text that
// gets embedded.
func SerializeQAPair(question, answer string) string {
	return "Question: " + question + " Answer: " + answer
}
