package impl

import (
	"context"
	"encoding/json"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Shubhojeet-Ghosh/elysium-agents/config"
	"github.com/Shubhojeet-Ghosh/elysium-agents/logging"
	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

const metadataSystemPrompt = `You are a web page analyst. Given the text of a web page, produce a structured catalog entry.
Classify the page as "product" when it primarily sells or describes a single product or service, otherwise "content".
Write a concise summary (2-4 sentences) of what the page offers.
For product pages, fill in product_name, product_id, category, price, currency and is_available when the text states them; leave them null otherwise. Never invent values.`

// metadataExtractionSchema is the strict response schema for catalog
// entries.
var metadataExtractionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"page_type": map[string]any{
			"type": "string",
			"enum": []string{"product", "content"},
		},
		"summary":      map[string]any{"type": "string"},
		"url":          map[string]any{"type": "string"},
		"product_name": map[string]any{"type": []string{"string", "null"}},
		"product_id":   map[string]any{"type": []string{"string", "null"}},
		"category":     map[string]any{"type": []string{"string", "null"}},
		"price":        map[string]any{"type": []string{"number", "null"}},
		"currency":     map[string]any{"type": []string{"string", "null"}},
		"is_available": map[string]any{"type": []string{"boolean", "null"}},
	},
	"required": []string{
		"page_type", "summary", "url", "product_name", "product_id",
		"category", "price", "currency", "is_available",
	},
	"additionalProperties": false,
}

// metadataPageTextLimit bounds how much page text goes to the extractor.
const metadataPageTextLimit = 12000

const metadataConcurrency = 5

type metadataServiceImpl struct {
	client openai.Client
	model  string
	logger *zap.SugaredLogger
}

func NewMetadataService(cfg *config.OpenAIConfig) services.MetadataService {
	return &metadataServiceImpl{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  cfg.MetadataModel,
		logger: logging.Named("metadata"),
	}
}

// ExtractCatalogEntries summarizes every successfully fetched page. Failures
// map to nil entries so the URL stays eligible for knowledge-base indexing
// even when catalog routing is unavailable for it.
func (m *metadataServiceImpl) ExtractCatalogEntries(ctx context.Context, pages []models.FetchResult) []*models.CatalogEntry {
	entries := make([]*models.CatalogEntry, len(pages))

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(metadataConcurrency)
	for i, page := range pages {
		if !page.Success || page.TextContent == "" {
			continue
		}
		g.Go(func() error {
			entry, err := m.extractOne(groupCtx, page)
			if err != nil {
				m.logger.Warnw("metadata extraction failed", "url", page.NormalizedURL, "error", err)
				return nil
			}
			entries[i] = entry
			return nil
		})
	}
	_ = g.Wait()

	return entries
}

func (m *metadataServiceImpl) extractOne(ctx context.Context, page models.FetchResult) (*models.CatalogEntry, error) {
	text := page.TextContent
	if len(text) > metadataPageTextLimit {
		text = text[:metadataPageTextLimit]
	}

	resp, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(m.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(metadataSystemPrompt),
			openai.UserMessage("URL: " + page.NormalizedURL + "\n\nPage text:\n" + text),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "catalog_entry",
					Strict: openai.Bool(true),
					Schema: metadataExtractionSchema,
				},
			},
		},
	})
	if err != nil {
		return nil, models.NewUpstreamError("metadata completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, models.NewUpstreamError("metadata completion returned no choices", nil)
	}

	var entry models.CatalogEntry
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &entry); err != nil {
		return nil, models.NewUpstreamError("metadata response was not valid json", err)
	}
	entry.URL = page.NormalizedURL
	return &entry, nil
}
