package impl

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Shubhojeet-Ghosh/elysium-agents/config"
	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

type embeddingServiceImpl struct {
	client     openai.Client
	model      string
	dimensions int
}

// NewEmbeddingService builds the OpenAI embedding client. All callers batch:
// one API call per input slice.
func NewEmbeddingService(cfg *config.OpenAIConfig) services.EmbeddingService {
	return &embeddingServiceImpl{
		client:     openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:      cfg.EmbeddingModel,
		dimensions: cfg.EmbeddingDimensions,
	}
}

func (e *embeddingServiceImpl) Dimensions() int {
	return e.dimensions
}

func (e *embeddingServiceImpl) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          openai.EmbeddingModel(e.model),
		Dimensions:     openai.Int(int64(e.dimensions)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, models.NewUpstreamError("embedding request failed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, models.NewUpstreamError("embedding response size mismatch", nil)
	}

	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vectors[i] = toFloat32(item.Embedding)
	}
	return vectors, nil
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
