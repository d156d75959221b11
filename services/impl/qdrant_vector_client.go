package impl

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/Shubhojeet-Ghosh/elysium-agents/config"
	"github.com/Shubhojeet-Ghosh/elysium-agents/logging"
	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

const (
	// CollectionKnowledgeBase holds per-chunk points for every source type.
	CollectionKnowledgeBase = "agent_knowledge_base"
	// CollectionWebCatalog holds one structured summary point per URL.
	CollectionWebCatalog = "agent_web_catalog"
)

type qdrantVectorClient struct {
	client     *qdrant.Client
	dimensions uint64
	logger     *zap.SugaredLogger
}

// NewQdrantVectorClient connects to the cluster over gRPC.
func NewQdrantVectorClient(cfg *config.QdrantConfig, dimensions int) (services.VectorClient, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return &qdrantVectorClient{
		client:     client,
		dimensions: uint64(dimensions),
		logger:     logging.Named("qdrant"),
	}, nil
}

// EnsureCollections creates both collections and their payload indexes when
// missing. Safe to call on every startup.
func (q *qdrantVectorClient) EnsureCollections(ctx context.Context) error {
	collections := map[string][]string{
		CollectionKnowledgeBase: {"agent_id", "knowledge_source", "knowledge_type"},
		CollectionWebCatalog:    {"agent_id", "knowledge_source"},
	}
	for name, indexFields := range collections {
		exists, err := q.client.CollectionExists(ctx, name)
		if err != nil {
			return models.NewUpstreamError("failed to check collection "+name, err)
		}
		if !exists {
			err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
				CollectionName: name,
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
					Size:     q.dimensions,
					Distance: qdrant.Distance_Cosine,
				}),
			})
			if err != nil {
				return models.NewUpstreamError("failed to create collection "+name, err)
			}
			q.logger.Infow("created collection", "collection", name)
		}
		for _, field := range indexFields {
			_, err = q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
				CollectionName: name,
				FieldName:      field,
				FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
			})
			if err != nil {
				return models.NewUpstreamError(fmt.Sprintf("failed to index %s.%s", name, field), err)
			}
		}
	}
	return nil
}

func (q *qdrantVectorClient) Upsert(ctx context.Context, collection string, points []services.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}
	qdrantPoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(p.Payload),
		}
	}
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return models.NewUpstreamError("vector upsert failed", err)
	}
	return nil
}

func (q *qdrantVectorClient) DeleteByFilter(ctx context.Context, collection string, filter services.VectorFilter) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelectorFilter(buildFilter(filter)),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return models.NewUpstreamError("vector delete failed", err)
	}
	return nil
}

func (q *qdrantVectorClient) Search(ctx context.Context, collection string, vector []float32, filter services.VectorFilter, limit int) ([]services.VectorHit, error) {
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         buildFilter(filter),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, models.NewUpstreamError("vector search failed", err)
	}

	hits := make([]services.VectorHit, len(points))
	for i, point := range points {
		hits[i] = services.VectorHit{
			ID:      point.Id.GetUuid(),
			Score:   float64(point.Score),
			Payload: payloadToMap(point.Payload),
		}
	}
	return hits, nil
}

func buildFilter(filter services.VectorFilter) *qdrant.Filter {
	var must []*qdrant.Condition
	if filter.AgentID != "" {
		must = append(must, qdrant.NewMatch("agent_id", filter.AgentID))
	}
	if filter.KnowledgeSource != "" {
		must = append(must, qdrant.NewMatch("knowledge_source", filter.KnowledgeSource))
	}
	if len(filter.KnowledgeSources) > 0 {
		must = append(must, qdrant.NewMatchKeywords("knowledge_source", filter.KnowledgeSources...))
	}
	if filter.KnowledgeType != "" {
		must = append(must, qdrant.NewMatch("knowledge_type", filter.KnowledgeType))
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

func payloadToMap(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		out[key] = valueToAny(value)
	}
	return out
}

func valueToAny(value *qdrant.Value) any {
	switch kind := value.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		items := kind.ListValue.GetValues()
		list := make([]any, len(items))
		for i, item := range items {
			list[i] = valueToAny(item)
		}
		return list
	default:
		return nil
	}
}
