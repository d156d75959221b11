package impl

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

// fakeVectorClient is an in-memory services.VectorClient with real filter
// semantics and cosine scoring.
type fakeVectorClient struct {
	mu          sync.Mutex
	collections map[string]map[string]services.VectorPoint // collection -> id -> point
}

func newFakeVectorClient() *fakeVectorClient {
	return &fakeVectorClient{collections: map[string]map[string]services.VectorPoint{}}
}

func (f *fakeVectorClient) EnsureCollections(ctx context.Context) error { return nil }

func (f *fakeVectorClient) Upsert(ctx context.Context, collection string, points []services.VectorPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.collections[collection] == nil {
		f.collections[collection] = map[string]services.VectorPoint{}
	}
	for _, p := range points {
		f.collections[collection][p.ID] = p
	}
	return nil
}

func (f *fakeVectorClient) DeleteByFilter(ctx context.Context, collection string, filter services.VectorFilter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, p := range f.collections[collection] {
		if matchesFilter(p.Payload, filter) {
			delete(f.collections[collection], id)
		}
	}
	return nil
}

func (f *fakeVectorClient) Search(ctx context.Context, collection string, vector []float32, filter services.VectorFilter, limit int) ([]services.VectorHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var hits []services.VectorHit
	for id, p := range f.collections[collection] {
		if !matchesFilter(p.Payload, filter) {
			continue
		}
		hits = append(hits, services.VectorHit{ID: id, Score: cosine(vector, p.Vector), Payload: p.Payload})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeVectorClient) count(collection string, filter services.VectorFilter) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.collections[collection] {
		if matchesFilter(p.Payload, filter) {
			n++
		}
	}
	return n
}

func (f *fakeVectorClient) texts(collection string, filter services.VectorFilter) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.collections[collection] {
		if matchesFilter(p.Payload, filter) {
			if s, ok := p.Payload["text_content"].(string); ok {
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}

func matchesFilter(payload map[string]any, filter services.VectorFilter) bool {
	str := func(key string) string {
		s, _ := payload[key].(string)
		return s
	}
	if filter.AgentID != "" && str("agent_id") != filter.AgentID {
		return false
	}
	if filter.KnowledgeSource != "" && str("knowledge_source") != filter.KnowledgeSource {
		return false
	}
	if filter.KnowledgeType != "" && str("knowledge_type") != filter.KnowledgeType {
		return false
	}
	if len(filter.KnowledgeSources) > 0 {
		found := false
		for _, s := range filter.KnowledgeSources {
			if str("knowledge_source") == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := 0; i < len(a) && i < len(b); i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// fakeEmbedder maps known texts to fixed vectors; everything else gets the
// fallback vector.
type fakeEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		vectors:  map[string][]float32{},
		fallback: []float32{0.1, 0.1, 0.1},
	}
}

func (f *fakeEmbedder) Dimensions() int { return 3 }

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := f.vectors[text]; ok {
			out[i] = v
		} else {
			out[i] = f.fallback
		}
	}
	return out, nil
}
