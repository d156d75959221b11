package impl

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shubhojeet-Ghosh/elysium-agents/config"
	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

type fakeKnowledgeStore struct {
	mu          sync.Mutex
	urls        map[string]models.SourceStatus
	files       map[string]models.SourceStatus
	customTexts map[string]models.SourceStatus
	qaPairs     map[string]models.SourceStatus
}

func newFakeKnowledgeStore() *fakeKnowledgeStore {
	return &fakeKnowledgeStore{
		urls:        map[string]models.SourceStatus{},
		files:       map[string]models.SourceStatus{},
		customTexts: map[string]models.SourceStatus{},
		qaPairs:     map[string]models.SourceStatus{},
	}
}

func srcKey(agentID, key string) string { return agentID + "|" + key }

func (s *fakeKnowledgeStore) UpsertURLRecords(ctx context.Context, agentID string, urls []string, status models.SourceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range urls {
		s.urls[srcKey(agentID, u)] = status
	}
	return nil
}

func (s *fakeKnowledgeStore) UpsertFileRecords(ctx context.Context, agentID string, files []models.FileDescriptor, status models.SourceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range files {
		s.files[srcKey(agentID, f.FileName)] = status
	}
	return nil
}

func (s *fakeKnowledgeStore) UpsertCustomTextRecords(ctx context.Context, agentID string, texts []models.CustomTextInput, status models.SourceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range texts {
		s.customTexts[srcKey(agentID, t.CustomTextAlias)] = status
	}
	return nil
}

func (s *fakeKnowledgeStore) UpsertQAPairRecords(ctx context.Context, agentID string, pairs []models.QAPairInput, status models.SourceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pairs {
		s.qaPairs[srcKey(agentID, p.QnaAlias)] = status
	}
	return nil
}

func (s *fakeKnowledgeStore) ListURLs(ctx context.Context, req models.ListSourcesRequest) (*models.SourcePage[models.AgentURLRecord], error) {
	return &models.SourcePage[models.AgentURLRecord]{}, nil
}

func (s *fakeKnowledgeStore) ListFiles(ctx context.Context, req models.ListSourcesRequest) (*models.SourcePage[models.AgentFileRecord], error) {
	return &models.SourcePage[models.AgentFileRecord]{}, nil
}

func (s *fakeKnowledgeStore) ListCustomTexts(ctx context.Context, req models.ListSourcesRequest) (*models.SourcePage[models.CustomTextRecord], error) {
	return &models.SourcePage[models.CustomTextRecord]{}, nil
}

func (s *fakeKnowledgeStore) ListQAPairs(ctx context.Context, req models.ListSourcesRequest) (*models.SourcePage[models.QAPairRecord], error) {
	return &models.SourcePage[models.QAPairRecord]{}, nil
}

func (s *fakeKnowledgeStore) deleteKeyed(m map[string]models.SourceStatus, agentID string, keys []string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for _, k := range keys {
		if _, ok := m[srcKey(agentID, k)]; ok {
			delete(m, srcKey(agentID, k))
			removed++
		}
	}
	return removed
}

func (s *fakeKnowledgeStore) DeleteURLs(ctx context.Context, agentID string, urls []string) (int64, error) {
	return s.deleteKeyed(s.urls, agentID, urls), nil
}

func (s *fakeKnowledgeStore) DeleteFiles(ctx context.Context, agentID string, names []string) (int64, error) {
	return s.deleteKeyed(s.files, agentID, names), nil
}

func (s *fakeKnowledgeStore) DeleteCustomTexts(ctx context.Context, agentID string, aliases []string) (int64, error) {
	return s.deleteKeyed(s.customTexts, agentID, aliases), nil
}

func (s *fakeKnowledgeStore) DeleteQAPairs(ctx context.Context, agentID string, aliases []string) (int64, error) {
	return s.deleteKeyed(s.qaPairs, agentID, aliases), nil
}

func (s *fakeKnowledgeStore) DeleteAllForAgent(ctx context.Context, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range []map[string]models.SourceStatus{s.urls, s.files, s.customTexts, s.qaPairs} {
		for k := range m {
			if strings.HasPrefix(k, agentID+"|") {
				delete(m, k)
			}
		}
	}
	return nil
}

func (s *fakeKnowledgeStore) urlStatus(agentID, url string) models.SourceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.urls[srcKey(agentID, url)]
}

func (s *fakeKnowledgeStore) fileStatus(agentID, name string) models.SourceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[srcKey(agentID, name)]
}

// fakeIngestFetcher serves canned page text per URL; URLs with no entry fail.
// When gate is set, fetches block until it closes, letting tests observe
// mid-ingestion state deterministically.
type fakeIngestFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	fetched []string
	gate    chan struct{}
}

func (f *fakeIngestFetcher) FetchURLs(ctx context.Context, urls []string) []models.FetchResult {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.fetched = append(f.fetched, urls...)
	f.mu.Unlock()
	out := make([]models.FetchResult, len(urls))
	for i, u := range urls {
		if text, ok := f.pages[u]; ok {
			out[i] = models.FetchResult{
				Success: true, URL: u, NormalizedURL: u, FinalURL: u,
				TextContent: text, TextLength: len(text), StatusCode: 200,
			}
		} else {
			out[i] = models.FetchResult{Success: false, URL: u, NormalizedURL: u, Error: "navigation failed"}
		}
	}
	return out
}

func (f *fakeIngestFetcher) ExtractLinks(ctx context.Context, url string) (models.FetchResult, error) {
	return models.FetchResult{Success: true, URL: url, NormalizedURL: url}, nil
}

func (f *fakeIngestFetcher) PingURL(ctx context.Context, url string) models.PingURLResponse {
	return models.PingURLResponse{Success: true, URL: url, StatusCode: 200}
}

func (f *fakeIngestFetcher) Close() error { return nil }

type fakeMetadata struct{}

func (f *fakeMetadata) ExtractCatalogEntries(ctx context.Context, pages []models.FetchResult) []*models.CatalogEntry {
	out := make([]*models.CatalogEntry, len(pages))
	for i, p := range pages {
		if p.Success {
			out[i] = &models.CatalogEntry{PageType: models.PageTypeContent, Summary: "about " + p.NormalizedURL, URL: p.NormalizedURL}
		}
	}
	return out
}

// fakeIndexerRecorder records indexing calls without touching vectors.
type fakeIndexerRecorder struct {
	mu             sync.Mutex
	urlPages       []models.FetchResult
	catalogEntries []*models.CatalogEntry
	filesIndexed   []string
	customIndexed  []string
	qaIndexed      []string
	removedSources []string
	removedAgents  []string
}

func (f *fakeIndexerRecorder) IndexURLKnowledge(ctx context.Context, agentID string, pages []models.FetchResult) models.IndexReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	var report models.IndexReport
	for _, p := range pages {
		if p.Success {
			f.urlPages = append(f.urlPages, p)
			report.TotalProcessed++
		}
	}
	return report
}

func (f *fakeIndexerRecorder) IndexCatalogEntries(ctx context.Context, agentID string, entries []*models.CatalogEntry) models.IndexReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		if e != nil {
			f.catalogEntries = append(f.catalogEntries, e)
		}
	}
	return models.IndexReport{}
}

func (f *fakeIndexerRecorder) IndexFileKnowledge(ctx context.Context, agentID, fileName, text string) models.IndexReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filesIndexed = append(f.filesIndexed, fileName)
	return models.IndexReport{TotalProcessed: 1}
}

func (f *fakeIndexerRecorder) IndexCustomText(ctx context.Context, agentID, alias, text string) models.IndexReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customIndexed = append(f.customIndexed, alias)
	return models.IndexReport{TotalProcessed: 1}
}

func (f *fakeIndexerRecorder) IndexQAPair(ctx context.Context, agentID string, pair models.QAPairInput) models.IndexReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.qaIndexed = append(f.qaIndexed, pair.QnaAlias)
	return models.IndexReport{TotalProcessed: 1}
}

func (f *fakeIndexerRecorder) RemoveKnowledgeSources(ctx context.Context, agentID string, knowledgeType models.KnowledgeType, sources []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removedSources = append(f.removedSources, sources...)
	return nil
}

func (f *fakeIndexerRecorder) RemoveAgentPoints(ctx context.Context, agentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removedAgents = append(f.removedAgents, agentID)
	return nil
}

type fakeStorage struct{}

func (f *fakeStorage) DownloadToTemp(ctx context.Context, key string) (string, error) {
	return "", models.NewInternalError("not supported in tests", nil)
}

func (f *fakeStorage) PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://upload.example/" + key, nil
}

func (f *fakeStorage) ObjectURL(key string) string { return "https://cdn.example/" + key }

type fakeExtractor struct{ texts map[string]string }

func (f *fakeExtractor) ExtractText(ctx context.Context, file models.FileDescriptor) (string, error) {
	return f.texts[file.FileName], nil
}

type agentFixture struct {
	svc       *agentServiceImpl
	agents    *fakeAgentStore
	knowledge *fakeKnowledgeStore
	chats     *fakeChatStore
	fetcher   *fakeIngestFetcher
	indexer   *fakeIndexerRecorder
	quota     *fakeQuota
	extractor *fakeExtractor
	ingested  chan struct{}
}

func newAgentFixture(t *testing.T, agents ...*models.Agent) *agentFixture {
	t.Helper()
	f := &agentFixture{
		agents:    newFakeAgentStore(agents...),
		knowledge: newFakeKnowledgeStore(),
		chats:     newFakeChatStore(),
		fetcher:   &fakeIngestFetcher{pages: map[string]string{}},
		indexer:   &fakeIndexerRecorder{},
		quota:     &fakeQuota{},
		extractor: &fakeExtractor{texts: map[string]string{}},
		ingested:  make(chan struct{}, 2),
	}
	svc := NewAgentService(
		f.agents, f.knowledge, f.chats, f.fetcher, &fakeMetadata{}, f.indexer,
		NewCacheServiceWithRedis(nil, time.Hour), f.quota, &fakeStorage{}, f.extractor,
		&config.FetcherConfig{Concurrency: 2},
	).(*agentServiceImpl)
	svc.afterIngest = func() { f.ingested <- struct{}{} }
	f.svc = svc
	return f
}

func (f *agentFixture) waitIngest(t *testing.T) {
	t.Helper()
	select {
	case <-f.ingested:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for ingestion")
	}
}

func ownedAgent() *models.Agent {
	agent := models.NewAgent("agent-1", "owner-1")
	agent.AgentStatus = models.AgentStatusInactive
	return agent
}

func TestPreBuildAgentAppliesDefaults(t *testing.T) {
	f := newAgentFixture(t)

	agent, err := f.svc.PreBuildAgent(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.NotEmpty(t, agent.AgentID)
	assert.Equal(t, "owner-1", agent.OwnerUserID)
	assert.Equal(t, "my-agent", agent.AgentName)
	assert.Equal(t, "gpt-4o-mini", agent.LLMModel)
	assert.Equal(t, models.AgentStatusInactive, agent.AgentStatus)

	stored, err := f.agents.GetAgent(context.Background(), agent.AgentID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestPreBuildAgentQuotaDenied(t *testing.T) {
	f := newAgentFixture(t)
	f.quota.denyBuild = true

	_, err := f.svc.PreBuildAgent(context.Background(), "owner-1")
	require.Error(t, err)
	assert.Equal(t, models.ErrQuotaExceeded, models.AsAppError(err).Kind)
}

func TestBuildAgentAuthorization(t *testing.T) {
	f := newAgentFixture(t, ownedAgent())
	req := models.BuildAgentRequest{AgentID: "agent-1", Links: []string{"https://acme.com"}}

	_, err := f.svc.BuildAgent(context.Background(), "intruder", req)
	require.Error(t, err)
	assert.Equal(t, models.ErrAuthorization, models.AsAppError(err).Kind)

	req.AgentID = "ghost"
	_, err = f.svc.BuildAgent(context.Background(), "owner-1", req)
	require.Error(t, err)
	assert.Equal(t, models.ErrNotFound, models.AsAppError(err).Kind)
}

func TestBuildAgentRequiresSources(t *testing.T) {
	f := newAgentFixture(t, ownedAgent())
	_, err := f.svc.BuildAgent(context.Background(), "owner-1", models.BuildAgentRequest{AgentID: "agent-1"})
	require.Error(t, err)
	assert.Equal(t, models.ErrValidation, models.AsAppError(err).Kind)
}

func TestBuildAgentRejectsInvalidBaseURL(t *testing.T) {
	f := newAgentFixture(t, ownedAgent())
	_, err := f.svc.BuildAgent(context.Background(), "owner-1", models.BuildAgentRequest{
		AgentID: "agent-1",
		BaseURL: "ftp://acme.com",
	})
	require.Error(t, err)
	assert.Equal(t, models.ErrValidation, models.AsAppError(err).Kind)
}

func TestBuildAgentIngestsLinks(t *testing.T) {
	f := newAgentFixture(t, ownedAgent())
	f.fetcher.pages["https://acme.com/"] = "Acme makes widgets."
	f.fetcher.pages["https://acme.com/pricing"] = "Plans start at $5."
	f.fetcher.gate = make(chan struct{})

	agentID, err := f.svc.BuildAgent(context.Background(), "owner-1", models.BuildAgentRequest{
		AgentID: "agent-1",
		Links:   []string{"https://acme.com", "https://acme.com/pricing", "https://acme.com/broken"},
	})
	require.NoError(t, err)
	assert.Equal(t, "agent-1", agentID)

	// The response returns before ingestion finishes.
	agent, err := f.agents.GetAgent(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Equal(t, models.AgentStatusIndexing, agent.AgentStatus)

	close(f.fetcher.gate)
	f.waitIngest(t)

	assert.Equal(t, models.SourceStatusIndexed, f.knowledge.urlStatus("agent-1", "https://acme.com/"))
	assert.Equal(t, models.SourceStatusIndexed, f.knowledge.urlStatus("agent-1", "https://acme.com/pricing"))
	assert.Equal(t, models.SourceStatusFailed, f.knowledge.urlStatus("agent-1", "https://acme.com/broken"))

	assert.Len(t, f.indexer.urlPages, 2)
	assert.Len(t, f.indexer.catalogEntries, 2)

	agent, err = f.agents.GetAgent(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Equal(t, models.AgentStatusActive, agent.AgentStatus)
	assert.Empty(t, agent.AgentCurrentTask)
}

func TestUpdateAgentUsesUpdatingStatus(t *testing.T) {
	agent := ownedAgent()
	agent.AgentStatus = models.AgentStatusActive
	f := newAgentFixture(t, agent)
	f.fetcher.pages["https://acme.com/"] = "Acme makes widgets."
	f.fetcher.gate = make(chan struct{})

	_, err := f.svc.UpdateAgent(context.Background(), "owner-1", models.BuildAgentRequest{
		AgentID: "agent-1",
		Links:   []string{"https://acme.com"},
	})
	require.NoError(t, err)

	current, err := f.agents.GetAgent(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Equal(t, models.AgentStatusUpdating, current.AgentStatus)

	close(f.fetcher.gate)
	f.waitIngest(t)
	current, err = f.agents.GetAgent(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Equal(t, models.AgentStatusActive, current.AgentStatus)
}

func TestBuildAgentIngestsFilesTextsAndQA(t *testing.T) {
	f := newAgentFixture(t, ownedAgent())
	f.extractor.texts["guide.pdf"] = "How to assemble a widget."

	_, err := f.svc.BuildAgent(context.Background(), "owner-1", models.BuildAgentRequest{
		AgentID: "agent-1",
		Files: []models.FileDescriptor{
			{FileName: "guide.pdf", FileKey: "atlas_agent_files/agent-1/guide.pdf"},
			{FileName: "empty.xyz", FileKey: "atlas_agent_files/agent-1/empty.xyz"},
		},
		CustomTexts: []models.CustomTextInput{{CustomTextAlias: "returns", CustomText: "Returns accepted within 30 days."}},
		QAPairs:     []models.QAPairInput{{QnaAlias: "shipping", Question: "Do you ship?", Answer: "Yes, worldwide."}},
	})
	require.NoError(t, err)
	f.waitIngest(t)

	assert.Equal(t, []string{"guide.pdf"}, f.indexer.filesIndexed)
	assert.Equal(t, models.SourceStatusIndexed, f.knowledge.fileStatus("agent-1", "guide.pdf"))
	// Extraction produced no text: the row lands failed and nothing is indexed.
	assert.Equal(t, models.SourceStatusFailed, f.knowledge.fileStatus("agent-1", "empty.xyz"))

	assert.Equal(t, []string{"returns"}, f.indexer.customIndexed)
	assert.Equal(t, []string{"shipping"}, f.indexer.qaIndexed)
}

func TestDeleteAgentCascades(t *testing.T) {
	f := newAgentFixture(t, ownedAgent())
	ctx := context.Background()
	require.NoError(t, f.knowledge.UpsertURLRecords(ctx, "agent-1", []string{"https://acme.com/"}, models.SourceStatusIndexed))
	require.NoError(t, f.chats.InsertMessages(ctx, []models.ChatMessage{{AgentID: "agent-1", ChatSessionID: "web-1", Content: "hi"}}))

	require.NoError(t, f.svc.DeleteAgent(ctx, "owner-1", "agent-1"))

	assert.Equal(t, []string{"agent-1"}, f.indexer.removedAgents)
	assert.Empty(t, f.knowledge.urlStatus("agent-1", "https://acme.com/"))
	assert.Empty(t, f.chats.storedMessages())

	agent, err := f.agents.GetAgent(ctx, "agent-1")
	require.NoError(t, err)
	assert.Nil(t, agent)

	// The memoized owner entry is gone too: re-auth resolves to not found.
	err = f.svc.DeleteAgent(ctx, "owner-1", "agent-1")
	require.Error(t, err)
	assert.Equal(t, models.ErrNotFound, models.AsAppError(err).Kind)
}

func TestRemoveSourcesCascadesToVectors(t *testing.T) {
	f := newAgentFixture(t, ownedAgent())
	ctx := context.Background()
	require.NoError(t, f.knowledge.UpsertURLRecords(ctx, "agent-1", []string{"https://acme.com/", "https://acme.com/pricing"}, models.SourceStatusIndexed))

	resp, err := f.svc.RemoveSources(ctx, "owner-1", models.KnowledgeTypeURL, models.RemoveSourcesRequest{
		AgentID: "agent-1",
		Sources: []string{"https://acme.com/pricing"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(1), resp.Removed)
	assert.Equal(t, []string{"https://acme.com/pricing"}, f.indexer.removedSources)
	assert.Equal(t, models.SourceStatusIndexed, f.knowledge.urlStatus("agent-1", "https://acme.com/"))
}

func TestRemoveSourcesUnknownType(t *testing.T) {
	f := newAgentFixture(t, ownedAgent())
	_, err := f.svc.RemoveSources(context.Background(), "owner-1", models.KnowledgeType("bogus"), models.RemoveSourcesRequest{
		AgentID: "agent-1",
		Sources: []string{"x"},
	})
	require.Error(t, err)
	assert.Equal(t, models.ErrValidation, models.AsAppError(err).Kind)
}

func TestGeneratePresignedUploads(t *testing.T) {
	f := newAgentFixture(t, ownedAgent())

	uploads, err := f.svc.GeneratePresignedUploads(context.Background(), "owner-1", models.PresignedURLRequest{
		AgentID:   "agent-1",
		FileNames: []string{"guide.pdf", "faq.docx"},
	})
	require.NoError(t, err)
	require.Len(t, uploads, 2)
	assert.Equal(t, "atlas_agent_files/agent-1/guide.pdf", uploads[0].FileKey)
	assert.Equal(t, "https://upload.example/atlas_agent_files/agent-1/guide.pdf", uploads[0].UploadURL)
	assert.Equal(t, "https://cdn.example/atlas_agent_files/agent-1/faq.docx", uploads[1].CDNURL)

	_, err = f.svc.GeneratePresignedUploads(context.Background(), "owner-1", models.PresignedURLRequest{AgentID: "agent-1"})
	require.Error(t, err)
	assert.Equal(t, models.ErrValidation, models.AsAppError(err).Kind)
}

var _ services.AgentService = (*agentServiceImpl)(nil)
