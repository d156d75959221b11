package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Shubhojeet-Ghosh/elysium-agents/auth"
	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

const testUserID = "user-1"

// asUser injects an authenticated user the way the JWT middleware does.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.ContextUserID, userID)
		c.Next()
	}
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type fakeAgentService struct {
	prebuildErr error
	buildErr    error
	deleteErr   error
	removeErr   error
	presignErr  error

	builtReq   models.BuildAgentRequest
	updatedReq models.BuildAgentRequest
	removed    models.RemoveSourcesRequest
	removedKT  models.KnowledgeType
	deletedID  string
}

func (f *fakeAgentService) PreBuildAgent(ctx context.Context, ownerUserID string) (*models.Agent, error) {
	if f.prebuildErr != nil {
		return nil, f.prebuildErr
	}
	return models.NewAgent("agent-new", ownerUserID), nil
}

func (f *fakeAgentService) BuildAgent(ctx context.Context, ownerUserID string, req models.BuildAgentRequest) (string, error) {
	if f.buildErr != nil {
		return "", f.buildErr
	}
	f.builtReq = req
	return req.AgentID, nil
}

func (f *fakeAgentService) UpdateAgent(ctx context.Context, ownerUserID string, req models.BuildAgentRequest) (string, error) {
	if f.buildErr != nil {
		return "", f.buildErr
	}
	f.updatedReq = req
	return req.AgentID, nil
}

func (f *fakeAgentService) GetAgentDetails(ctx context.Context, ownerUserID, agentID string) (*models.Agent, error) {
	agent := models.NewAgent(agentID, ownerUserID)
	agent.AgentName = "Atlas"
	return agent, nil
}

func (f *fakeAgentService) ListAgents(ctx context.Context, ownerUserID string) ([]models.Agent, error) {
	return []models.Agent{*models.NewAgent("agent-1", ownerUserID)}, nil
}

func (f *fakeAgentService) DeleteAgent(ctx context.Context, ownerUserID, agentID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedID = agentID
	return nil
}

func (f *fakeAgentService) RemoveSources(ctx context.Context, ownerUserID string, knowledgeType models.KnowledgeType, req models.RemoveSourcesRequest) (*models.RemoveSourcesResponse, error) {
	if f.removeErr != nil {
		return nil, f.removeErr
	}
	f.removed = req
	f.removedKT = knowledgeType
	return &models.RemoveSourcesResponse{Success: true, Removed: int64(len(req.Sources))}, nil
}

func (f *fakeAgentService) GeneratePresignedUploads(ctx context.Context, ownerUserID string, req models.PresignedURLRequest) ([]models.PresignedUpload, error) {
	if f.presignErr != nil {
		return nil, f.presignErr
	}
	uploads := make([]models.PresignedUpload, 0, len(req.FileNames))
	for _, name := range req.FileNames {
		uploads = append(uploads, models.PresignedUpload{
			FileName:  name,
			FileKey:   "atlas_agent_files/" + req.AgentID + "/" + name,
			UploadURL: "https://upload.example/" + name,
		})
	}
	return uploads, nil
}

type fakeSourceLister struct {
	urlPage *models.SourcePage[models.AgentURLRecord]
	listErr error
	lastReq models.ListSourcesRequest
}

func (f *fakeSourceLister) UpsertURLRecords(ctx context.Context, agentID string, urls []string, status models.SourceStatus) error {
	return nil
}

func (f *fakeSourceLister) UpsertFileRecords(ctx context.Context, agentID string, files []models.FileDescriptor, status models.SourceStatus) error {
	return nil
}

func (f *fakeSourceLister) UpsertCustomTextRecords(ctx context.Context, agentID string, texts []models.CustomTextInput, status models.SourceStatus) error {
	return nil
}

func (f *fakeSourceLister) UpsertQAPairRecords(ctx context.Context, agentID string, pairs []models.QAPairInput, status models.SourceStatus) error {
	return nil
}

func (f *fakeSourceLister) ListURLs(ctx context.Context, req models.ListSourcesRequest) (*models.SourcePage[models.AgentURLRecord], error) {
	f.lastReq = req
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.urlPage != nil {
		return f.urlPage, nil
	}
	return &models.SourcePage[models.AgentURLRecord]{Items: []models.AgentURLRecord{}}, nil
}

func (f *fakeSourceLister) ListFiles(ctx context.Context, req models.ListSourcesRequest) (*models.SourcePage[models.AgentFileRecord], error) {
	f.lastReq = req
	return &models.SourcePage[models.AgentFileRecord]{Items: []models.AgentFileRecord{}}, nil
}

func (f *fakeSourceLister) ListCustomTexts(ctx context.Context, req models.ListSourcesRequest) (*models.SourcePage[models.CustomTextRecord], error) {
	f.lastReq = req
	return &models.SourcePage[models.CustomTextRecord]{Items: []models.CustomTextRecord{}}, nil
}

func (f *fakeSourceLister) ListQAPairs(ctx context.Context, req models.ListSourcesRequest) (*models.SourcePage[models.QAPairRecord], error) {
	f.lastReq = req
	return &models.SourcePage[models.QAPairRecord]{Items: []models.QAPairRecord{}}, nil
}

func (f *fakeSourceLister) DeleteURLs(ctx context.Context, agentID string, urls []string) (int64, error) {
	return 0, nil
}

func (f *fakeSourceLister) DeleteFiles(ctx context.Context, agentID string, fileNames []string) (int64, error) {
	return 0, nil
}

func (f *fakeSourceLister) DeleteCustomTexts(ctx context.Context, agentID string, aliases []string) (int64, error) {
	return 0, nil
}

func (f *fakeSourceLister) DeleteQAPairs(ctx context.Context, agentID string, aliases []string) (int64, error) {
	return 0, nil
}

func (f *fakeSourceLister) DeleteAllForAgent(ctx context.Context, agentID string) error {
	return nil
}

type fakeChatService struct {
	reply     *models.ChatReply
	queryErr  error
	rotateErr error
	chunks    []string
	lastReq   models.QueryAgentRequest
}

func (f *fakeChatService) QueryAgent(ctx context.Context, req models.QueryAgentRequest, transport services.StreamTransport) (*models.ChatReply, error) {
	f.lastReq = req
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if transport != nil {
		for _, chunk := range f.chunks {
			_ = transport.Send(models.StreamFrame{Chunk: chunk})
		}
		_ = transport.Send(models.StreamFrame{
			Done:         true,
			FullResponse: f.reply.Content,
			MessageID:    f.reply.MessageID,
			Role:         string(models.RoleAgent),
		})
	}
	return f.reply, nil
}

func (f *fakeChatService) RotateConversation(ctx context.Context, agentID, chatSessionID string) (string, error) {
	if f.rotateErr != nil {
		return "", f.rotateErr
	}
	return "conv-rotated", nil
}

type fakeVisitors struct {
	visitors map[string]map[string]string
	failWith error
}

func newFakeVisitors() *fakeVisitors {
	return &fakeVisitors{visitors: make(map[string]map[string]string)}
}

func (f *fakeVisitors) AddVisitor(ctx context.Context, agentID, sessionID, alias string) error {
	if f.failWith != nil {
		return f.failWith
	}
	if f.visitors[agentID] == nil {
		f.visitors[agentID] = make(map[string]string)
	}
	f.visitors[agentID][sessionID] = alias
	return nil
}

func (f *fakeVisitors) RemoveVisitor(ctx context.Context, agentID, sessionID string) error {
	if f.failWith != nil {
		return f.failWith
	}
	delete(f.visitors[agentID], sessionID)
	return nil
}

func (f *fakeVisitors) CountVisitors(ctx context.Context, agentID string) (int64, error) {
	return int64(len(f.visitors[agentID])), nil
}

func (f *fakeVisitors) ListVisitors(ctx context.Context, agentID string) (map[string]string, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make(map[string]string, len(f.visitors[agentID]))
	for k, v := range f.visitors[agentID] {
		out[k] = v
	}
	return out, nil
}

type fakeURLFetcher struct {
	pingResp    models.PingURLResponse
	extractResp models.FetchResult
	extractErr  error
}

func (f *fakeURLFetcher) FetchURLs(ctx context.Context, urls []string) []models.FetchResult {
	return nil
}

func (f *fakeURLFetcher) ExtractLinks(ctx context.Context, url string) (models.FetchResult, error) {
	if f.extractErr != nil {
		return models.FetchResult{}, f.extractErr
	}
	return f.extractResp, nil
}

func (f *fakeURLFetcher) PingURL(ctx context.Context, url string) models.PingURLResponse {
	return f.pingResp
}

func (f *fakeURLFetcher) Close() error { return nil }

var (
	_ services.AgentService    = (*fakeAgentService)(nil)
	_ services.KnowledgeStore  = (*fakeSourceLister)(nil)
	_ services.ChatService     = (*fakeChatService)(nil)
	_ services.VisitorRegistry = (*fakeVisitors)(nil)
	_ services.FetcherService  = (*fakeURLFetcher)(nil)
)
