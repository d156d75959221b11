package impl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Shubhojeet-Ghosh/elysium-agents/config"
	"github.com/Shubhojeet-Ghosh/elysium-agents/logging"
	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

const (
	defaultUploadFolder  = "atlas_agent_files"
	ingestBatchSize      = 5
	ingestionTimeout     = 30 * time.Minute
	presignExpiry        = 10 * time.Minute
	maxPresignBatchFiles = 20
)

// agentServiceImpl owns the agent lifecycle. Build and update return as soon
// as validation passes; ingestion runs in a detached goroutine that reports
// progress through agent_current_task and never lets an error escape.
type agentServiceImpl struct {
	agents    services.AgentStore
	knowledge services.KnowledgeStore
	chats     services.ChatStore
	fetcher   services.FetcherService
	metadata  services.MetadataService
	indexer   services.IndexerService
	cache     services.CacheService
	quota     services.QuotaService
	storage   services.ObjectStorage
	extractor services.DocumentExtractor

	blockedDomains []string
	batchSize      int

	// afterIngest fires when a background ingestion run finishes; tests wait
	// on it.
	afterIngest func()
}

func NewAgentService(
	agents services.AgentStore,
	knowledge services.KnowledgeStore,
	chats services.ChatStore,
	fetcher services.FetcherService,
	metadata services.MetadataService,
	indexer services.IndexerService,
	cache services.CacheService,
	quota services.QuotaService,
	storage services.ObjectStorage,
	extractor services.DocumentExtractor,
	cfg *config.FetcherConfig,
) services.AgentService {
	svc := &agentServiceImpl{
		agents:    agents,
		knowledge: knowledge,
		chats:     chats,
		fetcher:   fetcher,
		metadata:  metadata,
		indexer:   indexer,
		cache:     cache,
		quota:     quota,
		storage:   storage,
		extractor: extractor,
		batchSize: ingestBatchSize,
	}
	if cfg != nil {
		svc.blockedDomains = cfg.BlockedDomains
		if cfg.Concurrency > 0 {
			svc.batchSize = cfg.Concurrency
		}
	}
	return svc
}

// authorizeOwner resolves the agent's owner (memoized in the cache) and
// checks it against the caller.
func (s *agentServiceImpl) authorizeOwner(ctx context.Context, ownerUserID, agentID string) error {
	if ownerUserID == "" {
		return models.NewAuthorizationError("missing user identity")
	}
	if agentID == "" {
		return models.NewValidationError("agent_id is required")
	}
	owner, err := s.cache.GetAgentOwner(ctx, agentID, func(ctx context.Context) (string, error) {
		agent, err := s.agents.GetAgent(ctx, agentID)
		if err != nil {
			return "", err
		}
		if agent == nil {
			return "", nil
		}
		return agent.OwnerUserID, nil
	})
	if err != nil {
		return err
	}
	if owner == "" {
		return models.NewNotFoundError("agent %s not found", agentID)
	}
	if owner != ownerUserID {
		return models.NewAuthorizationError("user does not own agent %s", agentID)
	}
	return nil
}

func (s *agentServiceImpl) PreBuildAgent(ctx context.Context, ownerUserID string) (*models.Agent, error) {
	if ownerUserID == "" {
		return nil, models.NewAuthorizationError("missing user identity")
	}
	if err := s.quota.CanBuildAgent(ctx, ownerUserID); err != nil {
		return nil, err
	}
	agent := models.NewAgent(uuid.NewString(), ownerUserID)
	if err := s.agents.CreateAgent(ctx, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

func (s *agentServiceImpl) BuildAgent(ctx context.Context, ownerUserID string, req models.BuildAgentRequest) (string, error) {
	return s.scheduleIngestion(ctx, ownerUserID, req, models.AgentStatusIndexing)
}

func (s *agentServiceImpl) UpdateAgent(ctx context.Context, ownerUserID string, req models.BuildAgentRequest) (string, error) {
	return s.scheduleIngestion(ctx, ownerUserID, req, models.AgentStatusUpdating)
}

func (s *agentServiceImpl) scheduleIngestion(ctx context.Context, ownerUserID string, req models.BuildAgentRequest, status models.AgentStatus) (string, error) {
	if err := s.authorizeOwner(ctx, ownerUserID, req.AgentID); err != nil {
		return "", err
	}
	if req.BaseURL == "" && len(req.Links) == 0 && len(req.Files) == 0 &&
		len(req.CustomTexts) == 0 && len(req.QAPairs) == 0 {
		return "", models.NewValidationError("at least one knowledge source is required")
	}

	if req.BaseURL != "" {
		normalized, err := NormalizeURL(req.BaseURL)
		if err != nil {
			return "", models.NewValidationError("invalid base_url: %v", err)
		}
		req.BaseURL = normalized
	}

	if err := s.agents.UpdateAgentStatus(ctx, req.AgentID, status, "Preparing knowledge sources"); err != nil {
		return "", err
	}

	go s.runIngestion(req)
	return req.AgentID, nil
}

// runIngestion is the detached background pipeline. Every source is
// attempted; per-source failures mark their rows failed and the run still
// lands on active.
func (s *agentServiceImpl) runIngestion(req models.BuildAgentRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), ingestionTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			logging.L().Errorw("ingestion panicked", "agent_id", req.AgentID, "panic", r)
		}
		if err := s.agents.UpdateAgentStatus(ctx, req.AgentID, models.AgentStatusActive, ""); err != nil {
			logging.L().Errorw("failed to finalize agent status", "agent_id", req.AgentID, "error", err)
		}
		if s.afterIngest != nil {
			s.afterIngest()
		}
	}()

	if req.BaseURL != "" {
		if err := s.agents.UpdateAgentFields(ctx, req.AgentID, map[string]any{"base_url": req.BaseURL}); err != nil {
			logging.L().Warnw("failed to persist base_url", "agent_id", req.AgentID, "error", err)
		}
	}

	s.ingestLinks(ctx, req.AgentID, req.Links)
	s.ingestFiles(ctx, req.AgentID, req.Files)
	s.ingestCustomTexts(ctx, req.AgentID, req.CustomTexts)
	s.ingestQAPairs(ctx, req.AgentID, req.QAPairs)
}

func (s *agentServiceImpl) setTask(ctx context.Context, agentID, task string) {
	agent, err := s.agents.GetAgent(ctx, agentID)
	if err != nil || agent == nil {
		return
	}
	if err := s.agents.UpdateAgentStatus(ctx, agentID, agent.AgentStatus, task); err != nil {
		logging.L().Warnw("failed to update agent task", "agent_id", agentID, "error", err)
	}
}

func (s *agentServiceImpl) ingestLinks(ctx context.Context, agentID string, links []string) {
	seen := make(map[string]bool, len(links))
	normalized := make([]string, 0, len(links))
	for _, link := range links {
		u, err := NormalizeURL(link)
		if err != nil {
			logging.L().Warnw("skipping invalid link", "agent_id", agentID, "url", link, "error", err)
			continue
		}
		if !seen[u] {
			seen[u] = true
			normalized = append(normalized, u)
		}
	}
	urls := FilterURLs(normalized, s.blockedDomains)
	if len(urls) == 0 {
		return
	}
	if err := s.knowledge.UpsertURLRecords(ctx, agentID, urls, models.SourceStatusIndexing); err != nil {
		logging.L().Errorw("failed to record urls", "agent_id", agentID, "error", err)
	}

	total := (len(urls) + s.batchSize - 1) / s.batchSize
	for i := 0; i < len(urls); i += s.batchSize {
		end := i + s.batchSize
		if end > len(urls) {
			end = len(urls)
		}
		batch := urls[i:end]
		s.setTask(ctx, agentID, fmt.Sprintf("Indexing website content (%d/%d)", i/s.batchSize+1, total))

		pages := s.fetcher.FetchURLs(ctx, batch)
		entries := s.metadata.ExtractCatalogEntries(ctx, pages)

		report := s.indexer.IndexURLKnowledge(ctx, agentID, pages)
		report.Merge(s.indexer.IndexCatalogEntries(ctx, agentID, entries))
		for _, errMsg := range report.Errors {
			logging.L().Warnw("url indexing issue", "agent_id", agentID, "error", errMsg)
		}

		var indexed, failed []string
		for _, page := range pages {
			key := page.NormalizedURL
			if key == "" {
				key = page.URL
			}
			if key == "" {
				continue
			}
			if page.Success {
				indexed = append(indexed, key)
			} else {
				failed = append(failed, key)
			}
		}
		if err := s.knowledge.UpsertURLRecords(ctx, agentID, indexed, models.SourceStatusIndexed); err != nil {
			logging.L().Errorw("failed to mark urls indexed", "agent_id", agentID, "error", err)
		}
		if err := s.knowledge.UpsertURLRecords(ctx, agentID, failed, models.SourceStatusFailed); err != nil {
			logging.L().Errorw("failed to mark urls failed", "agent_id", agentID, "error", err)
		}
	}
}

func (s *agentServiceImpl) ingestFiles(ctx context.Context, agentID string, files []models.FileDescriptor) {
	if len(files) == 0 {
		return
	}
	s.setTask(ctx, agentID, "Processing uploaded documents")
	if err := s.knowledge.UpsertFileRecords(ctx, agentID, files, models.SourceStatusIndexing); err != nil {
		logging.L().Errorw("failed to record files", "agent_id", agentID, "error", err)
	}

	for _, file := range files {
		status := models.SourceStatusIndexed
		text, err := s.extractor.ExtractText(ctx, file)
		if err != nil {
			logging.L().Warnw("document extraction failed", "agent_id", agentID, "file_name", file.FileName, "error", err)
			status = models.SourceStatusFailed
		} else if text == "" {
			status = models.SourceStatusFailed
		} else {
			report := s.indexer.IndexFileKnowledge(ctx, agentID, file.FileName, text)
			if len(report.Errors) > 0 {
				logging.L().Warnw("file indexing issue", "agent_id", agentID, "file_name", file.FileName, "errors", report.Errors)
				status = models.SourceStatusFailed
			}
		}
		if err := s.knowledge.UpsertFileRecords(ctx, agentID, []models.FileDescriptor{file}, status); err != nil {
			logging.L().Errorw("failed to update file record", "agent_id", agentID, "file_name", file.FileName, "error", err)
		}
	}
}

func (s *agentServiceImpl) ingestCustomTexts(ctx context.Context, agentID string, texts []models.CustomTextInput) {
	if len(texts) == 0 {
		return
	}
	s.setTask(ctx, agentID, "Indexing custom texts")
	if err := s.knowledge.UpsertCustomTextRecords(ctx, agentID, texts, models.SourceStatusIndexing); err != nil {
		logging.L().Errorw("failed to record custom texts", "agent_id", agentID, "error", err)
	}
	for _, text := range texts {
		status := models.SourceStatusIndexed
		report := s.indexer.IndexCustomText(ctx, agentID, text.CustomTextAlias, text.CustomText)
		if len(report.Errors) > 0 {
			logging.L().Warnw("custom text indexing issue", "agent_id", agentID, "alias", text.CustomTextAlias, "errors", report.Errors)
			status = models.SourceStatusFailed
		}
		if err := s.knowledge.UpsertCustomTextRecords(ctx, agentID, []models.CustomTextInput{text}, status); err != nil {
			logging.L().Errorw("failed to update custom text record", "agent_id", agentID, "alias", text.CustomTextAlias, "error", err)
		}
	}
}

func (s *agentServiceImpl) ingestQAPairs(ctx context.Context, agentID string, pairs []models.QAPairInput) {
	if len(pairs) == 0 {
		return
	}
	s.setTask(ctx, agentID, "Indexing Q&A pairs")
	if err := s.knowledge.UpsertQAPairRecords(ctx, agentID, pairs, models.SourceStatusIndexing); err != nil {
		logging.L().Errorw("failed to record qa pairs", "agent_id", agentID, "error", err)
	}
	for _, pair := range pairs {
		status := models.SourceStatusIndexed
		report := s.indexer.IndexQAPair(ctx, agentID, pair)
		if len(report.Errors) > 0 {
			logging.L().Warnw("qa pair indexing issue", "agent_id", agentID, "alias", pair.QnaAlias, "errors", report.Errors)
			status = models.SourceStatusFailed
		}
		if err := s.knowledge.UpsertQAPairRecords(ctx, agentID, []models.QAPairInput{pair}, status); err != nil {
			logging.L().Errorw("failed to update qa pair record", "agent_id", agentID, "alias", pair.QnaAlias, "error", err)
		}
	}
}

func (s *agentServiceImpl) GetAgentDetails(ctx context.Context, ownerUserID, agentID string) (*models.Agent, error) {
	if err := s.authorizeOwner(ctx, ownerUserID, agentID); err != nil {
		return nil, err
	}
	agent, err := s.agents.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, models.NewNotFoundError("agent %s not found", agentID)
	}
	return agent, nil
}

func (s *agentServiceImpl) ListAgents(ctx context.Context, ownerUserID string) ([]models.Agent, error) {
	if ownerUserID == "" {
		return nil, models.NewAuthorizationError("missing user identity")
	}
	return s.agents.ListAgentsByOwner(ctx, ownerUserID)
}

// DeleteAgent cascades: both vector collections, source rows, chat history,
// the agent row, and the memoized owner entry.
func (s *agentServiceImpl) DeleteAgent(ctx context.Context, ownerUserID, agentID string) error {
	if err := s.authorizeOwner(ctx, ownerUserID, agentID); err != nil {
		return err
	}
	if err := s.indexer.RemoveAgentPoints(ctx, agentID); err != nil {
		return err
	}
	if err := s.knowledge.DeleteAllForAgent(ctx, agentID); err != nil {
		return err
	}
	if err := s.chats.DeleteAgentChats(ctx, agentID); err != nil {
		return err
	}
	if err := s.agents.DeleteAgent(ctx, agentID); err != nil {
		return err
	}
	if err := s.cache.InvalidateAgentOwner(ctx, agentID); err != nil {
		logging.L().Warnw("failed to invalidate owner cache", "agent_id", agentID, "error", err)
	}
	return nil
}

func (s *agentServiceImpl) RemoveSources(ctx context.Context, ownerUserID string, knowledgeType models.KnowledgeType, req models.RemoveSourcesRequest) (*models.RemoveSourcesResponse, error) {
	if err := s.authorizeOwner(ctx, ownerUserID, req.AgentID); err != nil {
		return nil, err
	}
	if len(req.Sources) == 0 {
		return nil, models.NewValidationError("sources is required")
	}

	var removed int64
	var err error
	switch knowledgeType {
	case models.KnowledgeTypeURL:
		removed, err = s.knowledge.DeleteURLs(ctx, req.AgentID, req.Sources)
	case models.KnowledgeTypeFile:
		removed, err = s.knowledge.DeleteFiles(ctx, req.AgentID, req.Sources)
	case models.KnowledgeTypeCustomText:
		removed, err = s.knowledge.DeleteCustomTexts(ctx, req.AgentID, req.Sources)
	case models.KnowledgeTypeCustomQA:
		removed, err = s.knowledge.DeleteQAPairs(ctx, req.AgentID, req.Sources)
	default:
		return nil, models.NewValidationError("unknown knowledge type %q", knowledgeType)
	}
	if err != nil {
		return nil, err
	}

	resp := &models.RemoveSourcesResponse{Success: true, Removed: removed}
	if err := s.indexer.RemoveKnowledgeSources(ctx, req.AgentID, knowledgeType, req.Sources); err != nil {
		logging.L().Errorw("failed to remove vector points", "agent_id", req.AgentID, "type", knowledgeType, "error", err)
		resp.Errors = append(resp.Errors, "some indexed content could not be removed")
	}
	return resp, nil
}

func (s *agentServiceImpl) GeneratePresignedUploads(ctx context.Context, ownerUserID string, req models.PresignedURLRequest) ([]models.PresignedUpload, error) {
	if err := s.authorizeOwner(ctx, ownerUserID, req.AgentID); err != nil {
		return nil, err
	}
	if len(req.FileNames) == 0 {
		return nil, models.NewValidationError("file_names is required")
	}
	if len(req.FileNames) > maxPresignBatchFiles {
		return nil, models.NewValidationError("at most %d files per request", maxPresignBatchFiles)
	}

	folder := req.Folder
	if folder == "" {
		folder = defaultUploadFolder + "/" + req.AgentID
	}

	uploads := make([]models.PresignedUpload, 0, len(req.FileNames))
	for _, name := range req.FileNames {
		if name == "" {
			return nil, models.NewValidationError("file name cannot be empty")
		}
		key := BuildObjectKey(folder, name)
		uploadURL, err := s.storage.PresignPut(ctx, key, presignExpiry)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, models.PresignedUpload{
			FileName:  name,
			FileKey:   key,
			UploadURL: uploadURL,
			CDNURL:    s.storage.ObjectURL(key),
		})
	}
	return uploads, nil
}
