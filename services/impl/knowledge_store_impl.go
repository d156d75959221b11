package impl

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type knowledgeStoreImpl struct {
	db *mongo.Database
}

func NewKnowledgeStore(db *mongo.Database) services.KnowledgeStore {
	return &knowledgeStoreImpl{db: db}
}

// bulkUpsert applies the shared upsert shape: $set refreshes status and
// updated_at, $setOnInsert pins the identity and created_at.
func (s *knowledgeStoreImpl) bulkUpsert(ctx context.Context, col string, filters []bson.M, sets []bson.M, inserts []bson.M) error {
	if len(filters) == 0 {
		return nil
	}
	now := time.Now().UTC()
	ops := make([]mongo.WriteModel, len(filters))
	for i := range filters {
		sets[i]["updated_at"] = now
		inserts[i]["created_at"] = now
		ops[i] = mongo.NewUpdateOneModel().
			SetFilter(filters[i]).
			SetUpdate(bson.M{"$set": sets[i], "$setOnInsert": inserts[i]}).
			SetUpsert(true)
	}
	if _, err := s.db.Collection(col).BulkWrite(ctx, ops); err != nil {
		return models.NewInternalError("failed to upsert "+col, err)
	}
	return nil
}

func (s *knowledgeStoreImpl) UpsertURLRecords(ctx context.Context, agentID string, urls []string, status models.SourceStatus) error {
	filters := make([]bson.M, len(urls))
	sets := make([]bson.M, len(urls))
	inserts := make([]bson.M, len(urls))
	for i, url := range urls {
		filters[i] = bson.M{"agent_id": agentID, "url": url}
		sets[i] = bson.M{"status": status}
		inserts[i] = bson.M{"agent_id": agentID, "url": url}
	}
	return s.bulkUpsert(ctx, colAgentURLs, filters, sets, inserts)
}

func (s *knowledgeStoreImpl) UpsertFileRecords(ctx context.Context, agentID string, files []models.FileDescriptor, status models.SourceStatus) error {
	filters := make([]bson.M, len(files))
	sets := make([]bson.M, len(files))
	inserts := make([]bson.M, len(files))
	for i, file := range files {
		filters[i] = bson.M{"agent_id": agentID, "file_name": file.FileName}
		sets[i] = bson.M{
			"status":      status,
			"file_key":    file.FileKey,
			"cdn_url":     file.CDNURL,
			"file_source": file.FileSource,
		}
		inserts[i] = bson.M{"agent_id": agentID, "file_name": file.FileName}
	}
	return s.bulkUpsert(ctx, colAgentFiles, filters, sets, inserts)
}

func (s *knowledgeStoreImpl) UpsertCustomTextRecords(ctx context.Context, agentID string, texts []models.CustomTextInput, status models.SourceStatus) error {
	filters := make([]bson.M, len(texts))
	sets := make([]bson.M, len(texts))
	inserts := make([]bson.M, len(texts))
	for i, text := range texts {
		filters[i] = bson.M{"agent_id": agentID, "custom_text_alias": text.CustomTextAlias}
		sets[i] = bson.M{"status": status, "custom_text": text.CustomText}
		inserts[i] = bson.M{"agent_id": agentID, "custom_text_alias": text.CustomTextAlias}
	}
	return s.bulkUpsert(ctx, colCustomTexts, filters, sets, inserts)
}

func (s *knowledgeStoreImpl) UpsertQAPairRecords(ctx context.Context, agentID string, pairs []models.QAPairInput, status models.SourceStatus) error {
	filters := make([]bson.M, len(pairs))
	sets := make([]bson.M, len(pairs))
	inserts := make([]bson.M, len(pairs))
	for i, pair := range pairs {
		filters[i] = bson.M{"agent_id": agentID, "qna_alias": pair.QnaAlias}
		sets[i] = bson.M{"status": status, "question": pair.Question, "answer": pair.Answer}
		inserts[i] = bson.M{"agent_id": agentID, "qna_alias": pair.QnaAlias}
	}
	return s.bulkUpsert(ctx, colQAPairs, filters, sets, inserts)
}

// pagedRow exposes the cursor key of a record type.
type pagedRow interface {
	ObjectID() primitive.ObjectID
}

// paginate runs keyset pagination over (updated_at desc, _id desc). The
// cursor is the hex _id of the previous page's last row; its updated_at is
// refetched so continuation never assumes unique timestamps.
func paginate[T pagedRow](ctx context.Context, col *mongo.Collection, req models.ListSourcesRequest) (*models.SourcePage[T], error) {
	if req.AgentID == "" {
		return nil, models.NewValidationError("agent_id is required")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	filter := bson.M{"agent_id": req.AgentID}
	if req.Cursor != "" {
		oid, err := primitive.ObjectIDFromHex(req.Cursor)
		if err != nil {
			return nil, models.NewValidationError("invalid cursor")
		}
		var anchor struct {
			UpdatedAt time.Time `bson:"updated_at"`
		}
		err = col.FindOne(ctx, bson.M{"_id": oid}).Decode(&anchor)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewValidationError("stale cursor")
		}
		if err != nil {
			return nil, models.NewInternalError("failed to resolve cursor", err)
		}
		filter = bson.M{
			"agent_id": req.AgentID,
			"$or": []bson.M{
				{"updated_at": bson.M{"$lt": anchor.UpdatedAt}},
				{"updated_at": anchor.UpdatedAt, "_id": bson.M{"$lt": oid}},
			},
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit + 1))
	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, models.NewInternalError("failed to list sources", err)
	}
	var items []T
	if err := cursor.All(ctx, &items); err != nil {
		return nil, models.NewInternalError("failed to decode sources", err)
	}

	page := &models.SourcePage[T]{HasMore: len(items) > limit}
	if page.HasMore {
		items = items[:limit]
	}
	page.Items = items
	if page.HasMore && len(items) > 0 {
		page.NextCursor = items[len(items)-1].ObjectID().Hex()
	}

	if req.IncludeCount {
		count, err := col.CountDocuments(ctx, bson.M{"agent_id": req.AgentID})
		if err != nil {
			return nil, models.NewInternalError("failed to count sources", err)
		}
		page.TotalCount = &count
	}
	return page, nil
}

func (s *knowledgeStoreImpl) ListURLs(ctx context.Context, req models.ListSourcesRequest) (*models.SourcePage[models.AgentURLRecord], error) {
	return paginate[models.AgentURLRecord](ctx, s.db.Collection(colAgentURLs), req)
}

func (s *knowledgeStoreImpl) ListFiles(ctx context.Context, req models.ListSourcesRequest) (*models.SourcePage[models.AgentFileRecord], error) {
	return paginate[models.AgentFileRecord](ctx, s.db.Collection(colAgentFiles), req)
}

func (s *knowledgeStoreImpl) ListCustomTexts(ctx context.Context, req models.ListSourcesRequest) (*models.SourcePage[models.CustomTextRecord], error) {
	return paginate[models.CustomTextRecord](ctx, s.db.Collection(colCustomTexts), req)
}

func (s *knowledgeStoreImpl) ListQAPairs(ctx context.Context, req models.ListSourcesRequest) (*models.SourcePage[models.QAPairRecord], error) {
	return paginate[models.QAPairRecord](ctx, s.db.Collection(colQAPairs), req)
}

func (s *knowledgeStoreImpl) deleteByKey(ctx context.Context, col, keyField, agentID string, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	res, err := s.db.Collection(col).DeleteMany(ctx, bson.M{
		"agent_id": agentID,
		keyField:   bson.M{"$in": keys},
	})
	if err != nil {
		return 0, models.NewInternalError("failed to delete from "+col, err)
	}
	return res.DeletedCount, nil
}

func (s *knowledgeStoreImpl) DeleteURLs(ctx context.Context, agentID string, urls []string) (int64, error) {
	return s.deleteByKey(ctx, colAgentURLs, "url", agentID, urls)
}

func (s *knowledgeStoreImpl) DeleteFiles(ctx context.Context, agentID string, fileNames []string) (int64, error) {
	return s.deleteByKey(ctx, colAgentFiles, "file_name", agentID, fileNames)
}

func (s *knowledgeStoreImpl) DeleteCustomTexts(ctx context.Context, agentID string, aliases []string) (int64, error) {
	return s.deleteByKey(ctx, colCustomTexts, "custom_text_alias", agentID, aliases)
}

func (s *knowledgeStoreImpl) DeleteQAPairs(ctx context.Context, agentID string, aliases []string) (int64, error) {
	return s.deleteByKey(ctx, colQAPairs, "qna_alias", agentID, aliases)
}

func (s *knowledgeStoreImpl) DeleteAllForAgent(ctx context.Context, agentID string) error {
	for _, col := range []string{colAgentURLs, colAgentFiles, colCustomTexts, colQAPairs} {
		if _, err := s.db.Collection(col).DeleteMany(ctx, bson.M{"agent_id": agentID}); err != nil {
			return models.NewInternalError("failed to clear "+col, err)
		}
	}
	return nil
}
