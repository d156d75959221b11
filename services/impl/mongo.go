package impl

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Shubhojeet-Ghosh/elysium-agents/config"
)

// Collection names. The atlas_ prefix scopes this service inside the shared
// database.
const (
	colAgents      = "atlas_agents"
	colAgentURLs   = "atlas_agent_urls"
	colAgentFiles  = "atlas_agent_files"
	colCustomTexts = "atlas_custom_texts"
	colQAPairs     = "atlas_qa_pairs"
	colSessions    = "atlas_chat_sessions"
	colMessages    = "atlas_chat_messages"
	colUserPlans   = "atlas_user_plans"
	colPlanLimits  = "atlas_user_available_plan_limits"
)

// NewMongoDatabase connects and pings. The caller disconnects the returned
// client on shutdown.
func NewMongoDatabase(ctx context.Context, cfg *config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, client.Database(cfg.DBName), nil
}

// EnsureIndexes creates every index the stores rely on. Guarded by the
// CREATE_INDEXES flag so production startups stay fast.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	sourceKeyFields := map[string]string{
		colAgentURLs:   "url",
		colAgentFiles:  "file_name",
		colCustomTexts: "custom_text_alias",
		colQAPairs:     "qna_alias",
	}

	for col, keyField := range sourceKeyFields {
		indexes := []mongo.IndexModel{
			{Keys: bson.D{{Key: "agent_id", Value: 1}}},
			// Keyset pagination order.
			{Keys: bson.D{{Key: "agent_id", Value: 1}, {Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}}},
			{
				Keys:    bson.D{{Key: "agent_id", Value: 1}, {Key: keyField, Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		}
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", col, err)
		}
	}

	agentIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "agent_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "owner_user_id", Value: 1}}},
	}
	if _, err := db.Collection(colAgents).Indexes().CreateMany(ctx, agentIndexes); err != nil {
		return fmt.Errorf("failed to create indexes on %s: %w", colAgents, err)
	}

	sessionIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "chat_session_id", Value: 1}, {Key: "agent_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "agent_id", Value: 1}}},
	}
	if _, err := db.Collection(colSessions).Indexes().CreateMany(ctx, sessionIndexes); err != nil {
		return fmt.Errorf("failed to create indexes on %s: %w", colSessions, err)
	}

	messageIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "chat_session_id", Value: 1}, {Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "agent_id", Value: 1}}},
	}
	if _, err := db.Collection(colMessages).Indexes().CreateMany(ctx, messageIndexes); err != nil {
		return fmt.Errorf("failed to create indexes on %s: %w", colMessages, err)
	}

	planIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	for _, col := range []string{colUserPlans, colPlanLimits} {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, planIndexes); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", col, err)
		}
	}
	return nil
}
