package impl

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

type agentStoreImpl struct {
	col *mongo.Collection
}

func NewAgentStore(db *mongo.Database) services.AgentStore {
	return &agentStoreImpl{col: db.Collection(colAgents)}
}

func (s *agentStoreImpl) CreateAgent(ctx context.Context, agent *models.Agent) error {
	if _, err := s.col.InsertOne(ctx, agent); err != nil {
		return models.NewInternalError("failed to create agent", err)
	}
	return nil
}

// GetAgent returns nil (no error) when the agent does not exist.
func (s *agentStoreImpl) GetAgent(ctx context.Context, agentID string) (*models.Agent, error) {
	var agent models.Agent
	err := s.col.FindOne(ctx, bson.M{"agent_id": agentID}).Decode(&agent)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError("failed to load agent", err)
	}
	return &agent, nil
}

func (s *agentStoreImpl) ListAgentsByOwner(ctx context.Context, ownerUserID string) ([]models.Agent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := s.col.Find(ctx, bson.M{"owner_user_id": ownerUserID}, opts)
	if err != nil {
		return nil, models.NewInternalError("failed to list agents", err)
	}
	var agents []models.Agent
	if err := cursor.All(ctx, &agents); err != nil {
		return nil, models.NewInternalError("failed to decode agents", err)
	}
	return agents, nil
}

func (s *agentStoreImpl) UpdateAgentStatus(ctx context.Context, agentID string, status models.AgentStatus, currentTask string) error {
	update := bson.M{"$set": bson.M{
		"agent_status":       status,
		"agent_current_task": currentTask,
		"updated_at":         time.Now().UTC(),
	}}
	if _, err := s.col.UpdateOne(ctx, bson.M{"agent_id": agentID}, update); err != nil {
		return models.NewInternalError("failed to update agent status", err)
	}
	return nil
}

func (s *agentStoreImpl) UpdateAgentFields(ctx context.Context, agentID string, fields map[string]any) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	for key, value := range fields {
		set[key] = value
	}
	if _, err := s.col.UpdateOne(ctx, bson.M{"agent_id": agentID}, bson.M{"$set": set}); err != nil {
		return models.NewInternalError("failed to update agent", err)
	}
	return nil
}

func (s *agentStoreImpl) DeleteAgent(ctx context.Context, agentID string) error {
	if _, err := s.col.DeleteOne(ctx, bson.M{"agent_id": agentID}); err != nil {
		return models.NewInternalError("failed to delete agent", err)
	}
	return nil
}
