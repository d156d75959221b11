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

type chatStoreImpl struct {
	sessions *mongo.Collection
	messages *mongo.Collection
}

func NewChatStore(db *mongo.Database) services.ChatStore {
	return &chatStoreImpl{
		sessions: db.Collection(colSessions),
		messages: db.Collection(colMessages),
	}
}

// GetSession returns nil (no error) when the session does not exist.
func (s *chatStoreImpl) GetSession(ctx context.Context, agentID, chatSessionID string) (*models.ChatSession, error) {
	var session models.ChatSession
	err := s.sessions.FindOne(ctx, bson.M{
		"agent_id":        agentID,
		"chat_session_id": chatSessionID,
	}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError("failed to load chat session", err)
	}
	return &session, nil
}

func (s *chatStoreImpl) CreateSession(ctx context.Context, session *models.ChatSession) error {
	if _, err := s.sessions.InsertOne(ctx, session); err != nil {
		return models.NewInternalError("failed to create chat session", err)
	}
	return nil
}

func (s *chatStoreImpl) SetSessionConversation(ctx context.Context, agentID, chatSessionID, conversationID string) error {
	update := bson.M{"$set": bson.M{
		"conversation_id": conversationID,
		"updated_at":      time.Now().UTC(),
	}}
	filter := bson.M{"agent_id": agentID, "chat_session_id": chatSessionID}
	if _, err := s.sessions.UpdateOne(ctx, filter, update); err != nil {
		return models.NewInternalError("failed to update chat session", err)
	}
	return nil
}

// ConversationHistory fetches the newest `limit` messages, then reverses so
// callers get ascending chronological order.
func (s *chatStoreImpl) ConversationHistory(ctx context.Context, chatSessionID, conversationID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		return nil, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := s.messages.Find(ctx, bson.M{
		"chat_session_id": chatSessionID,
		"conversation_id": conversationID,
	}, opts)
	if err != nil {
		return nil, models.NewInternalError("failed to load conversation history", err)
	}
	var history []models.ChatMessage
	if err := cursor.All(ctx, &history); err != nil {
		return nil, models.NewInternalError("failed to decode conversation history", err)
	}
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return history, nil
}

func (s *chatStoreImpl) InsertMessages(ctx context.Context, messages []models.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	docs := make([]any, len(messages))
	for i := range messages {
		docs[i] = messages[i]
	}
	if _, err := s.messages.InsertMany(ctx, docs); err != nil {
		return models.NewInternalError("failed to insert chat messages", err)
	}
	return nil
}

func (s *chatStoreImpl) DeleteAgentChats(ctx context.Context, agentID string) error {
	if _, err := s.messages.DeleteMany(ctx, bson.M{"agent_id": agentID}); err != nil {
		return models.NewInternalError("failed to delete chat messages", err)
	}
	if _, err := s.sessions.DeleteMany(ctx, bson.M{"agent_id": agentID}); err != nil {
		return models.NewInternalError("failed to delete chat sessions", err)
	}
	return nil
}
