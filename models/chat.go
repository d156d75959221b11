package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageRole is who authored a chat message.
type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleAgent MessageRole = "agent"
)

// ChatSession is one visitor session against an agent. ConversationID is
// rotatable: rotating starts a fresh thread without losing the session row.
type ChatSession struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	AgentID        string             `bson:"agent_id" json:"agent_id"`
	ChatSessionID  string             `bson:"chat_session_id" json:"chat_session_id"`
	ConversationID string             `bson:"conversation_id" json:"conversation_id"`
	Channel        string             `bson:"channel" json:"channel"`
	DisplayName    string             `bson:"display_name,omitempty" json:"display_name,omitempty"`
	VisitorOnline  bool               `bson:"visitor_online" json:"visitor_online"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// ChatMessage is one turn inside a conversation.
type ChatMessage struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	AgentID         string             `bson:"agent_id" json:"agent_id"`
	ChatSessionID   string             `bson:"chat_session_id" json:"chat_session_id"`
	ConversationID  string             `bson:"conversation_id" json:"conversation_id"`
	MessageID       string             `bson:"message_id" json:"message_id"`
	Role            MessageRole        `bson:"role" json:"role"`
	Content         string             `bson:"content" json:"content"`
	EnhancedMessage string             `bson:"enhanced_message,omitempty" json:"enhanced_message,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
}

// StreamFrame is the wire format of one streamed chunk. Intermediate frames
// carry only Chunk and Done=false; the terminal frame carries the rest.
type StreamFrame struct {
	Chunk        string `json:"chunk"`
	Done         bool   `json:"done"`
	FullResponse string `json:"full_response,omitempty"`
	MessageID    string `json:"message_id,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	Role         string `json:"role,omitempty"`
}

// ChatReply is the non-streaming reply shape.
type ChatReply struct {
	MessageID      string `json:"message_id"`
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id"`
	CreatedAt      string `json:"created_at"`
}

// ChannelFromSessionID derives the channel tag from the session id prefix
// (text before the first dash). Sessions with no dash land in "un".
func ChannelFromSessionID(chatSessionID string) string {
	if idx := strings.Index(chatSessionID, "-"); idx > 0 {
		return chatSessionID[:idx]
	}
	return "un"
}
