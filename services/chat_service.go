package services

import (
	"context"

	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
)

// StreamTransport delivers chunk frames to a client. A send error means the
// client is gone; the orchestrator stops forwarding but finishes the turn.
type StreamTransport interface {
	Send(frame models.StreamFrame) error
}

// ChatService is the chat orchestrator: session resolution, query
// enhancement, retrieval, prompt assembly, LLM routing, streaming, and
// message persistence.
type ChatService interface {
	// QueryAgent runs one chat turn. When transport is non-nil the reply is
	// streamed; the returned reply always carries the full text.
	QueryAgent(ctx context.Context, req models.QueryAgentRequest, transport StreamTransport) (*models.ChatReply, error)

	// RotateConversation assigns the session a fresh conversation id.
	RotateConversation(ctx context.Context, agentID, chatSessionID string) (string, error)
}
