package services

import "context"

// ChatTurn is one message in an LLM conversation.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	TurnRoleSystem    = "system"
	TurnRoleUser      = "user"
	TurnRoleAssistant = "assistant"
)

// LLMRequest is the provider-neutral completion request. Temperature is only
// honored by non-reasoning models.
type LLMRequest struct {
	Model       string
	Messages    []ChatTurn
	Temperature *float64
}

// LLMHandler generates completions for one provider family.
type LLMHandler interface {
	// Complete returns the full reply text.
	Complete(ctx context.Context, req LLMRequest) (string, error)

	// StreamComplete invokes onChunk for every delta in order and returns
	// the accumulated text. A non-nil error from onChunk stops forwarding
	// but the accumulation continues so persistence still sees full text.
	StreamComplete(ctx context.Context, req LLMRequest, onChunk func(chunk string) error) (string, error)
}

// ModelFamily names the provider behind a model.
type ModelFamily string

const (
	FamilyOpenAI    ModelFamily = "openai"
	FamilyGroq      ModelFamily = "groq"
	FamilyAnthropic ModelFamily = "anthropic"
)

// ModelMode distinguishes reasoning models, which ignore temperature.
type ModelMode string

const (
	ModeReasoning    ModelMode = "reasoning"
	ModeNonReasoning ModelMode = "non_reasoning"
)

// ModelSpec is one row of the closed model table.
type ModelSpec struct {
	Name    string
	Family  ModelFamily
	Mode    ModelMode
	Handler LLMHandler
}

// ModelRegistry resolves a model name to its spec, falling back to the
// configured default for unknown names.
type ModelRegistry interface {
	Resolve(modelName string) ModelSpec
}

// EnhancerService rewrites a user message into a self-contained retrieval
// query using the conversation history.
type EnhancerService interface {
	// EnhanceQuery returns the rewritten query, or the raw message when
	// enhancement fails for any reason.
	EnhanceQuery(ctx context.Context, message string, history []ChatTurn) string
}
