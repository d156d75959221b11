package impl

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/Shubhojeet-Ghosh/elysium-agents/config"
	"github.com/Shubhojeet-Ghosh/elysium-agents/logging"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

const enhancerSystemPrompt = `You rewrite the latest user message into a self-contained search query.
Resolve pronouns, demonstratives and references like "again", "that one" or "it" using the conversation so far.
If the message is already self-contained, return it unchanged. Never answer the question; only rewrite it.`

var enhancerSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"enhanced_message": map[string]any{"type": "string"},
	},
	"required":             []string{"enhanced_message"},
	"additionalProperties": false,
}

type enhancerServiceImpl struct {
	client openai.Client
	model  string
	logger *zap.SugaredLogger
}

func NewEnhancerService(cfg *config.OpenAIConfig) services.EnhancerService {
	return &enhancerServiceImpl{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  cfg.EnhancerModel,
		logger: logging.Named("enhancer"),
	}
}

// EnhanceQuery never fails: any error falls back to the raw message so the
// chat turn proceeds.
func (e *enhancerServiceImpl) EnhanceQuery(ctx context.Context, message string, history []services.ChatTurn) string {
	if len(history) == 0 {
		return message
	}

	var convo strings.Builder
	for _, turn := range history {
		convo.WriteString(turn.Role)
		convo.WriteString(": ")
		convo.WriteString(turn.Content)
		convo.WriteByte('\n')
	}

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(enhancerSystemPrompt),
			openai.UserMessage("Conversation so far:\n" + convo.String() + "\nLatest user message: " + message),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "enhanced_query",
					Strict: openai.Bool(true),
					Schema: enhancerSchema,
				},
			},
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		e.logger.Warnw("query enhancement failed, using raw message", "error", err)
		return message
	}

	var out struct {
		EnhancedMessage string `json:"enhanced_message"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil || strings.TrimSpace(out.EnhancedMessage) == "" {
		return message
	}
	return out.EnhancedMessage
}
