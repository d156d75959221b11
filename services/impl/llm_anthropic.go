package impl

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

const anthropicMaxTokens = 4096

type anthropicChatHandler struct {
	client anthropic.Client
}

func newAnthropicChatHandler(client anthropic.Client) services.LLMHandler {
	return &anthropicChatHandler{client: client}
}

// buildParams splits system turns out of the message list; Anthropic takes
// them as a separate top-level field.
func (h *anthropicChatHandler) buildParams(req services.LLMRequest) anthropic.MessageNewParams {
	var systemParts []string
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, turn := range req.Messages {
		switch turn.Role {
		case services.TurnRoleSystem:
			systemParts = append(systemParts, turn.Content)
		case services.TurnRoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: anthropicMaxTokens,
		Messages:  messages,
	}
	if len(systemParts) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(systemParts, "\n\n")}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	return params
}

func (h *anthropicChatHandler) Complete(ctx context.Context, req services.LLMRequest) (string, error) {
	message, err := h.client.Messages.New(ctx, h.buildParams(req))
	if err != nil {
		return "", models.NewUpstreamError("anthropic completion failed", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

func (h *anthropicChatHandler) StreamComplete(ctx context.Context, req services.LLMRequest, onChunk func(string) error) (string, error) {
	stream := h.client.Messages.NewStreaming(ctx, h.buildParams(req))
	defer stream.Close()

	accumulated := anthropic.Message{}
	forwarding := onChunk != nil
	for stream.Next() {
		event := stream.Current()
		if err := accumulated.Accumulate(event); err != nil {
			return "", models.NewUpstreamError("anthropic stream accumulation failed", err)
		}
		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if deltaVariant.Text == "" || !forwarding {
					continue
				}
				if err := onChunk(deltaVariant.Text); err != nil {
					forwarding = false
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", models.NewUpstreamError("anthropic completion stream failed", err)
	}

	var sb strings.Builder
	for _, block := range accumulated.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
