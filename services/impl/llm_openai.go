package impl

import (
	"context"

	"github.com/openai/openai-go"

	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

// openAIChatHandler serves both OpenAI proper and Groq's OpenAI-compatible
// endpoint; the two differ only in the client's base URL. Reasoning models
// ignore temperature.
type openAIChatHandler struct {
	client            openai.Client
	ignoreTemperature bool
}

func newOpenAIChatHandler(client openai.Client, ignoreTemperature bool) services.LLMHandler {
	return &openAIChatHandler{client: client, ignoreTemperature: ignoreTemperature}
}

func (h *openAIChatHandler) buildParams(req services.LLMRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, turn := range req.Messages {
		switch turn.Role {
		case services.TurnRoleSystem:
			messages = append(messages, openai.SystemMessage(turn.Content))
		case services.TurnRoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}
	if req.Temperature != nil && !h.ignoreTemperature {
		params.Temperature = openai.Float(*req.Temperature)
	}
	return params
}

func (h *openAIChatHandler) Complete(ctx context.Context, req services.LLMRequest) (string, error) {
	resp, err := h.client.Chat.Completions.New(ctx, h.buildParams(req))
	if err != nil {
		return "", models.NewUpstreamError("chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", models.NewUpstreamError("chat completion returned no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

func (h *openAIChatHandler) StreamComplete(ctx context.Context, req services.LLMRequest, onChunk func(string) error) (string, error) {
	stream := h.client.Chat.Completions.NewStreaming(ctx, h.buildParams(req))
	defer stream.Close()

	acc := openai.ChatCompletionAccumulator{}
	forwarding := onChunk != nil
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" || !forwarding {
			continue
		}
		if err := onChunk(delta); err != nil {
			// Transport dropped; keep accumulating so the turn still
			// persists with full text.
			forwarding = false
		}
	}
	if err := stream.Err(); err != nil {
		return "", models.NewUpstreamError("chat completion stream failed", err)
	}
	if len(acc.Choices) == 0 {
		return "", models.NewUpstreamError("chat completion stream returned no choices", nil)
	}
	return acc.Choices[0].Message.Content, nil
}
