package impl

import (
	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Shubhojeet-Ghosh/elysium-agents/config"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

// DefaultModel answers when an agent's configured model is unknown.
const DefaultModel = "gpt-4o-mini"

type modelRegistryImpl struct {
	table        map[string]services.ModelSpec
	defaultModel string
}

// NewModelRegistry builds the closed model table. The registry is a fixed
// enumeration: adding a model means adding a row here.
func NewModelRegistry(openaiCfg *config.OpenAIConfig, anthropicCfg *config.AnthropicConfig, groqCfg *config.GroqConfig, defaultModel string) services.ModelRegistry {
	openaiClient := openai.NewClient(option.WithAPIKey(openaiCfg.APIKey))
	groqClient := openai.NewClient(
		option.WithAPIKey(groqCfg.APIKey),
		option.WithBaseURL(groqCfg.BaseURL),
	)
	anthropicClient := anthropic.NewClient(anthropicoption.WithAPIKey(anthropicCfg.APIKey))

	openaiStandard := newOpenAIChatHandler(openaiClient, false)
	openaiReasoning := newOpenAIChatHandler(openaiClient, true)
	groqReasoning := newOpenAIChatHandler(groqClient, true)
	claude := newAnthropicChatHandler(anthropicClient)

	rows := []services.ModelSpec{
		{Name: "gpt-4o-mini", Family: services.FamilyOpenAI, Mode: services.ModeNonReasoning, Handler: openaiStandard},
		{Name: "gpt-4.1-mini", Family: services.FamilyOpenAI, Mode: services.ModeNonReasoning, Handler: openaiStandard},
		{Name: "gpt-5-nano-2025-08-07", Family: services.FamilyOpenAI, Mode: services.ModeReasoning, Handler: openaiReasoning},
		{Name: "openai/gpt-oss-120b", Family: services.FamilyGroq, Mode: services.ModeReasoning, Handler: groqReasoning},
		{Name: "openai/gpt-oss-20b", Family: services.FamilyGroq, Mode: services.ModeReasoning, Handler: groqReasoning},
		{Name: "claude-3-7-sonnet-latest", Family: services.FamilyAnthropic, Mode: services.ModeNonReasoning, Handler: claude},
		{Name: "claude-sonnet-4-0", Family: services.FamilyAnthropic, Mode: services.ModeNonReasoning, Handler: claude},
		{Name: "claude-sonnet-4-5", Family: services.FamilyAnthropic, Mode: services.ModeNonReasoning, Handler: claude},
		{Name: "claude-haiku-4-5", Family: services.FamilyAnthropic, Mode: services.ModeNonReasoning, Handler: claude},
	}

	table := make(map[string]services.ModelSpec, len(rows))
	for _, row := range rows {
		table[row.Name] = row
	}

	if defaultModel == "" {
		defaultModel = DefaultModel
	}
	if _, ok := table[defaultModel]; !ok {
		defaultModel = DefaultModel
	}

	return &modelRegistryImpl{table: table, defaultModel: defaultModel}
}

func (r *modelRegistryImpl) Resolve(modelName string) services.ModelSpec {
	if spec, ok := r.table[modelName]; ok {
		return spec
	}
	return r.table[r.defaultModel]
}
