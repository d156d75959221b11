package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AgentStatus is the lifecycle state of an agent.
type AgentStatus string

const (
	AgentStatusActive   AgentStatus = "active"
	AgentStatusIndexing AgentStatus = "indexing"
	AgentStatusUpdating AgentStatus = "updating"
	AgentStatusInactive AgentStatus = "inactive"
)

// Agent is the persisted agent document.
type Agent struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	AgentID          string             `bson:"agent_id" json:"agent_id"`
	OwnerUserID      string             `bson:"owner_user_id" json:"owner_user_id"`
	AgentName        string             `bson:"agent_name" json:"agent_name"`
	AgentAliases     []string           `bson:"agent_aliases" json:"agent_aliases"`
	AgentIcon        string             `bson:"agent_icon,omitempty" json:"agent_icon,omitempty"`
	BaseURL          string             `bson:"base_url,omitempty" json:"base_url,omitempty"`
	OrganizationName string             `bson:"organization_name,omitempty" json:"organization_name,omitempty"`
	LLMModel         string             `bson:"llm_model" json:"llm_model"`
	Temperature      *float64           `bson:"temperature,omitempty" json:"temperature,omitempty"`
	SystemPrompt     string             `bson:"system_prompt,omitempty" json:"system_prompt,omitempty"`
	AgentPersonality string             `bson:"agent_personality,omitempty" json:"agent_personality,omitempty"`
	WelcomeMessage   string             `bson:"welcome_message" json:"welcome_message"`
	PlaceholderText  string             `bson:"placeholder_text,omitempty" json:"placeholder_text,omitempty"`
	PrimaryColor     string             `bson:"primary_color,omitempty" json:"primary_color,omitempty"`
	SecondaryColor   string             `bson:"secondary_color,omitempty" json:"secondary_color,omitempty"`
	TextColor        string             `bson:"text_color,omitempty" json:"text_color,omitempty"`
	QuickPrompts     []string           `bson:"quick_prompts,omitempty" json:"quick_prompts,omitempty"`
	Footer           string             `bson:"footer,omitempty" json:"footer,omitempty"`
	AgentStatus      AgentStatus        `bson:"agent_status" json:"agent_status"`
	AgentCurrentTask string             `bson:"agent_current_task,omitempty" json:"agent_current_task,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

// NewAgent returns a fresh agent document with the init-config defaults
// applied, owned by the given user.
func NewAgent(agentID, ownerUserID string) *Agent {
	now := time.Now().UTC()
	return &Agent{
		AgentID:         agentID,
		OwnerUserID:     ownerUserID,
		AgentName:       "my-agent",
		AgentAliases:    []string{},
		LLMModel:        "gpt-4o-mini",
		WelcomeMessage:  "Hello, I am your AI assistant. How can I help you today?",
		PlaceholderText: "Enter your message here...",
		PrimaryColor:    "#000000",
		SecondaryColor:  "#ffffff",
		TextColor:       "#000000",
		QuickPrompts:    []string{},
		AgentStatus:     AgentStatusInactive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
