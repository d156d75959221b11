package services

import "context"

// QuotaService enforces per-user plan limits. Denials return a
// QuotaExceeded error carrying a sanitized client message.
type QuotaService interface {
	CanBuildAgent(ctx context.Context, userID string) error
	CanSendChat(ctx context.Context, userID string) error

	// AdvanceChatQuota decrements the user's remaining queries after a
	// successful reply. Best effort.
	AdvanceChatQuota(ctx context.Context, userID string) error
}
