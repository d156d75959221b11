package services

import "context"

// CacheService memoizes agent-owner lookups with a multi-day TTL. Writes to
// an agent invalidate implicitly by TTL expiry.
type CacheService interface {
	// GetAgentOwner returns the cached owner for the agent, calling loader
	// on a miss and caching its result.
	GetAgentOwner(ctx context.Context, agentID string, loader func(ctx context.Context) (string, error)) (string, error)

	// InvalidateAgentOwner drops the cached owner (used on agent delete).
	InvalidateAgentOwner(ctx context.Context, agentID string) error

	Close() error
}

// VisitorRegistry tracks which visitors are currently attached to an agent,
// keyed per agent with O(1) add/remove/count.
type VisitorRegistry interface {
	AddVisitor(ctx context.Context, agentID, sessionID, alias string) error
	RemoveVisitor(ctx context.Context, agentID, sessionID string) error
	CountVisitors(ctx context.Context, agentID string) (int64, error)
	ListVisitors(ctx context.Context, agentID string) (map[string]string, error)
}
