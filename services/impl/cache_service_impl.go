package impl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Shubhojeet-Ghosh/elysium-agents/config"
	"github.com/Shubhojeet-Ghosh/elysium-agents/logging"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

const (
	ownerKeyPrefix    = "atlas_agent_owner"
	visitorKeyPattern = "atlas_%s_visitors"

	defaultOwnerCacheTTL = 72 * time.Hour
)

// cacheServiceImpl memoizes agent-owner lookups in Redis, falling back to an
// in-process map when Redis is unreachable. Owner entries expire by TTL;
// deletes invalidate eagerly.
type cacheServiceImpl struct {
	redis    *redis.Client
	useRedis bool
	ttl      time.Duration

	mu       sync.RWMutex
	memCache map[string]ownerEntry
}

type ownerEntry struct {
	owner     string
	expiresAt time.Time
}

// NewCacheService connects to Redis and returns the owner cache. A failed
// ping is not fatal: the service degrades to the in-memory fallback.
func NewCacheService(cfg *config.RedisConfig) services.CacheService {
	svc := &cacheServiceImpl{
		ttl:      defaultOwnerCacheTTL,
		memCache: make(map[string]ownerEntry),
	}
	if cfg != nil && cfg.OwnerCacheTTL > 0 {
		svc.ttl = time.Duration(cfg.OwnerCacheTTL) * time.Second
	}

	if cfg != nil && cfg.Host != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err == nil {
			svc.redis = client
			svc.useRedis = true
		} else {
			logging.L().Warnw("redis unreachable, owner cache falling back to memory", "error", err)
			_ = client.Close()
		}
	}
	return svc
}

// NewCacheServiceWithRedis wraps an existing client (used in tests).
func NewCacheServiceWithRedis(client *redis.Client, ttl time.Duration) services.CacheService {
	if ttl <= 0 {
		ttl = defaultOwnerCacheTTL
	}
	return &cacheServiceImpl{
		redis:    client,
		useRedis: client != nil,
		ttl:      ttl,
		memCache: make(map[string]ownerEntry),
	}
}

func ownerKey(agentID string) string {
	return fmt.Sprintf("%s:%s", ownerKeyPrefix, agentID)
}

func (s *cacheServiceImpl) GetAgentOwner(ctx context.Context, agentID string, loader func(ctx context.Context) (string, error)) (string, error) {
	key := ownerKey(agentID)

	if s.useRedis {
		owner, err := s.redis.Get(ctx, key).Result()
		if err == nil && owner != "" {
			return owner, nil
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			logging.L().Warnw("owner cache read failed", "agent_id", agentID, "error", err)
		}
	} else {
		s.mu.RLock()
		entry, ok := s.memCache[key]
		s.mu.RUnlock()
		if ok && time.Now().Before(entry.expiresAt) {
			return entry.owner, nil
		}
	}

	owner, err := loader(ctx)
	if err != nil {
		return "", err
	}
	if owner == "" {
		return "", nil
	}

	if s.useRedis {
		if err := s.redis.Set(ctx, key, owner, s.ttl).Err(); err != nil {
			logging.L().Warnw("owner cache write failed", "agent_id", agentID, "error", err)
		}
	} else {
		s.mu.Lock()
		s.memCache[key] = ownerEntry{owner: owner, expiresAt: time.Now().Add(s.ttl)}
		s.mu.Unlock()
	}
	return owner, nil
}

func (s *cacheServiceImpl) InvalidateAgentOwner(ctx context.Context, agentID string) error {
	key := ownerKey(agentID)
	if s.useRedis {
		if err := s.redis.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to invalidate owner cache: %w", err)
		}
		return nil
	}
	s.mu.Lock()
	delete(s.memCache, key)
	s.mu.Unlock()
	return nil
}

func (s *cacheServiceImpl) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

// visitorRegistryImpl keeps one Redis hash per agent mapping session id to
// display alias, so presence counts stay O(1).
type visitorRegistryImpl struct {
	redis *redis.Client
}

func NewVisitorRegistry(client *redis.Client) services.VisitorRegistry {
	return &visitorRegistryImpl{redis: client}
}

func visitorKey(agentID string) string {
	return fmt.Sprintf(visitorKeyPattern, agentID)
}

func (r *visitorRegistryImpl) AddVisitor(ctx context.Context, agentID, sessionID, alias string) error {
	if r.redis == nil {
		return nil
	}
	if err := r.redis.HSet(ctx, visitorKey(agentID), sessionID, alias).Err(); err != nil {
		return fmt.Errorf("failed to register visitor: %w", err)
	}
	return nil
}

func (r *visitorRegistryImpl) RemoveVisitor(ctx context.Context, agentID, sessionID string) error {
	if r.redis == nil {
		return nil
	}
	if err := r.redis.HDel(ctx, visitorKey(agentID), sessionID).Err(); err != nil {
		return fmt.Errorf("failed to remove visitor: %w", err)
	}
	return nil
}

func (r *visitorRegistryImpl) CountVisitors(ctx context.Context, agentID string) (int64, error) {
	if r.redis == nil {
		return 0, nil
	}
	count, err := r.redis.HLen(ctx, visitorKey(agentID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count visitors: %w", err)
	}
	return count, nil
}

func (r *visitorRegistryImpl) ListVisitors(ctx context.Context, agentID string) (map[string]string, error) {
	if r.redis == nil {
		return map[string]string{}, nil
	}
	visitors, err := r.redis.HGetAll(ctx, visitorKey(agentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list visitors: %w", err)
	}
	return visitors, nil
}
