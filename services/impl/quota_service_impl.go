package impl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Shubhojeet-Ghosh/elysium-agents/logging"
	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

// Shown to end-user visitors on any chat denial. Plan and billing details
// never leak to the agent's end users.
const clientFacingDenialMessage = "I'm sorry, I'm unable to process your request at this time. Please try again later."

type userPlan struct {
	UserID    string     `bson:"user_id"`
	PlanID    string     `bson:"plan_id"`
	Status    string     `bson:"status"`
	IsActive  bool       `bson:"is_active"`
	ExpiresAt *time.Time `bson:"expires_at"`
}

type planLimits struct {
	UserID    string `bson:"user_id"`
	AIAgents  int    `bson:"ai_agents"`
	AIQueries int    `bson:"ai_queries"`
}

// quotaServiceImpl enforces per-user plan limits off the plan documents.
// Agent builds count live agents against the ai_agents ceiling; chats spend
// the ai_queries balance.
type quotaServiceImpl struct {
	plans  *mongo.Collection
	limits *mongo.Collection
	agents *mongo.Collection
}

func NewQuotaService(db *mongo.Database) services.QuotaService {
	return &quotaServiceImpl{
		plans:  db.Collection(colUserPlans),
		limits: db.Collection(colPlanLimits),
		agents: db.Collection(colAgents),
	}
}

// activePlan loads the user's active plan and lazily marks it expired when
// its expiry has passed.
func (s *quotaServiceImpl) activePlan(ctx context.Context, userID string) (*userPlan, error) {
	var plan userPlan
	err := s.plans.FindOne(ctx, bson.M{"user_id": userID, "is_active": true}).Decode(&plan)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NewQuotaExceededError(
			"no active plan found for user "+userID,
			"No active plan found for this account. Please set up a plan to continue.")
	}
	if err != nil {
		return nil, models.NewInternalError("failed to load user plan", err)
	}

	if plan.ExpiresAt != nil && !time.Now().UTC().Before(plan.ExpiresAt.UTC()) {
		update := bson.M{"$set": bson.M{"status": "expired", "updated_at": time.Now().UTC()}}
		if _, err := s.plans.UpdateOne(ctx, bson.M{"user_id": userID, "is_active": true}, update); err != nil {
			logging.L().Warnw("failed to mark plan expired", "user_id", userID, "error", err)
		}
		return nil, models.NewQuotaExceededError(
			"plan expired for user "+userID,
			"Your plan has expired. Please renew or upgrade your plan to continue.")
	}
	return &plan, nil
}

func (s *quotaServiceImpl) userLimits(ctx context.Context, userID string) (*planLimits, error) {
	var limits planLimits
	err := s.limits.FindOne(ctx, bson.M{"user_id": userID}).Decode(&limits)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NewQuotaExceededError(
			"no plan limits for user "+userID,
			"Plan limits not configured for this account. Please contact support.")
	}
	if err != nil {
		return nil, models.NewInternalError("failed to load plan limits", err)
	}
	return &limits, nil
}

func (s *quotaServiceImpl) CanBuildAgent(ctx context.Context, userID string) error {
	if _, err := s.activePlan(ctx, userID); err != nil {
		return err
	}
	limits, err := s.userLimits(ctx, userID)
	if err != nil {
		return err
	}
	count, err := s.agents.CountDocuments(ctx, bson.M{"owner_user_id": userID})
	if err != nil {
		return models.NewInternalError("failed to count agents", err)
	}
	if count >= int64(limits.AIAgents) {
		return models.NewQuotaExceededError(
			fmt.Sprintf("agent limit reached for user %s (%d/%d)", userID, count, limits.AIAgents),
			fmt.Sprintf("You have reached the maximum number of agents (%d) allowed on your current plan. Please upgrade to create more agents.", limits.AIAgents))
	}
	return nil
}

// CanSendChat checks the balance without spending it. Denials carry the
// visitor-safe client message instead of plan details.
func (s *quotaServiceImpl) CanSendChat(ctx context.Context, userID string) error {
	if _, err := s.activePlan(ctx, userID); err != nil {
		return sanitizeChatDenial(err)
	}
	limits, err := s.userLimits(ctx, userID)
	if err != nil {
		return sanitizeChatDenial(err)
	}
	if limits.AIQueries <= 0 {
		return models.NewQuotaExceededError(
			"no ai query credits remaining for user "+userID,
			clientFacingDenialMessage)
	}
	return nil
}

// AdvanceChatQuota spends one query credit, never going below zero.
func (s *quotaServiceImpl) AdvanceChatQuota(ctx context.Context, userID string) error {
	res, err := s.limits.UpdateOne(ctx,
		bson.M{"user_id": userID, "ai_queries": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"ai_queries": -1}})
	if err != nil {
		return models.NewInternalError("failed to decrement ai queries", err)
	}
	if res.ModifiedCount == 0 {
		logging.L().Warnw("ai queries not decremented", "user_id", userID)
	}
	return nil
}

// sanitizeChatDenial rewrites quota denials to the visitor-safe message
// while keeping the internal message for logs. Internal errors pass through.
func sanitizeChatDenial(err error) error {
	appErr := models.AsAppError(err)
	if appErr.Kind != models.ErrQuotaExceeded {
		return err
	}
	return models.NewQuotaExceededError(appErr.Message, clientFacingDenialMessage)
}
