package credits

import (
	"context"
	"fmt"
	"time"

	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	costCacheTTL = 5 * time.Minute
	teamCacheTTL = 1 * time.Minute
	cachePurge   = 10 * time.Minute
)

// TeamKeys resolves team-shared provider keys.
type TeamKeys interface {
	GetTeamKey(ctx context.Context, userID string) (*entity.TeamKey, error)
}

// Ledger is the credit balance store. Deduct must be atomic server-side.
type Ledger interface {
	GetBalance(ctx context.Context, userID string) (int64, error)
	GetCost(ctx context.Context, action entity.CreditAction) (int64, error)
	Deduct(ctx context.Context, userID string, action entity.CreditAction, amount int64, meta map[string]any) (*entity.DeductionResult, error)
}

// Request describes what needs funding.
type Request struct {
	UserID   *string // nil when the caller is not signed in
	BYOKKey  string  // caller-supplied provider key, if any
	Action   entity.CreditAction
	Quantity int64 // measured units for per-unit actions; treated as 1 when below 1
}

// Resolver walks the credential waterfall: BYOK, then team-shared key, then
// metered credits. Terminal on first success; the credits path prechecks the
// balance so no paid call ever runs for a request that cannot be settled.
type Resolver struct {
	teams     TeamKeys
	ledger    Ledger
	serverKey string
	costCache *gocache.Cache
	teamCache *gocache.Cache
	logger    *zap.Logger
}

func NewResolver(teams TeamKeys, ledger Ledger, serverKey string, logger *zap.Logger) *Resolver {
	return &Resolver{
		teams:     teams,
		ledger:    ledger,
		serverKey: serverKey,
		costCache: gocache.New(costCacheTTL, cachePurge),
		teamCache: gocache.New(teamCacheTTL, cachePurge),
		logger:    logger,
	}
}

func (r *Resolver) Resolve(ctx context.Context, req Request) (*entity.CredentialContext, error) {
	// 1. BYOK: the caller funds the request with their own key.
	if req.BYOKKey != "" {
		ctxzap.Debug(ctx, "credential resolved", zap.String("key_source", string(entity.KeySourceBYOK)))
		return &entity.CredentialContext{
			KeySource:   entity.KeySourceBYOK,
			ResolvedKey: req.BYOKKey,
		}, nil
	}

	// 2. Team-shared key.
	if req.UserID != nil {
		teamKey, err := r.teamKey(ctx, *req.UserID)
		if err != nil {
			return nil, err
		}
		if teamKey.HasKey {
			ctxzap.Debug(ctx, "credential resolved",
				zap.String("key_source", string(entity.KeySourceTeam)),
				zap.String("team", teamKey.TeamName),
			)
			teamName := teamKey.TeamName
			return &entity.CredentialContext{
				KeySource:   entity.KeySourceTeam,
				ResolvedKey: teamKey.Key,
				TeamName:    &teamName,
			}, nil
		}
	}

	// 3. Metered credits against the server-side key.
	if r.serverKey == "" {
		return nil, entity.ErrNoServerKey
	}
	if req.UserID == nil {
		return nil, entity.ErrAuthRequired
	}

	cost, err := r.cost(ctx, req.Action)
	if err != nil {
		return nil, err
	}
	total := cost * max(req.Quantity, 1)

	balance, err := r.ledger.GetBalance(ctx, *req.UserID)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	if balance < total {
		return nil, &entity.InsufficientCreditsError{Needed: total, Available: balance}
	}

	ctxzap.Debug(ctx, "credential resolved",
		zap.String("key_source", string(entity.KeySourceCredits)),
		zap.Int64("cost", total),
		zap.Int64("balance", balance),
	)

	return &entity.CredentialContext{
		KeySource:     entity.KeySourceCredits,
		ResolvedKey:   r.serverKey,
		CostInCredits: total,
	}, nil
}

// Meter settles a metered request after the paid action succeeded: one
// atomic deduction for the precomputed total. A deduction failure at this
// point is logged for operator reconciliation but never invalidates the
// response already computed.
func (r *Resolver) Meter(
	ctx context.Context,
	cred *entity.CredentialContext,
	userID string,
	action entity.CreditAction,
	meta map[string]any,
) *entity.CreditsInfo {
	if !cred.Metered() {
		return nil
	}

	result, err := r.ledger.Deduct(ctx, userID, action, cred.CostInCredits, meta)
	if err != nil {
		ctxzap.Error(ctx, "credit deduction failed after successful action, needs reconciliation",
			zap.String("user_id", userID),
			zap.String("action", string(action)),
			zap.Int64("amount", cred.CostInCredits),
			zap.Error(err),
		)
		return nil
	}
	if !result.Success {
		ctxzap.Error(ctx, "credit deduction rejected after successful action, needs reconciliation",
			zap.String("user_id", userID),
			zap.String("action", string(action)),
			zap.Int64("amount", cred.CostInCredits),
			zap.Int64("balance", result.Balance),
		)
		return nil
	}

	return &entity.CreditsInfo{
		Used:      cred.CostInCredits,
		Remaining: result.Balance,
	}
}

func (r *Resolver) cost(ctx context.Context, action entity.CreditAction) (int64, error) {
	if cached, ok := r.costCache.Get(string(action)); ok {
		return cached.(int64), nil
	}
	cost, err := r.ledger.GetCost(ctx, action)
	if err != nil {
		return 0, fmt.Errorf("get cost: %w", err)
	}
	r.costCache.SetDefault(string(action), cost)
	return cost, nil
}

func (r *Resolver) teamKey(ctx context.Context, userID string) (*entity.TeamKey, error) {
	if cached, ok := r.teamCache.Get(userID); ok {
		return cached.(*entity.TeamKey), nil
	}
	teamKey, err := r.teams.GetTeamKey(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get team key: %w", err)
	}
	r.teamCache.SetDefault(userID, teamKey)
	return teamKey, nil
}
