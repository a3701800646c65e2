package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CreditsRepository is the credit ledger. Balances move only through the
// atomic Deduct operation; handlers never write them directly.
type CreditsRepository interface {
	GetBalance(ctx context.Context, userID string) (int64, error)
	GetCost(ctx context.Context, action entity.CreditAction) (int64, error)
	Deduct(ctx context.Context, userID string, action entity.CreditAction, amount int64, meta map[string]any) (*entity.DeductionResult, error)
}

var _ CreditsRepository = (*CreditsPostgres)(nil)

type CreditsPostgres struct {
	db *pgxpool.Pool
}

func NewCreditsPostgres(db *pgxpool.Pool) *CreditsPostgres {
	return &CreditsPostgres{db: db}
}

func (r *CreditsPostgres) GetBalance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx,
		`SELECT balance FROM credit_balances WHERE user_id = $1`,
		userID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

func (r *CreditsPostgres) GetCost(ctx context.Context, action entity.CreditAction) (int64, error) {
	var cost int64
	err := r.db.QueryRow(ctx,
		`SELECT cost FROM credit_costs WHERE action = $1`,
		string(action),
	).Scan(&cost)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("no cost configured for action %s", action)
		}
		return 0, fmt.Errorf("get cost: %w", err)
	}
	return cost, nil
}

// Deduct decrements the balance by amount in a single conditional UPDATE,
// so two concurrent deductions can never drive the balance negative. The
// ledger entry is written in the same transaction.
func (r *CreditsPostgres) Deduct(
	ctx context.Context,
	userID string,
	action entity.CreditAction,
	amount int64,
	meta map[string]any,
) (*entity.DeductionResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("deduct amount must be positive, got %d", amount)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin deduct tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var balance int64
	err = tx.QueryRow(ctx,
		`UPDATE credit_balances
		 SET balance = balance - $2, updated_at = now()
		 WHERE user_id = $1 AND balance >= $2
		 RETURNING balance`,
		userID, amount,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Condition failed: report the current balance without
			// deducting.
			current, berr := r.GetBalance(ctx, userID)
			if berr != nil {
				return nil, berr
			}
			return &entity.DeductionResult{Success: false, Balance: current}, nil
		}
		return nil, fmt.Errorf("conditional decrement: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO credit_ledger (id, user_id, delta, reason, meta, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())`,
		uuid.New().String(), userID, -amount, string(action), meta,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit deduct tx: %w", err)
	}

	return &entity.DeductionResult{Success: true, Balance: balance}, nil
}
