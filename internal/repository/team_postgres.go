package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TeamRepository resolves team-shared provider keys.
type TeamRepository interface {
	GetTeamKey(ctx context.Context, userID string) (*entity.TeamKey, error)
}

var _ TeamRepository = (*TeamPostgres)(nil)

type TeamPostgres struct {
	db *pgxpool.Pool
}

func NewTeamPostgres(db *pgxpool.Pool) *TeamPostgres {
	return &TeamPostgres{db: db}
}

// GetTeamKey returns the shared key of the user's team, if the user belongs
// to a team that has one configured. Absence is not an error.
func (r *TeamPostgres) GetTeamKey(ctx context.Context, userID string) (*entity.TeamKey, error) {
	var key, teamName string
	err := r.db.QueryRow(ctx,
		`SELECT t.provider_key, t.name
		 FROM teams t
		 JOIN team_members m ON m.team_id = t.id
		 WHERE m.user_id = $1 AND t.provider_key IS NOT NULL AND t.provider_key <> ''
		 LIMIT 1`,
		userID,
	).Scan(&key, &teamName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.TeamKey{HasKey: false}, nil
		}
		return nil, fmt.Errorf("get team key: %w", err)
	}

	return &entity.TeamKey{HasKey: true, Key: key, TeamName: teamName}, nil
}
