package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConversationRepository stores question/answer records. Writes are
// best-effort from the caller's point of view: the ask pipeline logs and
// swallows failures here.
type ConversationRepository interface {
	Create(ctx context.Context, conv entity.Conversation) error
	Get(ctx context.Context, id string) (*entity.Conversation, error)
}

var _ ConversationRepository = (*ConversationPostgres)(nil)

type ConversationPostgres struct {
	db *pgxpool.Pool
}

func NewConversationPostgres(db *pgxpool.Pool) *ConversationPostgres {
	return &ConversationPostgres{db: db}
}

func (r *ConversationPostgres) Create(ctx context.Context, conv entity.Conversation) error {
	sources, err := json.Marshal(conv.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO conversations (id, user_id, question, answer, sources, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())`,
		conv.ID, conv.UserID, conv.Question, conv.Answer, sources,
	)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

func (r *ConversationPostgres) Get(ctx context.Context, id string) (*entity.Conversation, error) {
	var conv entity.Conversation
	var sources []byte

	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, question, answer, sources, created_at
		 FROM conversations WHERE id = $1`,
		id,
	).Scan(&conv.ID, &conv.UserID, &conv.Question, &conv.Answer, &sources, &conv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrConversationNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &conv.Sources); err != nil {
			return nil, fmt.Errorf("unmarshal sources: %w", err)
		}
	}
	return &conv, nil
}
