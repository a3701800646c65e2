package ask

import (
	"context"

	"github.com/askbase/knowledge-backend/internal/entity"
)

type AskUsecase interface {
	Ask(ctx context.Context, caller entity.Caller, req *entity.AskRequest) (*entity.AskResponse, error)
}
