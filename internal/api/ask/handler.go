package ask

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/askbase/knowledge-backend/internal/api/middleware"
	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/askbase/knowledge-backend/internal/pkg/logger"
	"github.com/askbase/knowledge-backend/internal/pkg/response"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Handler struct {
	usecase AskUsecase
}

func NewHandler(usecase AskUsecase) *Handler {
	return &Handler{usecase: usecase}
}

// Ask handles POST /ask
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Ask")

	var req entity.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Warn(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	caller := middleware.CallerFromContext(ctx)

	ctxzap.Info(ctx, "answering question",
		zap.Int("question_length", len(req.Question)),
		zap.Int("source_filters", len(req.Sources)),
		zap.Bool("signed_in", caller.UserID != nil),
		zap.Bool("byok", caller.ProviderKey != ""),
	)

	resp, err := h.usecase.Ask(ctx, caller, &req)
	if err != nil {
		handleUsecaseError(ctx, w, err)
		return
	}

	response.JSON(w, http.StatusOK, resp)
}

func handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	var validationErr *entity.ValidationError
	var insufficientErr *entity.InsufficientCreditsError
	var upstreamErr *entity.UpstreamProviderError

	switch {
	case errors.As(err, &validationErr):
		ctxzap.Warn(ctx, "validation failed", zap.Error(err))
		response.Error(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &insufficientErr):
		ctxzap.Info(ctx, "insufficient credits",
			zap.Int64("needed", insufficientErr.Needed),
			zap.Int64("available", insufficientErr.Available),
		)
		response.JSON(w, http.StatusPaymentRequired, map[string]any{
			"error":     "insufficient credits",
			"needed":    insufficientErr.Needed,
			"available": insufficientErr.Available,
		})
	case errors.Is(err, entity.ErrAuthRequired):
		response.Error(w, http.StatusUnauthorized, "sign in or supply a provider key")
	case errors.Is(err, entity.ErrNoServerKey):
		response.Error(w, http.StatusServiceUnavailable, "no provider key available for this request")
	case errors.As(err, &upstreamErr):
		ctxzap.Error(ctx, "upstream provider failed", zap.Error(err))
		response.Error(w, http.StatusBadGateway, "model provider request failed")
	default:
		ctxzap.Error(ctx, "internal error", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
