package export

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/askbase/knowledge-backend/internal/pkg/formatter"
	"github.com/askbase/knowledge-backend/internal/pkg/logger"
	"github.com/askbase/knowledge-backend/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Handler struct {
	conversations ConversationReader
	formatters    *formatter.Factory
}

func NewHandler(conversations ConversationReader, formatters *formatter.Factory) *Handler {
	return &Handler{
		conversations: conversations,
		formatters:    formatters,
	}
}

// Export handles GET /conversations/{conversation_id}/export?format=markdown
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "conversation_id")

	ctx = logger.AddFields(ctx,
		zap.String("conversation_id", conversationID),
		zap.String("action", "ExportConversation"),
	)

	format := entity.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = entity.FormatMarkdown
	}

	f, err := h.formatters.Create(format)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "format must be markdown, pdf or docx")
		return
	}

	conv, err := h.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, entity.ErrConversationNotFound) {
			response.Error(w, http.StatusNotFound, "conversation not found")
			return
		}
		ctxzap.Error(ctx, "failed to load conversation", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	data, err := f.Format(conv)
	if err != nil {
		ctxzap.Error(ctx, "failed to format conversation", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "failed to render export")
		return
	}

	ctxzap.Info(ctx, "conversation exported",
		zap.String("format", string(format)),
		zap.Int("bytes", len(data)),
	)

	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="answer-%s%s"`, conversationID, f.FileExtension()))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// RegisterRoutes registers export routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/conversations/{conversation_id}/export", h.Export)
}
