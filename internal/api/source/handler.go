package source

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/askbase/knowledge-backend/internal/api/middleware"
	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/askbase/knowledge-backend/internal/pkg/logger"
	"github.com/askbase/knowledge-backend/internal/pkg/response"
	"github.com/askbase/knowledge-backend/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Handler struct {
	usecase   IngestUsecase
	fetcher   PageFetcher
	validator *validator.Validator
}

func NewHandler(usecase IngestUsecase, fetcher PageFetcher, validator *validator.Validator) *Handler {
	return &Handler{
		usecase:   usecase,
		fetcher:   fetcher,
		validator: validator,
	}
}

// UploadFile handles POST /sources
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "UploadFile")

	if err := r.ParseMultipartForm(h.validator.MaxUploadSize()); err != nil {
		ctxzap.Warn(ctx, "failed to parse multipart form", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid form data or size too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if err := h.validator.ValidateUpload(header); err != nil {
		handleUsecaseError(ctx, w, err)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		ctxzap.Error(ctx, "failed to read uploaded file", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	ctxzap.Info(ctx, "ingesting file",
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size),
	)

	resp, err := h.usecase.IngestFile(ctx, middleware.CallerFromContext(ctx), header.Filename, content)
	if err != nil {
		handleUsecaseError(ctx, w, err)
		return
	}

	response.JSON(w, http.StatusCreated, resp)
}

type ingestWebRequest struct {
	SourceName string `json:"source_name"`
	URL        string `json:"url"`
}

// IngestWeb handles POST /sources/web
func (h *Handler) IngestWeb(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "IngestWeb")

	var req ingestWebRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		response.Error(w, http.StatusBadRequest, "url must be absolute http(s)")
		return
	}

	if req.SourceName == "" {
		req.SourceName = parsed.Host + parsed.Path
	}

	page, err := h.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		ctxzap.Warn(ctx, "page fetch failed", zap.String("url", req.URL), zap.Error(err))
		response.Error(w, http.StatusBadGateway, "could not fetch the page")
		return
	}

	resp, err := h.usecase.IngestWeb(ctx, middleware.CallerFromContext(ctx), req.SourceName, req.URL, page)
	if err != nil {
		handleUsecaseError(ctx, w, err)
		return
	}

	response.JSON(w, http.StatusCreated, resp)
}

// UploadAudio handles POST /sources/audio
func (h *Handler) UploadAudio(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "UploadAudio")

	if err := r.ParseMultipartForm(h.validator.MaxUploadSize()); err != nil {
		ctxzap.Warn(ctx, "failed to parse multipart form", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid form data or size too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if err := h.validator.ValidateAudioUpload(header); err != nil {
		handleUsecaseError(ctx, w, err)
		return
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		ctxzap.Error(ctx, "failed to read uploaded audio", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	sourceType := entity.SourceTypeAudio
	if st := r.FormValue("source_type"); st != "" {
		sourceType = entity.SourceType(st)
		if !sourceType.IsTranscript() {
			response.Error(w, http.StatusBadRequest, "source_type must be audio or video")
			return
		}
	}

	ctxzap.Info(ctx, "ingesting audio",
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size),
		zap.String("source_type", string(sourceType)),
	)

	resp, err := h.usecase.IngestAudio(ctx, middleware.CallerFromContext(ctx), &entity.IngestAudioRequest{
		SourceName: validator.SanitizeFilename(header.Filename),
		SourceType: sourceType,
		Audio:      audio,
	})
	if err != nil {
		handleUsecaseError(ctx, w, err)
		return
	}

	response.JSON(w, http.StatusCreated, resp)
}

type ingestImageRequest struct {
	SourceName    string `json:"source_name"`
	Description   string `json:"description"`
	ExtractedText bool   `json:"extracted_text"`
}

// IngestImage handles POST /sources/image
func (h *Handler) IngestImage(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "IngestImage")

	var req ingestImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.SourceName == "" {
		response.Error(w, http.StatusBadRequest, "source_name is required")
		return
	}

	resp, err := h.usecase.IngestImage(ctx, middleware.CallerFromContext(ctx), req.SourceName, req.Description, req.ExtractedText)
	if err != nil {
		handleUsecaseError(ctx, w, err)
		return
	}

	response.JSON(w, http.StatusCreated, resp)
}

// DeleteSource handles DELETE /sources/{source}
func (h *Handler) DeleteSource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sourceName := chi.URLParam(r, "source")

	ctx = logger.AddFields(ctx,
		zap.String("source", sourceName),
		zap.String("action", "DeleteSource"),
	)

	if decoded, err := url.PathUnescape(sourceName); err == nil {
		sourceName = decoded
	}

	deleted, err := h.usecase.DeleteSource(ctx, sourceName)
	if err != nil {
		handleUsecaseError(ctx, w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"status":         "deleted",
		"source":         sourceName,
		"chunks_deleted": deleted,
	})
}

func handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	var validationErr *entity.ValidationError
	var insufficientErr *entity.InsufficientCreditsError
	var upstreamErr *entity.UpstreamProviderError

	switch {
	case errors.As(err, &validationErr):
		ctxzap.Warn(ctx, "validation failed", zap.Error(err))
		response.Error(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, entity.ErrEmptyContent):
		response.Error(w, http.StatusBadRequest, "source produced no usable content")
	case errors.Is(err, entity.ErrSourceNotFound):
		response.Error(w, http.StatusNotFound, "source not found")
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
