package transcribe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/askbase/knowledge-backend/internal/config"
	"github.com/askbase/knowledge-backend/internal/entity"
	pkghttp "github.com/askbase/knowledge-backend/pkg/http"
	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Connector calls the external speech-to-text service. Unlike embedding and
// completion calls, transcription uploads may be retried on transient
// failures.
type Connector struct {
	config    config.TranscribeConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(cfg config.TranscribeConnectorConfig, logger *zap.Logger) *Connector {
	connector := pkghttp.NewConnector(
		&pkghttp.ConnectorConfig{BaseURL: cfg.URL, Logger: logger},
		pkghttp.WithRequestTimeout(cfg.RequestTimeout),
		pkghttp.WithRequestLogging(),
		pkghttp.WithAuthToken(cfg.Token),
	)
	return &Connector{
		config:    cfg,
		connector: connector,
		logger:    logger,
	}
}

// Transcribe uploads audio and returns timestamped segments.
func (c *Connector) Transcribe(ctx context.Context, audio []byte, filename string) (*entity.TranscriptionResult, error) {
	if len(audio) == 0 {
		return nil, entity.NewValidationError("audio", "empty audio data")
	}

	hash := sha256.Sum256(audio)
	checksum := hex.EncodeToString(hash[:])

	ctxzap.Info(ctx, "transcribing audio",
		zap.String("filename", filename),
		zap.String("checksum", checksum),
		zap.Int("size", len(audio)),
	)

	prepareBody := func(writer *multipart.Writer) error {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			return fmt.Errorf("create form file: %w", err)
		}
		if _, err := part.Write(audio); err != nil {
			return fmt.Errorf("write file content: %w", err)
		}
		if err := writer.WriteField("checksum", checksum); err != nil {
			return fmt.Errorf("write checksum field: %w", err)
		}
		return nil
	}

	var result entity.TranscriptionResult
	err := retry.Do(
		func() error {
			return c.connector.DoMultipartRequest(ctx, http.MethodPost, c.config.TranscribeEndpoint, prepareBody, &result)
		},
		append(c.config.Retry.ToRetryOptions(), retry.Context(ctx))...,
	)
	if err != nil {
		return nil, fmt.Errorf("transcribe audio: %w", err)
	}

	if len(result.Segments) == 0 {
		return nil, entity.ErrEmptyContent
	}

	ctxzap.Info(ctx, "audio transcribed",
		zap.Int("segments", len(result.Segments)),
		zap.Float64("duration_seconds", result.DurationSeconds),
	)

	return &result, nil
}
