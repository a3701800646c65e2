package transcribe

import (
	"context"

	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector returns canned segments so audio ingestion can be exercised
// without a speech-to-text backend.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) Transcribe(ctx context.Context, audio []byte, filename string) (*entity.TranscriptionResult, error) {
	if len(audio) == 0 {
		return nil, entity.NewValidationError("audio", "empty audio data")
	}

	ctxzap.Info(ctx, "[MOCK] transcribing audio",
		zap.String("filename", filename),
		zap.Int("size", len(audio)),
	)

	segments := []entity.TranscriptSegment{
		{Text: "Welcome to the quarterly planning meeting.", Start: 0, Duration: 4.2},
		{Text: "First on the agenda is the budget review for the next quarter.", Start: 4.2, Duration: 5.8},
		{Text: "We expect infrastructure costs to grow by roughly ten percent.", Start: 10.0, Duration: 5.5},
		{Text: "The hiring plan adds two engineers to the platform team.", Start: 15.5, Duration: 5.0},
		{Text: "Questions can be sent to the planning channel after the call.", Start: 20.5, Duration: 4.5},
	}

	result := &entity.TranscriptionResult{
		Segments:        segments,
		DurationSeconds: 25.0,
	}

	ctxzap.Info(ctx, "[MOCK] audio transcribed", zap.Int("segments", len(result.Segments)))
	return result, nil
}
