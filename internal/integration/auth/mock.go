package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector accepts tokens of the form "user:<id>" so authenticated
// flows can be exercised without an identity service.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) Verify(ctx context.Context, token string) (string, error) {
	userID, ok := strings.CutPrefix(token, "user:")
	if !ok || userID == "" {
		return "", fmt.Errorf("mock verifier expects token of the form user:<id>")
	}

	ctxzap.Debug(ctx, "[MOCK] token verified", zap.String("user_id", userID))
	return userID, nil
}
