package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/askbase/knowledge-backend/internal/config"
	pkghttp "github.com/askbase/knowledge-backend/pkg/http"
	"go.uber.org/zap"
)

// Connector verifies access tokens against the external identity service.
type Connector struct {
	config    config.AuthConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(cfg config.AuthConnectorConfig, logger *zap.Logger) *Connector {
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

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	UserID string `json:"user_id"`
	Valid  bool   `json:"valid"`
}

// Verify resolves a bearer token to a user id.
func (c *Connector) Verify(ctx context.Context, token string) (string, error) {
	var resp verifyResponse
	err := c.connector.DoRequest(ctx, http.MethodPost, c.config.VerifyEndpoint, verifyRequest{Token: token}, &resp)
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}

	if !resp.Valid || resp.UserID == "" {
		return "", fmt.Errorf("token rejected by identity service")
	}

	return resp.UserID, nil
}
