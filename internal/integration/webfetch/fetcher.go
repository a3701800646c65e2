package webfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	pkgRetry "github.com/askbase/knowledge-backend/internal/pkg/retry"
	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// maxPageBytes caps a fetched page. Pages above the cap are truncated, not
// rejected, since the useful text almost always sits at the front.
const maxPageBytes = 2 << 20

// Fetcher downloads web pages for ingestion. It returns raw HTML bytes, so
// it cannot reuse the JSON connector and carries its own client.
type Fetcher struct {
	client *http.Client
	retry  *pkgRetry.RetryConfig
	logger *zap.Logger
}

func NewFetcher(timeout time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		retry:  pkgRetry.DefaultRetryConfig(),
		logger: logger,
	}
}

// Fetch downloads one page. Retries transient failures.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var page []byte

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			req.Header.Set("Accept", "text/html")

			resp, err := f.client.Do(req)
			if err != nil {
				return fmt.Errorf("fetch page: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return retry.Unrecoverable(fmt.Errorf("fetch page: HTTP %d", resp.StatusCode))
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("fetch page: HTTP %d", resp.StatusCode)
			}

			body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
			if err != nil {
				return fmt.Errorf("read page body: %w", err)
			}

			page = body
			return nil
		},
		append(f.retry.ToRetryOptions(), retry.Context(ctx))...,
	)
	if err != nil {
		return nil, err
	}

	ctxzap.Debug(ctx, "page fetched",
		zap.String("url", url),
		zap.Int("bytes", len(page)),
	)

	return page, nil
}
