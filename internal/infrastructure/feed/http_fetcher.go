package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"AptScanner/internal/ports"
)

// HTTPFetcher downloads the listings feed with a fixed User-Agent.
type HTTPFetcher struct {
	client    *http.Client
	url       string
	userAgent string
	logger    *slog.Logger
}

var _ ports.FeedFetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher wires an HTTP client; a nil client gets a 30s timeout.
func NewHTTPFetcher(client *http.Client, url, userAgent string, log *slog.Logger) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPFetcher{client: client, url: url, userAgent: userAgent, logger: log}
}

// Fetch performs a single GET; any failure is returned without retry.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	if f.logger != nil {
		f.logger.Debug("feed fetched", "bytes", len(data))
	}
	return data, nil
}
