package ports

import (
	"context"
	"time"

	"AptScanner/internal/domain"
)

// FeedFetcher retrieves the raw feed document.
type FeedFetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// FeedParser turns raw feed bytes into entries in document order.
type FeedParser interface {
	Parse(data []byte) ([]domain.Entry, error)
}

// SeenStore persists processed post ids for deduplication across runs.
type SeenStore interface {
	SeenIDs(ctx context.Context, now time.Time) (map[string]struct{}, error)
	Put(ctx context.Context, record domain.SeenRecord) error
}

// ExpiringStore is implemented by stores that have to sweep expired records themselves.
type ExpiringStore interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Classifier renders a SEND/SKIP verdict for a single listing. It never fails:
// recoverable errors are folded into the returned result.
type Classifier interface {
	Classify(ctx context.Context, entry domain.Entry) domain.ClassificationResult
}

// GenerateOptions carries sampling settings for a text model call.
type GenerateOptions struct {
	MaxTokens   int32
	Temperature float32
}

// TextModel is an opaque text-in/text-out inference endpoint.
type TextModel interface {
	Complete(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Notifier delivers the run digest to a human.
type Notifier interface {
	Publish(ctx context.Context, subject, message string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
