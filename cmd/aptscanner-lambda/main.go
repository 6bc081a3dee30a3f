package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"AptScanner/internal/app"
	"AptScanner/internal/config"
	"AptScanner/internal/logging"
	"AptScanner/internal/usecase"
)

func main() {
	cfg := config.Load("")
	logger := logging.NewWithFormat(os.Stdout, cfg.Logging.Level, "json")

	application, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("cannot start", "error", err)
		os.Exit(1)
	}

	lambda.Start(newHandler(application, logger))
}

type handlerFunc func(ctx context.Context, event json.RawMessage) (string, error)

// newHandler ignores the scheduled event payload. A feed that cannot be
// fetched ends the invocation quietly; the next schedule retries. Parse,
// store and publish failures are returned so the invocation shows as failed.
func newHandler(runner usecase.Runner, logger *slog.Logger) handlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, _ json.RawMessage) (string, error) {
		result, err := runner.Run(ctx, time.Now())
		if err == nil {
			return result.Status, nil
		}

		var fatalErr *usecase.FatalError
		if errors.As(err, &fatalErr) && fatalErr.Stage == usecase.StageFetch {
			logger.Error("critical error fetching feed", "error", err)
			return "", nil
		}
		logger.Error("run failed", "error", err)
		return "", err
	}
}
