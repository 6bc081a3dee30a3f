package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"

	"AptScanner/internal/classifier"
	"AptScanner/internal/config"
	"AptScanner/internal/domain"
	"AptScanner/internal/infrastructure/console"
	"AptScanner/internal/infrastructure/feed"
	"AptScanner/internal/infrastructure/llm"
	"AptScanner/internal/infrastructure/sns"
	"AptScanner/internal/infrastructure/storage"
	"AptScanner/internal/infrastructure/telegram"
	"AptScanner/internal/logging"
	"AptScanner/internal/ports"
	"AptScanner/internal/usecase"
	"AptScanner/pkg/logger"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	store    ports.SeenStore
	closers  []func() error
}

var _ usecase.Runner = (*Application)(nil)

// New validates cfg and builds every adapter it selects.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.NewWithFormat(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	var awsCfg aws.Config
	if cfg.UsesAWS() {
		var err error
		awsCfg, err = loadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
	}

	store, err := a.buildStore(ctx, awsCfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	cls, err := a.buildClassifier(awsCfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	notifier := a.buildNotifier(awsCfg)

	httpClient := &http.Client{Timeout: cfg.Feed.Timeout}
	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Fetcher:    feed.NewHTTPFetcher(httpClient, cfg.Feed.URL, cfg.Feed.UserAgent, baseLogger.With("component", "feed")),
		Parser:     feed.NewAtomParser(),
		Store:      store,
		Classifier: cls,
		Notifier:   notifier,
		Recording:  domain.RecordingMode(cfg.Pipeline.Recording),
		TTL:        cfg.Store.TTL,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	return a, nil
}

// Run performs one pipeline execution for the trigger time, then drops
// expired rows from stores that do not expire them natively.
func (a *Application) Run(ctx context.Context, now time.Time) (usecase.RunResult, error) {
	result, err := a.pipeline.Run(ctx, now)
	if err != nil {
		return result, err
	}

	if expiring, ok := a.store.(ports.ExpiringStore); ok {
		removed, purgeErr := expiring.PurgeExpired(ctx, now)
		if purgeErr != nil {
			a.logger.Warn("cannot purge expired posts", "error", purgeErr)
		} else if removed > 0 {
			a.logger.Debug("purged expired posts", "count", removed)
		}
	}

	return result, nil
}

// Close releases database handles.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *Application) buildStore(ctx context.Context, awsCfg aws.Config) (ports.SeenStore, error) {
	switch a.cfg.Store.Driver {
	case config.StoreDynamoDB:
		client := newDynamoClient(awsCfg, a.cfg.AWS.Endpoint)
		return storage.NewDynamoStore(client, a.cfg.Store.Table), nil
	case config.StorePostgres, config.StoreSQLite:
		dialect := storage.DialectPostgres
		if a.cfg.Store.Driver == config.StoreSQLite {
			dialect = storage.DialectSQLite
		}
		db, err := storage.OpenSQL(ctx, dialect, a.cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := storage.Migrate(ctx, db, dialect, logger.New(a.logger, "migrations")); err != nil {
			return nil, err
		}
		return storage.NewSQLStore(db, dialect), nil
	case config.StoreMemory:
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}
}

func (a *Application) buildClassifier(awsCfg aws.Config) (ports.Classifier, error) {
	areas := classifier.Areas{
		Allowed:  a.cfg.Classifier.AllowedAreas,
		Excluded: a.cfg.Classifier.ExcludedAreas,
	}
	strategy, err := classifier.DefaultRegistry(areas).Resolve(a.cfg.Classifier.Format)
	if err != nil {
		return nil, err
	}

	var model ports.TextModel
	switch a.cfg.Classifier.Provider {
	case config.ProviderBedrock:
		model = llm.NewBedrockClient(newBedrockClient(awsCfg, a.cfg.AWS.Endpoint), a.cfg.Bedrock.ModelID)
	case config.ProviderChatGPT:
		model = llm.NewChatGPTClient(a.cfg.ChatGPT, nil)
	default:
		return nil, fmt.Errorf("unknown model provider %q", a.cfg.Classifier.Provider)
	}

	return classifier.New(classifier.Options{
		Model:    model,
		Strategy: strategy,
		Generate: ports.GenerateOptions{
			MaxTokens:   a.cfg.Classifier.MaxTokens,
			Temperature: a.cfg.Classifier.Temperature,
		},
		StripHTML: a.cfg.Classifier.StripHTML,
		Logger:    a.logger.With("component", "classifier", "strategy", strategy.Name()),
	}), nil
}

func (a *Application) buildNotifier(awsCfg aws.Config) ports.Notifier {
	switch a.cfg.Notifications.Channel {
	case config.ChannelSNS:
		return sns.NewPublisher(newSNSClient(awsCfg, a.cfg.AWS.Endpoint), a.cfg.Notifications.SNS.TopicARN)
	case config.ChannelTelegram:
		return telegram.NewNotifier(a.cfg.Notifications.Telegram.BotToken, a.cfg.Notifications.Telegram.ChatID)
	default:
		return console.NewNotifier(a.logger.With("component", "digest"))
	}
}

func newDynamoClient(cfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

func newBedrockClient(cfg aws.Config, endpoint string) *bedrockruntime.Client {
	return bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

func newSNSClient(cfg aws.Config, endpoint string) *awssns.Client {
	return awssns.NewFromConfig(cfg, func(o *awssns.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}
