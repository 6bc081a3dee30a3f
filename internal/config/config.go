package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "APTSCANNER_CONFIG"
	feedURLEnv        = "FEED_URL"
	storeDriverEnv    = "STORE_DRIVER"
	tableNameEnv      = "TABLE_NAME"
	databaseDSNEnv    = "DATABASE_DSN"
	awsRegionEnv      = "AWS_REGION"
	awsEndpointEnv    = "AWS_ENDPOINT_URL"
	bedrockModelEnv   = "BEDROCK_MODEL_ID"
	modelProviderEnv  = "MODEL_PROVIDER"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	classifierFmtEnv  = "CLASSIFIER_FORMAT"
	recordingModeEnv  = "RECORDING_MODE"
	notifyChannelEnv  = "NOTIFY_CHANNEL"
	snsTopicEnv       = "SNS_TOPIC_ARN"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
	logFormatEnv      = "LOG_FORMAT"
)

const (
	defaultFeedURL   = "https://www.reddit.com/r/LeaseTakeoverNYC+NYCapartments/search.rss?q=%28%222BR%22+OR+%22Two+bed%22+OR+%22Two+bedrooms%22+OR+%222B%22+OR+%22Two+B%22%29&restrict_sr=1&sort=new"
	defaultUserAgent = "Mozilla/5.0 (compatible; AptBot/AI-Edition)"
	defaultModelID   = "google.gemma-3-12b-it"
)

// Store drivers.
const (
	StoreDynamoDB = "dynamodb"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Model providers.
const (
	ProviderBedrock = "bedrock"
	ProviderChatGPT = "chatgpt"
)

// Notification channels.
const (
	ChannelSNS      = "sns"
	ChannelTelegram = "telegram"
	ChannelLog      = "log"
)

// Config holds high-level settings required across the application.
type Config struct {
	Feed          FeedConfig         `yaml:"feed"`
	Store         StoreConfig        `yaml:"store"`
	AWS           AWSConfig          `yaml:"aws"`
	Classifier    ClassifierConfig   `yaml:"classifier"`
	Bedrock       BedrockConfig      `yaml:"bedrock"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// FeedConfig describes the polled Atom feed.
type FeedConfig struct {
	URL       string        `yaml:"url"`
	UserAgent string        `yaml:"userAgent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// StoreConfig selects the seen-set backend.
type StoreConfig struct {
	Driver string        `yaml:"driver"`
	Table  string        `yaml:"table"`
	DSN    string        `yaml:"dsn"`
	TTL    time.Duration `yaml:"ttl"`
}

// AWSConfig is shared by DynamoDB, SNS and Bedrock clients.
type AWSConfig struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
}

// ClassifierConfig controls prompt construction and reply extraction.
type ClassifierConfig struct {
	Provider      string   `yaml:"provider"`
	Format        string   `yaml:"format"`
	MaxTokens     int32    `yaml:"maxTokens"`
	Temperature   float32  `yaml:"temperature"`
	AllowedAreas  []string `yaml:"allowedAreas"`
	ExcludedAreas []string `yaml:"excludedAreas"`
	StripHTML     bool     `yaml:"stripHtml"`
}

// BedrockConfig identifies the hosted model.
type BedrockConfig struct {
	ModelID string `yaml:"modelId"`
}

// ChatGPTConfig defines how to contact an OpenAI-compatible API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// PipelineConfig toggles what gets written per processed post.
type PipelineConfig struct {
	Recording string `yaml:"recording"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Channel  string         `yaml:"channel"`
	SNS      SNSConfig      `yaml:"sns"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// SNSConfig points at the digest topic.
type SNSConfig struct {
	TopicARN string `yaml:"topicArn"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SchedulerConfig drives the long-running serve mode.
type SchedulerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	ListenAddr string        `yaml:"listenAddr"`
}

// LoggingConfig picks slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
// An empty path falls back to APTSCANNER_CONFIG.
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			cfg = Default()
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalize()

	return cfg
}

// Validate rejects combinations the application cannot wire.
func (c Config) Validate() error {
	if c.Feed.URL == "" {
		return fmt.Errorf("feed url is required")
	}

	switch c.Store.Driver {
	case StoreDynamoDB:
		if c.Store.Table == "" {
			return fmt.Errorf("store table is required for %s", c.Store.Driver)
		}
	case StorePostgres, StoreSQLite:
		if c.Store.DSN == "" {
			return fmt.Errorf("store dsn is required for %s", c.Store.Driver)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Classifier.Provider {
	case ProviderBedrock:
		if c.Bedrock.ModelID == "" {
			return fmt.Errorf("bedrock model id is required")
		}
	case ProviderChatGPT:
		if c.ChatGPT.APIKey == "" || c.ChatGPT.Endpoint == "" || c.ChatGPT.Model == "" {
			return fmt.Errorf("chatgpt endpoint, model and api key are required")
		}
	default:
		return fmt.Errorf("unknown model provider %q", c.Classifier.Provider)
	}

	switch c.Notifications.Channel {
	case ChannelSNS:
		if c.Notifications.SNS.TopicARN == "" {
			return fmt.Errorf("sns topic arn is required")
		}
	case ChannelTelegram:
		if c.Notifications.Telegram.BotToken == "" || c.Notifications.Telegram.ChatID == "" {
			return fmt.Errorf("telegram bot token and chat id are required")
		}
	case ChannelLog:
	default:
		return fmt.Errorf("unknown notification channel %q", c.Notifications.Channel)
	}

	switch c.Pipeline.Recording {
	case "rich", "seen-only":
	default:
		return fmt.Errorf("unknown recording mode %q", c.Pipeline.Recording)
	}

	if c.Store.TTL <= 0 {
		return fmt.Errorf("store ttl must be positive")
	}

	return nil
}

// UsesAWS reports whether any selected backend needs an AWS SDK config.
func (c Config) UsesAWS() bool {
	return c.Store.Driver == StoreDynamoDB ||
		c.Classifier.Provider == ProviderBedrock ||
		c.Notifications.Channel == ChannelSNS
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{feedURLEnv, &c.Feed.URL},
		{storeDriverEnv, &c.Store.Driver},
		{tableNameEnv, &c.Store.Table},
		{databaseDSNEnv, &c.Store.DSN},
		{awsRegionEnv, &c.AWS.Region},
		{awsEndpointEnv, &c.AWS.Endpoint},
		{bedrockModelEnv, &c.Bedrock.ModelID},
		{modelProviderEnv, &c.Classifier.Provider},
		{chatGPTAPIKeyEnv, &c.ChatGPT.APIKey},
		{chatGPTModelEnv, &c.ChatGPT.Model},
		{classifierFmtEnv, &c.Classifier.Format},
		{recordingModeEnv, &c.Pipeline.Recording},
		{notifyChannelEnv, &c.Notifications.Channel},
		{snsTopicEnv, &c.Notifications.SNS.TopicARN},
		{telegramTokenEnv, &c.Notifications.Telegram.BotToken},
		{telegramChatIDEnv, &c.Notifications.Telegram.ChatID},
		{logLevelEnv, &c.Logging.Level},
		{logFormatEnv, &c.Logging.Format},
	}

	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) normalize() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Classifier.Provider = strings.ToLower(strings.TrimSpace(c.Classifier.Provider))
	c.Classifier.Format = strings.ToLower(strings.TrimSpace(c.Classifier.Format))
	c.Notifications.Channel = strings.ToLower(strings.TrimSpace(c.Notifications.Channel))
	c.Pipeline.Recording = strings.ToLower(strings.TrimSpace(c.Pipeline.Recording))

	if c.Feed.UserAgent == "" {
		c.Feed.UserAgent = defaultUserAgent
	}
	if c.Classifier.MaxTokens <= 0 {
		c.Classifier.MaxTokens = Default().Classifier.MaxTokens
	}
}

// Default returns the configuration used when no file or env overrides are present.
func Default() Config {
	return Config{
		Feed: FeedConfig{
			URL:       defaultFeedURL,
			UserAgent: defaultUserAgent,
			Timeout:   30 * time.Second,
		},
		Store: StoreConfig{
			Driver: StoreDynamoDB,
			Table:  "apartment-seen-posts",
			TTL:    14 * 24 * time.Hour,
		},
		AWS: AWSConfig{Region: "us-east-1"},
		Classifier: ClassifierConfig{
			Provider:      ProviderBedrock,
			Format:        "json",
			MaxTokens:     100,
			Temperature:   0,
			AllowedAreas:  []string{"Manhattan"},
			ExcludedAreas: []string{"Brooklyn", "NJ", "LIC", "Roosevelt Island"},
		},
		Bedrock: BedrockConfig{ModelID: defaultModelID},
		ChatGPT: ChatGPTConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
		},
		Pipeline: PipelineConfig{Recording: "rich"},
		Notifications: NotificationConfig{
			Channel: ChannelSNS,
		},
		Scheduler: SchedulerConfig{
			Interval:   15 * time.Minute,
			ListenAddr: ":8080",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}
