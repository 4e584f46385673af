package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	apperrors "github.com/lueurxax/channel-snapshot-bot/internal/core/errors"
)

// Environment keys read outside of struct tags.
const (
	envTargetChat  = "TARGET_CHAT"
	envLLMAPIKey   = "LLM_API_KEY"
	envSessionPath = "TG_SESSION_PATH"
)

// MockAPIKey selects the offline generator instead of the OpenAI client.
const MockAPIKey = "mock"

// maxMessageLength is the Bot API limit on message text, in UTF-16 units.
const maxMessageLength = 4096

type Config struct {
	AppEnv        string  `env:"APP_ENV" envDefault:"local"`
	BotToken      string  `env:"BOT_TOKEN"`
	AdminIDs      []int64 `env:"ADMIN_IDS" envSeparator:","`
	TargetChat    string  `env:"TARGET_CHAT"`
	TGAPIID       int     `env:"TG_API_ID"`
	TGAPIHash     string  `env:"TG_API_HASH"`
	TGPhone       string  `env:"TG_PHONE"`
	TG2FAPassword string  `env:"TG_2FA_PASSWORD"`
	TGSessionPath string  `env:"TG_SESSION_PATH" envDefault:"./tg.session"`
	HealthPort    int     `env:"HEALTH_PORT" envDefault:"8080"`

	// Text generation
	LLMAPIKey        string        `env:"LLM_API_KEY"`
	LLMModel         string        `env:"LLM_MODEL" envDefault:"gpt-5-mini"`
	LLMSnapshotModel string        `env:"LLM_SNAPSHOT_MODEL"`
	LLMBaseURL       string        `env:"LLM_BASE_URL"`
	LLMTimeout       time.Duration `env:"LLM_TIMEOUT" envDefault:"3m"`
	RateLimitRPS     float64       `env:"RATE_LIMIT_RPS" envDefault:"1"`

	// Schedule
	ScheduleTimezone     string   `env:"SCHEDULE_TIMEZONE" envDefault:"Asia/Seoul"`
	ScheduleTimes        []string `env:"SCHEDULE_TIMES" envSeparator:"," envDefault:"07:00"`
	ScheduleWeekendTimes []string `env:"SCHEDULE_WEEKEND_TIMES" envSeparator:","`

	// Collection window and report limits
	Lookback          time.Duration `env:"LOOKBACK" envDefault:"24h"`
	MaxItemsPerSource int           `env:"MAX_ITEMS_PER_SOURCE" envDefault:"100"`
	MaxSnapshotItems  int           `env:"MAX_SNAPSHOT_ITEMS" envDefault:"200"`
	MaxLinks          int           `env:"MAX_LINKS" envDefault:"10"`
	CompactLimit      int           `env:"COMPACT_LIMIT" envDefault:"1000"`
	MessageLimit      int           `env:"MESSAGE_LIMIT" envDefault:"4000"`
	ChunkMinFraction  float64       `env:"CHUNK_MIN_FRACTION" envDefault:"0.6"`

	// Optional report features
	SnapshotEnabled      bool `env:"SNAPSHOT_ENABLED" envDefault:"false"`
	EnsureCompleteEnding bool `env:"ENSURE_COMPLETE_ENDING" envDefault:"false"`

	// Sources
	SourcesFile         string        `env:"SOURCES_FILE"`
	BlogFeedURLTemplate string        `env:"BLOG_FEED_URL_TEMPLATE" envDefault:"https://rss.blog.naver.com/%s.xml"`
	FeedTimeout         time.Duration `env:"FEED_TIMEOUT" envDefault:"30s"`
	FeedRPS             float64       `env:"FEED_RPS" envDefault:"2"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	applyLegacyAliases(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that struct tags cannot express. A missing
// delivery destination is not an error here; scheduled runs skip the cycle.
func (c *Config) Validate() error {
	if c.MessageLimit <= 0 || c.MessageLimit > maxMessageLength {
		return fmt.Errorf("%w: MESSAGE_LIMIT must be in (0,%d]", apperrors.ErrInvalidInput, maxMessageLength)
	}

	if c.ChunkMinFraction < 0 || c.ChunkMinFraction >= 1 {
		return fmt.Errorf("%w: CHUNK_MIN_FRACTION must be in [0,1)", apperrors.ErrInvalidInput)
	}

	if c.Lookback <= 0 {
		return fmt.Errorf("%w: LOOKBACK must be positive", apperrors.ErrInvalidInput)
	}

	if c.MaxItemsPerSource <= 0 || c.MaxLinks < 0 || c.CompactLimit < 0 {
		return fmt.Errorf("%w: item and link limits must not be negative", apperrors.ErrInvalidInput)
	}

	if !strings.Contains(c.BlogFeedURLTemplate, "%s") {
		return fmt.Errorf("%w: BLOG_FEED_URL_TEMPLATE must contain %%s", apperrors.ErrInvalidInput)
	}

	return nil
}

// ValidateReporting checks the credentials needed to build and deliver
// reports. Login mode only needs the Telegram user-session keys.
func (c *Config) ValidateReporting() error {
	if strings.TrimSpace(c.BotToken) == "" {
		return fmt.Errorf("%w: BOT_TOKEN is required", apperrors.ErrInvalidInput)
	}

	if strings.TrimSpace(c.LLMAPIKey) == "" {
		return fmt.Errorf("%w: LLM_API_KEY is required (use %q for offline runs)", apperrors.ErrInvalidInput, MockAPIKey)
	}

	return nil
}

// TelegramConfigured reports whether the user-session credentials are present.
func (c *Config) TelegramConfigured() bool {
	return c.TGAPIID != 0 && strings.TrimSpace(c.TGAPIHash) != ""
}

// UseMockLLM reports whether the offline generator was requested.
func (c *Config) UseMockLLM() bool {
	return c.LLMAPIKey == MockAPIKey
}

// SnapshotModel returns the model for the combined snapshot report.
func (c *Config) SnapshotModel() string {
	if c.LLMSnapshotModel != "" {
		return c.LLMSnapshotModel
	}

	return c.LLMModel
}

// applyLegacyAliases accepts the variable names of earlier deployments when
// the current names are not set.
func applyLegacyAliases(cfg *Config) {
	if !hasEnv(envTargetChat) {
		setStringFromEnv("BOT_CHAT_ID", &cfg.TargetChat)
		setStringFromEnv("TARGET_CHAT_ID", &cfg.TargetChat)
	}

	if !hasEnv(envLLMAPIKey) {
		setStringFromEnv("OPENAI_API_KEY", &cfg.LLMAPIKey)
	}

	if !hasEnv(envSessionPath) {
		setSessionFromEnv("TG_SESSION", &cfg.TGSessionPath)
	}

	if !hasEnv("COMPACT_LIMIT") {
		setIntFromEnv("SUMMARY_COMPACT_LIMIT", &cfg.CompactLimit)
	}
}

func hasEnv(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func setStringFromEnv(key string, target *string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	val = strings.TrimSpace(val)
	if val == "" {
		return
	}

	*target = val
}

// setSessionFromEnv maps a bare session name to a session file path.
func setSessionFromEnv(key string, target *string) {
	var name string

	setStringFromEnv(key, &name)

	if name == "" {
		return
	}

	if !strings.HasSuffix(name, ".session") {
		name += ".session"
	}

	*target = name
}

func setIntFromEnv(key string, target *int) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return
	}

	*target = parsed
}
