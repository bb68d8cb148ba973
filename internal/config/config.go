package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SignalBot/internal/api/wingo"
	"github.com/Alias1177/SignalBot/internal/storage"
)

// Config holds all application configuration
type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	OpenAIModel      string `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`

	FeedBaseURL        string        `env:"FEED_BASE_URL" envDefault:"https://draw.ar-lottery01.com/WinGo/WinGo_30S" validate:"url"`
	FeedPath           string        `env:"FEED_PATH" envDefault:"GetHistoryIssuePage.json"`
	FeedReferer        string        `env:"FEED_REFERER" envDefault:"https://dkwin9.com/"`
	FeedOrigin         string        `env:"FEED_ORIGIN" envDefault:"https://dkwin9.com"`
	FeedUserAgent      string        `env:"FEED_USER_AGENT" envDefault:"Mozilla/5.0 (compatible)"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s" validate:"gt=0"`
	FeedRequestsPerSec int           `env:"FEED_REQUESTS_PER_SEC" envDefault:"5" validate:"gt=0"`
	FeedMaxRetries     int           `env:"FEED_MAX_RETRIES" envDefault:"2" validate:"gte=0"`
	FeedMaxRetryTime   time.Duration `env:"FEED_MAX_RETRY_TIME" envDefault:"5s" validate:"gte=0"`

	StateBackend  string `env:"STATE_BACKEND" envDefault:"file" validate:"backend"`
	StateFile     string `env:"STATE_FILE" envDefault:"state.json"`
	StateKey      string `env:"STATE_KEY" envDefault:"default"`
	DatabaseURL   string `env:"DATABASE_URL"`
	DBHost        string `env:"DB_HOST" envDefault:"localhost"`
	DBPort        string `env:"DB_PORT" envDefault:"5432"`
	DBUser        string `env:"DB_USER"`
	DBPassword    string `env:"DB_PASSWORD"`
	DBName        string `env:"DB_NAME"`
	DBSSLMode     string `env:"DB_SSLMODE" envDefault:"disable"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"state.db"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0" validate:"gte=0"`
	RedisKey      string `env:"REDIS_KEY" envDefault:"wingo:state"`

	PollInterval  time.Duration `env:"POLL_INTERVAL" envDefault:"0s" validate:"gte=0"`
	NotifyChatIDs []int64       `env:"NOTIFY_CHAT_IDS" envSeparator:","`
	HTTPAddr      string        `env:"HTTP_ADDR"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console" validate:"oneof=console json"`
}

// legacyAliases maps older variable names onto the current ones
var legacyAliases = map[string]string{
	"BOT_TOKEN":      "TELEGRAM_BOT_TOKEN",
	"Premium_Signal": "OPENAI_API_KEY",
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}
	return Parse(os.Environ())
}

// Parse builds the configuration from KEY=VALUE pairs
func Parse(environ []string) (*Config, error) {
	vars := envMap(environ)
	for legacy, current := range legacyAliases {
		if vars[current] == "" && vars[legacy] != "" {
			vars[current] = vars[legacy]
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("backend", func(fl validator.FieldLevel) bool {
		return slices.Contains(storage.Backends, strings.ToLower(fl.Field().String()))
	})
	return v
}

// Validate checks field ranges and values that depend on each other
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			e := errs[0]
			return fmt.Errorf("invalid config %s: failed %q check", e.Field(), e.Tag())
		}
		return err
	}
	if strings.EqualFold(c.StateBackend, storage.BackendPostgres) && c.DatabaseURL == "" && (c.DBUser == "" || c.DBName == "") {
		return fmt.Errorf("postgres backend needs DATABASE_URL or DB_USER and DB_NAME")
	}
	return nil
}

// StorageOptions returns the state store settings
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:  strings.ToLower(c.StateBackend),
		FilePath: c.StateFile,
		Postgres: storage.PostgresParams{
			URL:      c.DatabaseURL,
			Host:     c.DBHost,
			Port:     c.DBPort,
			User:     c.DBUser,
			Password: c.DBPassword,
			DBName:   c.DBName,
			SSLMode:  c.DBSSLMode,
		},
		SQLite:        c.SQLitePath,
		StateKey:      c.StateKey,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		RedisKey:      c.RedisKey,
	}
}

// FeedOptions returns the WinGo client settings
func (c *Config) FeedOptions() wingo.ClientOptions {
	return wingo.ClientOptions{
		BaseURL:         c.FeedBaseURL,
		Path:            c.FeedPath,
		Referer:         c.FeedReferer,
		Origin:          c.FeedOrigin,
		UserAgent:       c.FeedUserAgent,
		RequestTimeout:  c.RequestTimeout,
		RequestsPerSec:  c.FeedRequestsPerSec,
		MaxRetries:      c.FeedMaxRetries,
		MaxRetryTimeout: c.FeedMaxRetryTime,
	}
}

func envMap(environ []string) map[string]string {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		vars[key] = value
	}
	return vars
}
