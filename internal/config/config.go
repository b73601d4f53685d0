package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"

	EgressGraph  = "graph"
	EgressRelay  = "relay"
	EgressAuto   = "auto"
	EgressDryRun = "dryrun"
)

type AppConfig struct {
	Port string `validate:"required,numeric"`

	PageAccessToken string `validate:"required_unless=EgressMode dryrun"`
	VerifyToken     string `validate:"required"`
	GraphAPIURL     string `validate:"required,url"`
	BotName         string `validate:"required"`

	StoreBackend  string `validate:"oneof=redis postgres sqlite memory"`
	RedisURL      string `validate:"required_if=StoreBackend redis"`
	DatabaseURL   string `validate:"required_if=StoreBackend postgres"`
	SQLitePath    string `validate:"required_if=StoreBackend sqlite"`
	SessionTTLSec int    `validate:"gte=0"`

	EgressMode string `validate:"oneof=graph relay auto dryrun"`
	RelayWSURL string `validate:"required_if=EgressMode relay"`

	MessagesDir    string
	HistoryLimit   int `validate:"gte=1,lte=50"`
	SendTimeoutSec int `validate:"gte=1"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads an optional .env file and then the process environment.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds and validates the config from the current environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:           getEnv("PORT", "5000"),
		GraphAPIURL:    strings.TrimRight(getEnv("GRAPH_API_URL", "https://graph.facebook.com/v19.0"), "/"),
		BotName:        getEnv("BOT_NAME", "bot"),
		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", StoreRedis)),
		SQLitePath:     getEnv("SQLITE_PATH", "xo.db"),
		EgressMode:     strings.ToLower(getEnv("EGRESS_MODE", EgressGraph)),
		HistoryLimit:   5,
		SendTimeoutSec: 10,
	}

	cfg.PageAccessToken = strings.TrimSpace(os.Getenv("PAGE_ACCESS_TOKEN"))
	cfg.VerifyToken = strings.TrimSpace(os.Getenv("VERIFY_TOKEN"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.RelayWSURL = strings.TrimSpace(os.Getenv("RELAY_WS_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	var err error
	if cfg.SessionTTLSec, err = getEnvInt("SESSION_TTL_SEC", 0); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit, err = getEnvInt("HISTORY_LIMIT", cfg.HistoryLimit); err != nil {
		return nil, err
	}
	if cfg.SendTimeoutSec, err = getEnvInt("SEND_TIMEOUT_SEC", cfg.SendTimeoutSec); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SessionTTL is zero when sessions never expire.
func (c *AppConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSec) * time.Second
}

func (c *AppConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSec) * time.Second
}

func (c *AppConfig) Addr() string { return ":" + c.Port }

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
