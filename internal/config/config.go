package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting of the service. Values come from an
// optional YAML file, then environment variables, then defaults.
type Config struct {
	HTTPAddr string `yaml:"httpAddr"`
	LogLevel string `yaml:"logLevel"`

	DatabaseDSN   string `yaml:"databaseDSN"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`

	JWTSecret string `yaml:"jwtSecret"`

	LingoAPIKey            string        `yaml:"lingoAPIKey"`
	LingoAPIURL            string        `yaml:"lingoAPIURL"`
	TranslationTimeout     time.Duration `yaml:"translationTimeout"`
	TranslationCacheTTL    time.Duration `yaml:"translationCacheTTL"`
	TranslationRatePerSec  int           `yaml:"translationRatePerSec"`
	TranslationBurst       int           `yaml:"translationBurst"`
	TranslationConcurrency int           `yaml:"translationConcurrency"`

	TypingWindow time.Duration `yaml:"typingWindow"`
	HistoryLimit int           `yaml:"historyLimit"`

	TelegramBotToken string        `yaml:"telegramBotToken"`
	ShutdownTimeout  time.Duration `yaml:"shutdownTimeout"`
}

// Default returns a Config populated with defaults only.
func Default() Config {
	return Config{
		HTTPAddr:               DefaultHTTPAddr,
		LogLevel:               "info",
		DatabaseDSN:            "host=localhost user=user password=password dbname=babelchat port=5432 sslmode=disable",
		RedisAddr:              "localhost:6379",
		LingoAPIURL:            DefaultLingoAPIURL,
		TranslationTimeout:     DefaultTranslationTimeout,
		TranslationCacheTTL:    DefaultTranslationCacheTTL,
		TranslationRatePerSec:  DefaultTranslationRatePerSec,
		TranslationBurst:       DefaultTranslationBurst,
		TranslationConcurrency: DefaultTranslationConcurrency,
		TypingWindow:           DefaultTypingWindow,
		HistoryLimit:           DefaultHistoryLimit,
		ShutdownTimeout:        DefaultShutdownTimeout,
	}
}

// Load reads .env (if present), the YAML file named by CONFIG_FILE (if set)
// and the environment, and validates the result.
func Load() (*Config, error) {
	// A missing .env is fine, the process environment is used as-is.
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	loadEnvString(&cfg.HTTPAddr, "HTTP_ADDR")
	loadEnvString(&cfg.LogLevel, "LOG_LEVEL")
	loadEnvString(&cfg.DatabaseDSN, "DATABASE_DSN")
	loadEnvString(&cfg.RedisAddr, "REDIS_ADDR")
	loadEnvString(&cfg.RedisPassword, "REDIS_PASSWORD")
	loadEnvString(&cfg.JWTSecret, "JWT_SECRET")
	loadEnvString(&cfg.LingoAPIKey, "LINGO_API_KEY")
	loadEnvString(&cfg.LingoAPIURL, "LINGO_API_URL")
	loadEnvString(&cfg.TelegramBotToken, "TELEGRAM_BOT_TOKEN")

	if err := loadEnvInt(&cfg.RedisDB, "REDIS_DB"); err != nil {
		return err
	}
	if err := loadEnvInt(&cfg.TranslationRatePerSec, "TRANSLATION_RATE_PER_SEC"); err != nil {
		return err
	}
	if err := loadEnvInt(&cfg.TranslationBurst, "TRANSLATION_BURST"); err != nil {
		return err
	}
	if err := loadEnvInt(&cfg.TranslationConcurrency, "TRANSLATION_CONCURRENCY"); err != nil {
		return err
	}
	if err := loadEnvInt(&cfg.HistoryLimit, "HISTORY_LIMIT"); err != nil {
		return err
	}
	if err := loadEnvDuration(&cfg.TranslationTimeout, "TRANSLATION_TIMEOUT"); err != nil {
		return err
	}
	if err := loadEnvDuration(&cfg.TranslationCacheTTL, "TRANSLATION_CACHE_TTL"); err != nil {
		return err
	}
	if err := loadEnvDuration(&cfg.TypingWindow, "TYPING_WINDOW"); err != nil {
		return err
	}
	if err := loadEnvDuration(&cfg.ShutdownTimeout, "SHUTDOWN_TIMEOUT"); err != nil {
		return err
	}
	return nil
}

// Validate reports the first missing or out-of-range setting.
func (c *Config) Validate() error {
	if c.DatabaseDSN == "" {
		return errors.New("config: databaseDSN is required (set in config file or DATABASE_DSN)")
	}
	if c.RedisAddr == "" {
		return errors.New("config: redisAddr is required (set in config file or REDIS_ADDR)")
	}
	if c.JWTSecret == "" {
		return errors.New("config: jwtSecret is required (set in config file or JWT_SECRET)")
	}
	if c.TranslationTimeout <= 0 {
		return errors.New("config: translationTimeout must be positive")
	}
	if c.TypingWindow <= 0 {
		return errors.New("config: typingWindow must be positive")
	}
	if c.HistoryLimit <= 0 || c.HistoryLimit > DefaultHistoryLimit {
		return fmt.Errorf("config: historyLimit must be between 1 and %d", DefaultHistoryLimit)
	}
	if c.TranslationConcurrency <= 0 {
		return errors.New("config: translationConcurrency must be positive")
	}
	return nil
}

// Helper functions for environment overrides. Unset variables keep the current value.
func loadEnvString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func loadEnvInt(target *int, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer value for %s: %w", key, err)
	}
	*target = n
	return nil
}

func loadEnvDuration(target *time.Duration, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration value for %s: %w", key, err)
	}
	*target = d
	return nil
}
