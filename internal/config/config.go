package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Хранилища, поддерживаемые ключом STORAGE
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageSupabase = "supabase"
	StorageMemory   = "memory"
)

type Config struct {
	TelegramToken string `mapstructure:"telegram_token"`
	WebhookSecret string `mapstructure:"webhook_secret"`

	Storage      string `mapstructure:"storage"`
	DatabasePath string `mapstructure:"database_path"`
	DatabaseURL  string `mapstructure:"database_url"`
	SupabaseURL  string `mapstructure:"supabase_url"`
	SupabaseKey  string `mapstructure:"supabase_key"`

	TaxonomyFile string `mapstructure:"taxonomy_file"`
	CategoryMode string `mapstructure:"category_mode"`

	KafkaBrokers string `mapstructure:"kafka_brokers"`
	KafkaTopic   string `mapstructure:"kafka_topic"`

	ChartsEnabled bool `mapstructure:"charts_enabled"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// LoadConfig читает .env (если он есть) и переменные окружения
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv собирает конфигурацию только из переменных окружения
func FromEnv() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram_token", "")
	v.SetDefault("webhook_secret", "")

	v.SetDefault("storage", StorageSQLite)
	v.SetDefault("database_path", "ledger.db")
	v.SetDefault("database_url", "")
	v.SetDefault("supabase_url", "")
	v.SetDefault("supabase_key", "")

	v.SetDefault("taxonomy_file", "")
	v.SetDefault("category_mode", "validated")

	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_topic", "ledger_events")

	v.SetDefault("charts_enabled", true)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

func (c *Config) validate() error {
	switch c.Storage {
	case StorageSQLite:
		if c.DatabasePath == "" {
			return errors.New("DATABASE_PATH is required for sqlite storage")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for postgres storage")
		}
	case StorageSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return errors.New("SUPABASE_URL and SUPABASE_KEY are required for supabase storage")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", c.LogFormat)
	}
	return nil
}

// Brokers возвращает список брокеров Kafka; пустой список отключает события
func (c *Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
