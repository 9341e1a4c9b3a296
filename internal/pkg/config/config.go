package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Environment
	Environment string `mapstructure:"env"`
	LogLevel    string `mapstructure:"log_level"`

	Normalizer NormalizerConfig `mapstructure:"normalizer"`
	Corpus     CorpusConfig     `mapstructure:"corpus"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Database   DatabaseConfig   `mapstructure:"database"`
}

// NormalizerConfig mirrors the refinery flags
type NormalizerConfig struct {
	Version                   string `mapstructure:"version"`
	Language                  string `mapstructure:"language"`
	RemoveHTMLMarkup          bool   `mapstructure:"remove_html_markup"`
	ReplaceURLsEmailsMentions bool   `mapstructure:"replace_urls_emails_mentions"`
	InsertWhiteSpaces         bool   `mapstructure:"insert_white_spaces"`
	StripDiacritics           bool   `mapstructure:"strip_diacritics"`
	StripElongation           bool   `mapstructure:"strip_elongation"`
	CollapseRepeatedChars     bool   `mapstructure:"collapse_repeated_chars"`
	KeepEmojis                bool   `mapstructure:"keep_emojis"`
}

// CorpusConfig controls batch normalization of dataset files
type CorpusConfig struct {
	TextField   string `mapstructure:"text_field"`
	OutputField string `mapstructure:"output_field"`
	Deduplicate bool   `mapstructure:"deduplicate"`
	Workers     int    `mapstructure:"workers"`
	ChunkSize   int    `mapstructure:"chunk_size"`
	MaxFileMB   int64  `mapstructure:"max_file_mb"`
	ModelInput  bool   `mapstructure:"model_input"` // write model-input chunks next to the output
}

type StorageConfig struct {
	BasePath string `mapstructure:"base_path"`
}

type CacheConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	DialTimeout  int    `mapstructure:"dial_timeout"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	TTLHours     int    `mapstructure:"ttl_hours"`
}

type QueueConfig struct {
	RedisHost      string `mapstructure:"redis_host"`
	RedisPort      int    `mapstructure:"redis_port"`
	RedisPassword  string `mapstructure:"redis_password"`
	RedisDB        int    `mapstructure:"redis_db"`
	DialTimeout    int    `mapstructure:"dial_timeout"`
	ReadTimeout    int    `mapstructure:"read_timeout"`
	WriteTimeout   int    `mapstructure:"write_timeout"`
	Concurrency    int    `mapstructure:"concurrency"`
	StrictPriority bool   `mapstructure:"strict_priority"`
	MaxRetries     int    `mapstructure:"max_retries"`
}

type DatabaseConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"name"`
	SSLMode         string `mapstructure:"sslmode"`
	LogLevel        string `mapstructure:"log_level"`
	MaxConnections  int    `mapstructure:"max_connections"`
	MinConnections  int    `mapstructure:"min_connections"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime int    `mapstructure:"max_conn_idle_time"`
}

// Load loads configuration from environment variables, an optional .env file
// and an optional config file (yaml, toml or json, picked by extension).
//
// Environment keys are the upper-cased dotted keys with dots replaced by
// underscores, e.g. NORMALIZER_KEEP_EMOJIS or CACHE_HOST.
func Load(configFile string) (*Config, error) {
	// Load .env file if exists
	if err := godotenv.Load(".env"); err != nil {
		// Try parent directory
		if err := godotenv.Load("../.env"); err != nil {
			slog.Debug("no .env file found, using environment variables only")
		}
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	// Bind environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")

	// Normalizer defaults match the pipeline defaults
	v.SetDefault("normalizer.version", "v1")
	v.SetDefault("normalizer.language", "ar")
	v.SetDefault("normalizer.remove_html_markup", true)
	v.SetDefault("normalizer.replace_urls_emails_mentions", true)
	v.SetDefault("normalizer.insert_white_spaces", true)
	v.SetDefault("normalizer.strip_diacritics", true)
	v.SetDefault("normalizer.strip_elongation", true)
	v.SetDefault("normalizer.collapse_repeated_chars", true)
	v.SetDefault("normalizer.keep_emojis", true)

	// Corpus defaults
	v.SetDefault("corpus.text_field", "text")
	v.SetDefault("corpus.output_field", "cleanText")
	v.SetDefault("corpus.deduplicate", true)
	v.SetDefault("corpus.workers", 4)
	v.SetDefault("corpus.chunk_size", 100)
	v.SetDefault("corpus.max_file_mb", 500)
	v.SetDefault("corpus.model_input", true)

	v.SetDefault("storage.base_path", "/tmp/arnorm")

	// Redis cache defaults
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.host", "localhost")
	v.SetDefault("cache.port", 6379)
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.dial_timeout", 5)
	v.SetDefault("cache.read_timeout", 3)
	v.SetDefault("cache.write_timeout", 3)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.min_idle_conns", 2)
	v.SetDefault("cache.ttl_hours", 168)

	// Queue defaults
	v.SetDefault("queue.redis_host", "localhost")
	v.SetDefault("queue.redis_port", 6379)
	v.SetDefault("queue.redis_password", "")
	v.SetDefault("queue.redis_db", 1)
	v.SetDefault("queue.dial_timeout", 5)
	v.SetDefault("queue.read_timeout", 3)
	v.SetDefault("queue.write_timeout", 3)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.strict_priority", false)
	v.SetDefault("queue.max_retries", 3)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "arnorm")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.log_level", "silent")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.max_conn_lifetime", 30)
	v.SetDefault("database.max_conn_idle_time", 5)
}

// Validate checks value ranges and required fields
func (c *Config) Validate() error {
	if c.Corpus.Workers < 1 {
		return fmt.Errorf("corpus.workers must be at least 1, got %d", c.Corpus.Workers)
	}
	if c.Corpus.ChunkSize < 1 {
		return fmt.Errorf("corpus.chunk_size must be at least 1, got %d", c.Corpus.ChunkSize)
	}
	if strings.TrimSpace(c.Corpus.TextField) == "" {
		return fmt.Errorf("corpus.text_field is required")
	}
	if strings.TrimSpace(c.Corpus.OutputField) == "" {
		return fmt.Errorf("corpus.output_field is required")
	}
	if c.Storage.BasePath == "" {
		return fmt.Errorf("storage.base_path is required")
	}
	if c.Database.Enabled {
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required when the database is enabled")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required when the database is enabled")
		}
	}
	if c.Queue.Concurrency < 1 {
		return fmt.Errorf("queue.concurrency must be at least 1, got %d", c.Queue.Concurrency)
	}
	return nil
}

// NormalizerOverrides converts the normalizer section into the custom config
// map understood by the refinery registry
func (c *Config) NormalizerOverrides() map[string]interface{} {
	n := c.Normalizer
	return map[string]interface{}{
		"language":                     n.Language,
		"remove_html_markup":           n.RemoveHTMLMarkup,
		"replace_urls_emails_mentions": n.ReplaceURLsEmailsMentions,
		"insert_white_spaces":          n.InsertWhiteSpaces,
		"strip_diacritics":             n.StripDiacritics,
		"strip_elongation":             n.StripElongation,
		"collapse_repeated_chars":      n.CollapseRepeatedChars,
		"keep_emojis":                  n.KeepEmojis,
	}
}

// GetDatabaseURL constructs the PostgreSQL connection string
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password,
		c.Database.Database, c.Database.SSLMode)
}

// GetRedisURL constructs the Redis address used by the cache
func (c *Config) GetRedisURL() string {
	return fmt.Sprintf("%s:%d", c.Cache.Host, c.Cache.Port)
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// LogConfig logs the configuration (hiding sensitive data)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.String("environment", c.Environment),
		slog.String("normalizer_version", c.Normalizer.Version),
		slog.Bool("keep_emojis", c.Normalizer.KeepEmojis),
		slog.String("text_field", c.Corpus.TextField),
		slog.Int("workers", c.Corpus.Workers),
		slog.String("storage", c.Storage.BasePath),
		slog.Bool("cache_enabled", c.Cache.Enabled),
		slog.String("cache", c.GetRedisURL()),
		slog.String("queue", fmt.Sprintf("%s:%d/%d", c.Queue.RedisHost, c.Queue.RedisPort, c.Queue.RedisDB)),
		slog.Bool("database_enabled", c.Database.Enabled),
		slog.String("database", fmt.Sprintf("%s:%d/%s", c.Database.Host, c.Database.Port, c.Database.Database)),
		slog.Bool("database_password_set", c.Database.Password != ""),
	)
}
