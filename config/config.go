package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for pagectx.
type Config struct {
	Segment   SegmentConfig   `yaml:"segment"`
	Select    SelectConfig    `yaml:"select"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cache     CacheConfig     `yaml:"cache"`
	Engine    EngineConfig    `yaml:"engine"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SegmentConfig holds segmentation configuration.
type SegmentConfig struct {
	Limit int `yaml:"limit"` // Segment count above which adjacent segments are merged
}

// SelectConfig holds selection configuration.
type SelectConfig struct {
	ByteBudget uint32 `yaml:"byte_budget"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider"`    // "openai", "ollama", "hashing", "mock"
	Model             string        `yaml:"model"`       // e.g., "text-embedding-3-small"; empty for hashing
	BaseURL           string        `yaml:"base_url"`    // Override for OpenAI-compatible services
	APIKeyEnv         string        `yaml:"api_key_env"` // Environment variable for API key
	Dimension         int           `yaml:"dimension"`   // Used by the hashing and mock providers
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 0 = unlimited
}

// CacheConfig holds the persistent embedding cache configuration.
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Path          string        `yaml:"path"`           // Defaults to .pagectx/embeddings.db under the working dir
	MemoryEntries int           `yaml:"memory_entries"` // In-process vector cache size, 0 disables it
	MemoryTTL     time.Duration `yaml:"memory_ttl"`     // 0 = no expiry
}

// EngineConfig holds dispatcher configuration.
type EngineConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Segment: SegmentConfig{
			Limit: 300,
		},
		Select: SelectConfig{
			ByteBudget: 4000,
		},
		Embedding: EmbeddingConfig{
			Provider:  "hashing",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 512,
			Timeout:   60 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:       false,
			MemoryEntries: 1024,
		},
		Engine: EngineConfig{
			QueueSize: 64,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "openai", "ollama":
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for provider %s", c.Embedding.Provider)
		}
	case "hashing", "mock":
		if c.Embedding.Dimension <= 0 {
			return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
		}
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}
	if c.Segment.Limit <= 0 {
		return fmt.Errorf("segment.limit must be positive, got %d", c.Segment.Limit)
	}
	if c.Select.ByteBudget == 0 {
		return fmt.Errorf("select.byte_budget must be positive")
	}
	if c.Cache.MemoryEntries < 0 {
		return fmt.Errorf("cache.memory_entries must not be negative")
	}
	if c.Embedding.RequestsPerSecond < 0 {
		return fmt.Errorf("embedding.requests_per_second must not be negative")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported logging level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported logging format: %s", c.Logging.Format)
	}
	return nil
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for pagectx.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "pagectx.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".pagectx", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// CachePath returns the path to the embedding cache database.
func (c *Config) CachePath(dir string) string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return filepath.Join(dir, ".pagectx", "embeddings.db")
}

// EnsureDir ensures the directory holding path exists.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
