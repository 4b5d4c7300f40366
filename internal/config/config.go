package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the bready API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Vector    VectorConfig    `yaml:"vector"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Kakao     KakaoConfig     `yaml:"kakao"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds relational store settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // sqlite file path, ":memory:" for ephemeral
}

// VectorConfig holds vector index settings.
type VectorConfig struct {
	Driver     string    `yaml:"driver"` // redis, qdrant, memory (default: redis)
	Dimensions int       `yaml:"dimensions"`
	Redis      RedisVec  `yaml:"redis"`
	Qdrant     QdrantVec `yaml:"qdrant"`
}

// RedisVec holds Redis/RediSearch backend settings.
type RedisVec struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// QdrantVec holds Qdrant backend settings.
type QdrantVec struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
	APIKey     string `yaml:"api_key"`
	UseTLS     bool   `yaml:"use_tls"`
}

// OpenAIConfig holds embedding and chat model settings.
type OpenAIConfig struct {
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	EmbeddingModel string  `yaml:"embedding_model"`
	ChatModel      string  `yaml:"chat_model"`
	Temperature    float32 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
}

// KakaoConfig holds Kakao OAuth settings.
type KakaoConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
	FrontendURL  string `yaml:"frontend_url"`
}

// SessionConfig holds JWT session cookie settings.
type SessionConfig struct {
	Secret     string `yaml:"secret"`
	CookieName string `yaml:"cookie_name"`
	TTLSec     int    `yaml:"ttl_sec"`
	Secure     bool   `yaml:"secure"`
}

// RateLimitConfig holds per-IP token bucket settings for /search and /chat.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: by env)
}

// Load reads configuration from config/<env>.yaml, expanding ${VAR} and
// ${VAR:-default} references against the process environment.
func Load(env string) (Config, error) {
	path := filepath.Join("config", fmt.Sprintf("%s.yaml", env))

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from ENV, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Path == "" {
		c.Database.Path = "bready.db"
	}
	if c.Vector.Driver == "" {
		c.Vector.Driver = "redis"
	}
	if c.Vector.Dimensions <= 0 {
		c.Vector.Dimensions = 1536
	}
	if c.Vector.Redis.KeyPrefix == "" {
		c.Vector.Redis.KeyPrefix = "bready:"
	}
	if c.Vector.Redis.ReadinessTimeout <= 0 {
		c.Vector.Redis.ReadinessTimeout = 10
	}
	if c.Vector.Qdrant.Port <= 0 {
		c.Vector.Qdrant.Port = 6334
	}
	if c.Vector.Qdrant.Collection == "" {
		c.Vector.Qdrant.Collection = "bakeries"
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if c.OpenAI.Temperature <= 0 {
		c.OpenAI.Temperature = 0.7
	}
	if c.OpenAI.MaxTokens <= 0 {
		c.OpenAI.MaxTokens = 1000
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "session"
	}
	if c.Session.TTLSec <= 0 {
		c.Session.TTLSec = 7 * 24 * 3600
	}
	if c.RateLimit.RPS <= 0 {
		c.RateLimit.RPS = 5
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Vector.Driver {
	case "redis":
		if len(c.Vector.Redis.Addrs) == 0 {
			return fmt.Errorf("vector.redis.addrs is required for the redis driver")
		}
	case "qdrant":
		if c.Vector.Qdrant.Host == "" {
			return fmt.Errorf("vector.qdrant.host is required for the qdrant driver")
		}
	case "memory":
		// no settings
	default:
		return fmt.Errorf("vector.driver must be redis, qdrant, or memory, got %q", c.Vector.Driver)
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("session.secret is required")
	}
	return nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
