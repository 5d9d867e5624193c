package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate for unusable settings.
var ErrInvalid = errors.New("invalid config")

// Config holds the configuration for the document QA service
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	LLM       LLMConfig       `yaml:"llm"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds the HTTP request surface configuration
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	TeamToken      string        `yaml:"team_token"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// FetchConfig controls document downloads
type FetchConfig struct {
	Timeout             time.Duration `yaml:"timeout"`
	UserAgent           string        `yaml:"user_agent"`
	SpoolDir            string        `yaml:"spool_dir"`
	MaxBytes            int64         `yaml:"max_bytes"`
	EnableRobotsCheck   bool          `yaml:"enable_robots_check"`
	RobotsCacheDuration time.Duration `yaml:"robots_cache_duration"`
}

// RetrievalConfig holds chunking, vectorizing and ranking parameters
type RetrievalConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
	MaxFeatures  int `yaml:"max_features"`
	Concurrency  int `yaml:"concurrency"`
}

// LLMConfig selects the answering strategy and its text-generation backend
type LLMConfig struct {
	Strategy          string        `yaml:"strategy"`
	Provider          string        `yaml:"provider"`
	BaseURL           string        `yaml:"base_url"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"api_key"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	StrategyKeyword    = "keyword"
	StrategyGenerative = "generative"

	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           GetStringEnv("SERVER_ADDR", ":8080"),
			TeamToken:      GetStringEnv("TEAM_TOKEN", ""),
			ReadTimeout:    GetDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			RequestTimeout: GetDurationEnv("SERVER_REQUEST_TIMEOUT", 5*time.Minute),
		},
		Fetch: FetchConfig{
			Timeout:             GetDurationEnv("FETCH_TIMEOUT", 30*time.Second),
			UserAgent:           GetStringEnv("FETCH_USER_AGENT", "docqa/1.0"),
			SpoolDir:            GetStringEnv("FETCH_SPOOL_DIR", filepath.Join(os.TempDir(), "docqa")),
			MaxBytes:            int64(GetIntEnv("FETCH_MAX_BYTES", 50<<20)),
			EnableRobotsCheck:   GetBoolEnv("FETCH_ENABLE_ROBOTS_CHECK", false),
			RobotsCacheDuration: GetDurationEnv("FETCH_ROBOTS_CACHE_DURATION", time.Hour),
		},
		Retrieval: RetrievalConfig{
			ChunkSize:    GetIntEnv("RETRIEVAL_CHUNK_SIZE", 200),
			ChunkOverlap: GetIntEnv("RETRIEVAL_CHUNK_OVERLAP", 40),
			TopK:         GetIntEnv("RETRIEVAL_TOP_K", 5),
			MaxFeatures:  GetIntEnv("RETRIEVAL_MAX_FEATURES", 512),
			Concurrency:  GetIntEnv("RETRIEVAL_CONCURRENCY", 1),
		},
		LLM: LLMConfig{
			Strategy:          GetStringEnv("LLM_STRATEGY", StrategyKeyword),
			Provider:          GetStringEnv("LLM_PROVIDER", ProviderOllama),
			BaseURL:           GetStringEnv("LLM_BASE_URL", ""),
			Model:             GetStringEnv("LLM_MODEL", "mistral"),
			APIKey:            GetStringEnv("LLM_API_KEY", ""),
			Timeout:           GetDurationEnv("LLM_TIMEOUT", 60*time.Second),
			RequestsPerSecond: GetFloatEnv("LLM_REQUESTS_PER_SECOND", 0),
			Burst:             GetIntEnv("LLM_BURST", 1),
		},
		Log: LogConfig{
			Level:  GetStringEnv("LOG_LEVEL", "info"),
			Format: GetStringEnv("LOG_FORMAT", "text"),
		},
	}
}

// LoadFile loads the environment configuration and overlays the keys set in
// the YAML file at path.
func LoadFile(path string) (*Config, error) {
	cfg := Load()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks settings the pipeline cannot run with
func (c *Config) Validate() error {
	r := c.Retrieval
	if r.ChunkOverlap < 0 || r.ChunkSize <= r.ChunkOverlap {
		return fmt.Errorf("%w: retrieval.chunk_size (%d) must exceed retrieval.chunk_overlap (%d) >= 0",
			ErrInvalid, r.ChunkSize, r.ChunkOverlap)
	}
	if r.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be positive", ErrInvalid)
	}
	if r.MaxFeatures <= 0 {
		return fmt.Errorf("%w: retrieval.max_features must be positive", ErrInvalid)
	}
	switch c.LLM.Strategy {
	case StrategyKeyword, StrategyGenerative:
	default:
		return fmt.Errorf("%w: unknown llm.strategy %q", ErrInvalid, c.LLM.Strategy)
	}
	switch c.LLM.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: unknown llm.provider %q", ErrInvalid, c.LLM.Provider)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log.format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

// ValidateServer additionally requires the settings only the HTTP server needs
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.TeamToken == "" {
		return fmt.Errorf("%w: server.team_token (TEAM_TOKEN) is required", ErrInvalid)
	}
	return nil
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
