package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production" - controls error detail in responses
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Store       StoreConfig     `toml:"store"`
	Catalog     CatalogConfig   `toml:"catalog"`
	Content     ContentConfig   `toml:"content"`
	Reasoning   ReasoningConfig `toml:"reasoning"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	Cache       CacheConfig     `toml:"cache"`
	WebSocket   WebSocketConfig `toml:"websocket"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// StoreConfig contains Google Drive document store configuration
type StoreConfig struct {
	CredentialsFile string  `toml:"credentials_file"` // Service account credentials JSON path
	RootFolderID    string  `toml:"root_folder_id"`   // Drive folder holding the reference corpus
	RateLimit       float64 `toml:"rate_limit"`       // Requests per second against the Drive API (default: 8)
	RateBurst       int     `toml:"rate_burst"`       // Token bucket burst size (default: 4)
	Timeout         string  `toml:"timeout"`          // Per-call timeout as duration string (default: "2m")
}

// CatalogConfig contains the static policy index configuration
type CatalogConfig struct {
	Path string `toml:"path"` // YAML file listing the reference document descriptors
}

// ContentConfig contains document content retrieval configuration
type ContentConfig struct {
	DownloadConcurrency int `toml:"download_concurrency"` // Parallel downloads in the drain loop (default: 6)
}

// ReasoningConfig contains reasoning dispatch configuration
type ReasoningConfig struct {
	Concurrency int `toml:"concurrency"` // Calls in flight against the reasoning capability (default: 3)
	MaxRetries  int `toml:"max_retries"` // Retry attempts per call before surfacing failure (default: 3)
}

// PipelineConfig contains evidence pipeline batching configuration
type PipelineConfig struct {
	QuestionBatchSize int `toml:"question_batch_size"` // Questions processed concurrently per batch (default: 3)
	MaxCandidates     int `toml:"max_candidates"`      // Ranked documents considered per question (default: 10)
	FetchConcurrency  int `toml:"fetch_concurrency"`   // Content fetches in flight per question (default: 8)
	JudgeConcurrency  int `toml:"judge_concurrency"`   // Judgment calls in flight per question (default: 5)
}

// CacheConfig contains cache maintenance configuration
type CacheConfig struct {
	SweepSchedule string `toml:"sweep_schedule"` // Cron schedule for the expired-entry sweep (default: "@every 2m")
}

// WebSocketConfig contains configuration for WebSocket progress streaming
type WebSocketConfig struct {
	MinLevel      string   `toml:"min_level"`      // Minimum log level to broadcast ("debug", "info", "warn", "error")
	AllowedEvents []string `toml:"allowed_events"` // Whitelist of event types to broadcast. Empty list allows all events.
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for reasoning calls (default: "gemini-3-flash-preview")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "4s" for 15 RPM)
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.2)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Model for reasoning calls (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 8192)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.2)
}

// LLMProvider represents the reasoning provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all reasoning providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // Default provider: "gemini" or "claude" (default: "gemini")
}

// NewDefaultConfig creates a configuration with default values
// Technical parameters (cache TTLs, inter-batch pauses, chunk sizes) are
// hardcoded in their services for production stability. Only user-facing
// settings are exposed in probo.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05.000",
		},
		Store: StoreConfig{
			CredentialsFile: "./credentials.json",
			RateLimit:       8,
			RateBurst:       4,
			Timeout:         "2m",
		},
		Catalog: CatalogConfig{
			Path: "./catalog.yaml",
		},
		Content: ContentConfig{
			DownloadConcurrency: 6,
		},
		Reasoning: ReasoningConfig{
			Concurrency: 3,
			MaxRetries:  3,
		},
		Pipeline: PipelineConfig{
			QuestionBatchSize: 3,
			MaxCandidates:     10,
			FetchConcurrency:  8,
			JudgeConcurrency:  5,
		},
		Cache: CacheConfig{
			SweepSchedule: "@every 2m",
		},
		WebSocket: WebSocketConfig{
			MinLevel:      "info",
			AllowedEvents: []string{},
		},
		Gemini: GeminiConfig{
			Model:       "gemini-3-flash-preview",
			Timeout:     "5m",
			RateLimit:   "4s",
			Temperature: 0.2,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Timeout:     "5m",
			RateLimit:   "1s",
			Temperature: 0.2,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env -> CLI. Later files override
// earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: PROBO_ENV, fallback: GO_ENV)
	if env := os.Getenv("PROBO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("PROBO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PROBO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging configuration
	if level := os.Getenv("PROBO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("PROBO_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("PROBO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			trimmed := strings.TrimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Store configuration
	if credentials := os.Getenv("PROBO_STORE_CREDENTIALS_FILE"); credentials != "" {
		config.Store.CredentialsFile = credentials
	}
	if rootFolder := os.Getenv("PROBO_STORE_ROOT_FOLDER_ID"); rootFolder != "" {
		config.Store.RootFolderID = rootFolder
	}
	if rateLimit := os.Getenv("PROBO_STORE_RATE_LIMIT"); rateLimit != "" {
		if rl, err := strconv.ParseFloat(rateLimit, 64); err == nil {
			config.Store.RateLimit = rl
		}
	}
	if timeout := os.Getenv("PROBO_STORE_TIMEOUT"); timeout != "" {
		if _, err := time.ParseDuration(timeout); err == nil {
			config.Store.Timeout = timeout
		}
	}

	// Catalog configuration
	if catalogPath := os.Getenv("PROBO_CATALOG_PATH"); catalogPath != "" {
		config.Catalog.Path = catalogPath
	}

	// Content configuration
	if concurrency := os.Getenv("PROBO_CONTENT_DOWNLOAD_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil && c > 0 {
			config.Content.DownloadConcurrency = c
		}
	}

	// Reasoning configuration
	if concurrency := os.Getenv("PROBO_REASONING_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil && c > 0 {
			config.Reasoning.Concurrency = c
		}
	}
	if retries := os.Getenv("PROBO_REASONING_MAX_RETRIES"); retries != "" {
		if r, err := strconv.Atoi(retries); err == nil && r >= 0 {
			config.Reasoning.MaxRetries = r
		}
	}

	// Pipeline configuration
	if batchSize := os.Getenv("PROBO_PIPELINE_QUESTION_BATCH_SIZE"); batchSize != "" {
		if b, err := strconv.Atoi(batchSize); err == nil && b > 0 {
			config.Pipeline.QuestionBatchSize = b
		}
	}
	if maxCandidates := os.Getenv("PROBO_PIPELINE_MAX_CANDIDATES"); maxCandidates != "" {
		if m, err := strconv.Atoi(maxCandidates); err == nil && m > 0 {
			config.Pipeline.MaxCandidates = m
		}
	}

	// Cache configuration
	if schedule := os.Getenv("PROBO_CACHE_SWEEP_SCHEDULE"); schedule != "" {
		config.Cache.SweepSchedule = schedule
	}

	// LLM configuration
	if provider := os.Getenv("PROBO_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}
	if apiKey := os.Getenv("PROBO_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("PROBO_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if apiKey := os.Getenv("PROBO_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if model := os.Getenv("PROBO_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ResolveAPIKey resolves an API key by name with environment variable priority
// Resolution order: environment variables → config fallback → error
func ResolveAPIKey(name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key": {"PROBO_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"claude_api_key": {"PROBO_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
	}

	if envVarNames, hasMappedEnv := keyToEnvMapping[name]; hasMappedEnv {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}

// ValidateSweepSchedule validates a cache sweep schedule expression
func ValidateSweepSchedule(schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// DeepCloneConfig creates a deep copy of the Config struct
func DeepCloneConfig(c *Config) *Config {
	if c == nil {
		return nil
	}

	clone := *c

	if len(c.Logging.Output) > 0 {
		clone.Logging.Output = make([]string, len(c.Logging.Output))
		copy(clone.Logging.Output, c.Logging.Output)
	}

	if len(c.WebSocket.AllowedEvents) > 0 {
		clone.WebSocket.AllowedEvents = make([]string, len(c.WebSocket.AllowedEvents))
		copy(clone.WebSocket.AllowedEvents, c.WebSocket.AllowedEvents)
	}

	return &clone
}
