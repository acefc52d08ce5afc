package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/interfaces"
)

// ClaudeService implements the reasoning provider contract using the
// Anthropic Claude API.
type ClaudeService struct {
	config    *common.ClaudeConfig
	logger    arbor.ILogger
	client    anthropic.Client
	pacer     *Pacer
	timeout   time.Duration
	maxTokens int
}

// Compile-time interface assertion
var _ interfaces.LLMService = (*ClaudeService)(nil)

// NewClaudeService creates a new Claude reasoning service instance.
func NewClaudeService(cfg *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeService, error) {
	apiKey, err := common.ResolveAPIKey("claude_api_key", cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Anthropic API key is required for the reasoning service (set via PROBO_CLAUDE_API_KEY, ANTHROPIC_API_KEY, or claude.api_key in config): %w", err)
	}

	if cfg.Model == "" {
		cfg.Model = "claude-haiku-3-5-20241022"
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", cfg.Timeout, err)
	}

	var interval time.Duration
	if cfg.RateLimit != "" {
		interval, err = time.ParseDuration(cfg.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("invalid rate limit duration '%s': %w", cfg.RateLimit, err)
		}
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	service := &ClaudeService{
		config:    cfg,
		logger:    logger,
		client:    client,
		pacer:     NewPacer(interval),
		timeout:   timeout,
		maxTokens: maxTokens,
	}

	logger.Info().
		Str("model", cfg.Model).
		Dur("timeout", timeout).
		Dur("call_interval", interval).
		Int("max_tokens", maxTokens).
		Float32("temperature", cfg.Temperature).
		Msg("Claude reasoning service initialized")

	return service, nil
}

// Generate sends a single prompt and returns the model's text response.
func (s *ClaudeService) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	if err := s.pacer.Wait(ctx); err != nil {
		return "", err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if s.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.config.Temperature))
	}

	resp, err := s.client.Messages.New(timeoutCtx, params)
	if err != nil {
		if IsRateLimitError(err) {
			s.pacer.RecordRateLimitDelay(ExtractRetryDelay(err))
		}
		s.logger.Warn().
			Err(err).
			Int("prompt_length", len(prompt)).
			Msg("Claude generation failed")
		return "", fmt.Errorf("claude generation failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("empty response from Claude API")
	}

	s.logger.Debug().
		Int("prompt_length", len(prompt)).
		Int("response_length", text.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Claude generation completed")

	return text.String(), nil
}

// HealthCheck verifies the Claude service can handle requests with a
// minimal probe.
func (s *ClaudeService) HealthCheck(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	response, err := s.Generate(probeCtx, "ping")
	if err != nil {
		return fmt.Errorf("claude probe failed: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return fmt.Errorf("claude probe returned empty response")
	}

	s.logger.Debug().Str("model", s.config.Model).Msg("Claude health check passed")
	return nil
}

// GetProvider returns the provider name for status reporting.
func (s *ClaudeService) GetProvider() string {
	return string(common.LLMProviderClaude)
}

// Close releases the client reference. The Claude client does not require
// explicit cleanup.
func (s *ClaudeService) Close() error {
	s.logger.Debug().Msg("Closing Claude reasoning service")
	s.client = anthropic.Client{}
	return nil
}
