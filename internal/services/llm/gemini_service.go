package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/interfaces"
)

// GeminiService implements the reasoning provider contract using the
// Google Gemini API.
type GeminiService struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	pacer   *Pacer
	timeout time.Duration
}

// Compile-time interface assertion
var _ interfaces.LLMService = (*GeminiService)(nil)

// NewGeminiService creates a new Gemini reasoning service instance.
func NewGeminiService(cfg *common.GeminiConfig, logger arbor.ILogger) (*GeminiService, error) {
	apiKey, err := common.ResolveAPIKey("gemini_api_key", cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Gemini API key is required for the reasoning service (set via PROBO_GEMINI_API_KEY, GEMINI_API_KEY, or gemini.api_key in config): %w", err)
	}

	if cfg.Model == "" {
		cfg.Model = "gemini-3-flash-preview"
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

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config:  cfg,
		logger:  logger,
		client:  client,
		pacer:   NewPacer(interval),
		timeout: timeout,
	}

	logger.Info().
		Str("model", cfg.Model).
		Dur("timeout", timeout).
		Dur("call_interval", interval).
		Float32("temperature", cfg.Temperature).
		Msg("Gemini reasoning service initialized")

	return service, nil
}

// Generate sends a single prompt and returns the model's text response.
func (s *GeminiService) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	if err := s.pacer.Wait(ctx); err != nil {
		return "", err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.config.Temperature),
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := s.client.Models.GenerateContent(timeoutCtx, s.config.Model, contents, config)
	if err != nil {
		if IsRateLimitError(err) {
			s.pacer.RecordRateLimitDelay(ExtractRetryDelay(err))
		}
		s.logger.Warn().
			Err(err).
			Int("prompt_length", len(prompt)).
			Msg("Gemini generation failed")
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini API")
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty text in Gemini response")
	}

	s.logger.Debug().
		Int("prompt_length", len(prompt)).
		Int("response_length", len(text)).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini generation completed")

	return text, nil
}

// HealthCheck verifies the Gemini service can handle requests with a
// minimal probe.
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("genai client is not initialized")
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	response, err := s.Generate(probeCtx, "ping")
	if err != nil {
		return fmt.Errorf("gemini probe failed: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return fmt.Errorf("gemini probe returned empty response")
	}

	s.logger.Debug().Str("model", s.config.Model).Msg("Gemini health check passed")
	return nil
}

// GetProvider returns the provider name for status reporting.
func (s *GeminiService) GetProvider() string {
	return string(common.LLMProviderGemini)
}

// Close releases the client reference. The genai client does not require
// explicit cleanup.
func (s *GeminiService) Close() error {
	s.logger.Debug().Msg("Closing Gemini reasoning service")
	s.client = nil
	return nil
}
