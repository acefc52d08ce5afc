package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/common"
)

func newTestConfig() *common.Config {
	return common.NewDefaultConfig()
}

func testLogger() arbor.ILogger {
	return common.GetLogger()
}

func TestPacerDisabledDoesNotBlock(t *testing.T) {
	pacer := NewPacer(0)

	start := time.Now()
	for i := 0; i < 5; i++ {
		assert.NoError(t, pacer.Wait(context.Background()))
	}

	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPacerEnforcesInterval(t *testing.T) {
	pacer := NewPacer(50 * time.Millisecond)

	start := time.Now()
	assert.NoError(t, pacer.Wait(context.Background()))
	assert.NoError(t, pacer.Wait(context.Background()))

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestPacerRateLimitDelayRespectsContext(t *testing.T) {
	pacer := NewPacer(0)
	pacer.RecordRateLimitDelay(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := pacer.Wait(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "429 status",
			err:      errors.New("Error 429, Message: rate limited"),
			expected: true,
		},
		{
			name:     "resource exhausted",
			err:      errors.New("Status: RESOURCE_EXHAUSTED"),
			expected: true,
		},
		{
			name:     "quota message",
			err:      errors.New("quota exceeded for metric"),
			expected: true,
		},
		{
			name:     "unrelated error",
			err:      errors.New("connection refused"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRateLimitError(tt.err))
		})
	}
}

func TestExtractRetryDelay(t *testing.T) {
	err := errors.New("Error 429, Message: You exceeded your current quota. Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED")

	delay := ExtractRetryDelay(err)

	assert.InDelta(t, 45.387, delay.Seconds(), 0.001)
}

func TestExtractRetryDelayVariants(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected time.Duration
	}{
		{
			name:     "retryDelay field",
			err:      errors.New("retryDelay: 30s"),
			expected: 30 * time.Second,
		},
		{
			name:     "no delay in message",
			err:      errors.New("Error 429"),
			expected: 0,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractRetryDelay(tt.err))
		})
	}
}

func TestNewLLMServiceRejectsUnknownProvider(t *testing.T) {
	cfg := newTestConfig()
	cfg.LLM.DefaultProvider = "openai"

	service, err := NewLLMService(cfg, testLogger())

	assert.Nil(t, service)
	assert.ErrorContains(t, err, "invalid reasoning provider")
}
