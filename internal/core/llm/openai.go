package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	apperrors "github.com/lueurxax/channel-snapshot-bot/internal/core/errors"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/config"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/observability"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/worker"
)

type openaiClient struct {
	client       *openai.Client
	defaultModel string
	timeout      time.Duration
	logger       *zerolog.Logger
	rateLimiter  *rate.Limiter

	// Circuit breaker state
	consecutiveFailures int
	circuitOpenUntil    time.Time
	now                 func() time.Time
	mu                  sync.Mutex
}

// NewOpenAI returns a Generator backed by the OpenAI chat completions API,
// or any server compatible with it when LLM_BASE_URL is set.
func NewOpenAI(cfg *config.Config, logger *zerolog.Logger) Generator {
	return newOpenAIClient(cfg, logger)
}

func newOpenAIClient(cfg *config.Config, logger *zerolog.Logger) *openaiClient {
	clientCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.LLMBaseURL, "/")
	}

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 1
	}

	return &openaiClient{
		client:       openai.NewClientWithConfig(clientCfg),
		defaultModel: cfg.LLMModel,
		timeout:      cfg.LLMTimeout,
		logger:       logger,
		rateLimiter:  rate.NewLimiter(rate.Limit(rps), rateLimiterBurst),
		now:          time.Now,
	}
}

func (c *openaiClient) checkCircuit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.now().Before(c.circuitOpenUntil) {
		return fmt.Errorf("%w until %v", apperrors.ErrCircuitBreakerOpen, c.circuitOpenUntil)
	}

	return nil
}

func (c *openaiClient) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures = 0
}

func (c *openaiClient) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures++
	if c.consecutiveFailures >= circuitBreakerThreshold {
		c.circuitOpenUntil = c.now().Add(circuitBreakerTimeout)
		c.logger.Warn().
			Int("consecutive_failures", c.consecutiveFailures).
			Time("open_until", c.circuitOpenUntil).
			Msg("Circuit breaker opened")
	}
}

func (c *openaiClient) Generate(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	if err := c.checkCircuit(); err != nil {
		return "", err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiter, err)
	}

	start := time.Now()

	var resp openai.ChatCompletionResponse

	err := worker.RunWithTimeout(ctx, c.timeout, func(ctx context.Context) error {
		var err error

		resp, err = c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: req.Prompt,
				},
			},
		})

		return err
	})

	observability.LLMRequestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())

	if err != nil {
		c.recordFailure()
		observability.LLMRequests.WithLabelValues(model, observability.StatusError).Inc()

		return "", fmt.Errorf(errOpenAIChatCompletion, err)
	}

	c.recordSuccess()
	observability.LLMRequests.WithLabelValues(model, observability.StatusSuccess).Inc()

	if len(resp.Choices) == 0 {
		return "", apperrors.ErrEmptyResponse
	}

	choice := resp.Choices[0]
	if choice.FinishReason == finishReasonLen {
		c.logger.Warn().
			Str(logKeyTask, req.Task).
			Str(logKeyModel, model).
			Int(logKeyLength, len(choice.Message.Content)).
			Msg(logMsgTruncated)
	}

	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", apperrors.ErrEmptyResponse
	}

	return content, nil
}
