package llm

import "time"

// Error message templates
const (
	errRateLimiter          = "rate limiter error: %w"
	errOpenAIChatCompletion = "openai chat completion error: %w"
)

// Log key strings
const (
	logKeyTask   = "task"
	logKeyModel  = "model"
	logKeyLength = "length"
)

const (
	logMsgTruncated = "LLM output truncated due to max_tokens limit"
	finishReasonLen = "length"
)

const (
	circuitBreakerThreshold = 5
	circuitBreakerTimeout   = 1 * time.Minute
	rateLimiterBurst        = 1
)
