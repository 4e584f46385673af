// Package delivery sends rendered reports to a chat in transport-sized
// chunks, waiting out rate limits instead of dropping chunks.
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/lueurxax/channel-snapshot-bot/internal/core/errors"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/htmlutils"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/observability"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/worker"
)

const (
	DefaultLimit       = 4000
	DefaultMinFraction = 0.6

	// backoffPadding is added to every retry-after delay.
	backoffPadding = time.Second
)

// Transport delivers one message. It returns *RateLimitError when the
// destination asks the caller to slow down.
type Transport interface {
	Send(ctx context.Context, destination, text string) error
}

// RateLimitError is returned by a Transport when the message was refused
// and may be retried after RetryAfter.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// State is a step of the per-chunk delivery state machine.
type State int

const (
	StatePending State = iota
	StateSending
	StateBackoff
	StateSent
	StateDone
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSending:
		return "sending"
	case StateBackoff:
		return "backoff"
	case StateSent:
		return "sent"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

type Options struct {
	Limit       int
	MinFraction float64
	// Balance closes and reopens HTML tags that span chunk boundaries.
	Balance bool
}

type Sender struct {
	transport Transport
	opts      Options
	logger    *zerolog.Logger

	sleep   func(ctx context.Context, d time.Duration) error
	onState func(state State, chunk int)
}

func NewSender(transport Transport, opts Options, logger *zerolog.Logger) *Sender {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}

	if opts.MinFraction <= 0 || opts.MinFraction >= 1 {
		opts.MinFraction = DefaultMinFraction
	}

	return &Sender{
		transport: transport,
		opts:      opts,
		logger:    logger,
		sleep:     worker.Wait,
		onState:   func(State, int) {},
	}
}

// Chunks returns the chunks Send would deliver for text. With Balance set,
// the tags closed and reopened at each boundary count against the limit:
// when a balanced chunk comes out too long the text is split again with
// the overflow taken off the budget.
func (s *Sender) Chunks(text string) []string {
	if !s.opts.Balance {
		return Split(text, s.opts.Limit, s.opts.MinFraction)
	}

	budget := s.opts.Limit

	for {
		chunks := htmlutils.BalanceChunks(Split(text, budget, s.opts.MinFraction))

		overflow := 0
		for _, chunk := range chunks {
			overflow = max(overflow, htmlutils.UTF16Len(chunk)-s.opts.Limit)
		}

		if overflow == 0 || budget-overflow <= 0 {
			return chunks
		}

		budget -= overflow
	}
}

// Send delivers text to destination chunk by chunk and returns how many
// chunks were delivered. Rate limits are waited out and the same chunk is
// retried until it goes through or ctx ends. Any other transport error
// stops delivery and is returned wrapped in ErrDelivery.
func (s *Sender) Send(ctx context.Context, destination, text string) (int, error) {
	if destination == "" {
		return 0, apperrors.ErrMissingDestination
	}

	chunks := s.Chunks(text)
	sent := 0

	for i, chunk := range chunks {
		s.onState(StatePending, i)

		if err := s.deliverChunk(ctx, destination, chunk, i, len(chunks)); err != nil {
			return sent, err
		}

		sent++

		s.onState(StateSent, i)
	}

	s.onState(StateDone, len(chunks))

	return sent, nil
}

func (s *Sender) deliverChunk(ctx context.Context, destination, chunk string, index, total int) error {
	for attempt := 1; ; attempt++ {
		s.onState(StateSending, index)

		err := s.transport.Send(ctx, destination, chunk)
		if err == nil {
			observability.DeliveryChunks.WithLabelValues(observability.StatusSuccess).Inc()
			return nil
		}

		var rateLimit *RateLimitError
		if !apperrors.As(err, &rateLimit) {
			observability.DeliveryChunks.WithLabelValues(observability.StatusError).Inc()

			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("delivery interrupted: %w", ctxErr)
			}

			return fmt.Errorf("%w: chunk %d/%d: %w", apperrors.ErrDelivery, index+1, total, err)
		}

		wait := rateLimit.RetryAfter + backoffPadding

		s.onState(StateBackoff, index)
		s.logger.Warn().
			Str("destination", destination).
			Int("chunk", index+1).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("Rate limited, backing off")
		observability.DeliveryRateLimitWaitSeconds.Observe(wait.Seconds())

		if err := s.sleep(ctx, wait); err != nil {
			return fmt.Errorf("delivery interrupted: %w", err)
		}
	}
}
