// Package telegram collects recent channel posts through a Telegram user
// session.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/channel-snapshot-bot/internal/core/domain"
	apperrors "github.com/lueurxax/channel-snapshot-bot/internal/core/errors"
	"github.com/lueurxax/channel-snapshot-bot/internal/core/links"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/observability"
)

// Message is one channel post as returned by the platform, newest first.
type Message struct {
	ID   int
	Text string
	Date time.Time
}

// ChannelInfo describes a resolved channel. Username is empty for
// channels without a public link.
type ChannelInfo struct {
	Username string
	Title    string
}

// History iterates a channel's messages from newest to oldest.
type History interface {
	Channel() ChannelInfo
	// Next returns the next older message, or false when the history is exhausted.
	Next(ctx context.Context) (Message, bool, error)
}

// Session is an open connection to the platform.
type Session interface {
	History(ctx context.Context, channel string) (History, error)
}

// Platform opens a session for the duration of fn and closes it on every
// exit path.
type Platform interface {
	Run(ctx context.Context, fn func(ctx context.Context, session Session) error) error
}

type Collector struct {
	platform Platform
	logger   *zerolog.Logger
}

func NewCollector(platform Platform, logger *zerolog.Logger) *Collector {
	return &Collector{platform: platform, logger: logger}
}

// Collect reads every channel back to cutoff inside a single session. A
// channel that cannot be read is skipped and reported in the returned
// source errors. The returned error is reserved for failures that affect
// the whole session, such as an unauthorized session or cancellation.
func (c *Collector) Collect(ctx context.Context, channels []string, cutoff time.Time) ([]domain.Item, []domain.SourceError, error) {
	var (
		items    []domain.Item
		failures []domain.SourceError
	)

	err := c.platform.Run(ctx, func(ctx context.Context, session Session) error {
		for _, channel := range channels {
			got, err := c.collectChannel(ctx, session, channel, cutoff)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}

				if apperrors.Is(err, apperrors.ErrNotAuthorized) {
					return err
				}

				key := domain.SourceKey{Kind: domain.KindTelegram, ID: channel}
				failures = append(failures, domain.SourceError{Key: key, Err: err})

				observability.CollectionErrors.WithLabelValues(domain.KindTelegram.String(), reason(err)).Inc()
				c.logger.Warn().Err(err).Str("channel", channel).Msg("Skipping channel")

				continue
			}

			observability.ItemsCollected.WithLabelValues(domain.KindTelegram.String(), channel).Add(float64(len(got)))
			c.logger.Debug().Str("channel", channel).Int("items", len(got)).Msg("Collected channel")

			items = append(items, got...)
		}

		return nil
	})
	if err != nil {
		return items, failures, fmt.Errorf("telegram session: %w", err)
	}

	return items, failures, nil
}

func (c *Collector) collectChannel(ctx context.Context, session Session, channel string, cutoff time.Time) ([]domain.Item, error) {
	history, err := session.History(ctx, channel)
	if err != nil {
		return nil, err
	}

	info := history.Channel()

	var items []domain.Item

	for {
		msg, ok, err := history.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", apperrors.ErrCollection, channel, err)
		}

		if !ok || msg.Date.Before(cutoff) {
			break
		}

		text := strings.TrimSpace(msg.Text)
		if text == "" {
			continue
		}

		items = append(items, domain.Item{
			SourceID:  channel,
			Kind:      domain.KindTelegram,
			Text:      text,
			Link:      links.TelegramPermalink(info.Username, msg.ID),
			Timestamp: msg.Date,
		})
	}

	return items, nil
}

func reason(err error) string {
	switch {
	case apperrors.Is(err, apperrors.ErrChannelNotFound):
		return "not_found"
	case apperrors.Is(err, apperrors.ErrChannelUnavailable):
		return "unavailable"
	case apperrors.Is(err, apperrors.ErrNotAChannel):
		return "not_a_channel"
	default:
		return "error"
	}
}
