// Package blog collects recent posts from blog feeds.
package blog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/channel-snapshot-bot/internal/core/domain"
	apperrors "github.com/lueurxax/channel-snapshot-bot/internal/core/errors"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/observability"
)

// DefaultFeedURLTemplate is the Naver blog RSS endpoint.
const DefaultFeedURLTemplate = "https://rss.blog.naver.com/%s.xml"

type Collector struct {
	fetcher     FeedFetcher
	urlTemplate string
	location    *time.Location
	logger      *zerolog.Logger
}

// NewCollector builds a collector. Feed dates without a zone are read in loc.
func NewCollector(fetcher FeedFetcher, urlTemplate string, loc *time.Location, logger *zerolog.Logger) *Collector {
	if urlTemplate == "" {
		urlTemplate = DefaultFeedURLTemplate
	}

	if loc == nil {
		loc = time.UTC
	}

	return &Collector{
		fetcher:     fetcher,
		urlTemplate: urlTemplate,
		location:    loc,
		logger:      logger,
	}
}

// FeedURL returns the feed address of a blog.
func (c *Collector) FeedURL(blogID string) string {
	return fmt.Sprintf(c.urlTemplate, blogID)
}

// Collect fetches every blog's feed and keeps entries published at or
// after cutoff. A feed that fails is skipped and reported.
func (c *Collector) Collect(ctx context.Context, blogs []domain.Source, cutoff time.Time) ([]domain.Item, []domain.SourceError) {
	var (
		items    []domain.Item
		failures []domain.SourceError
	)

	for _, blog := range blogs {
		if ctx.Err() != nil {
			break
		}

		entries, skipped, err := c.collectBlog(ctx, blog.ID, cutoff)
		if err != nil {
			key := domain.SourceKey{Kind: domain.KindBlog, ID: blog.ID}
			failures = append(failures, domain.SourceError{Key: key, Err: fmt.Errorf("%w: %w", apperrors.ErrCollection, err)})

			observability.CollectionErrors.WithLabelValues(domain.KindBlog.String(), "feed").Inc()
			c.logger.Warn().Err(err).Str("blog", blog.ID).Msg("Skipping blog feed")

			continue
		}

		if skipped > 0 {
			c.logger.Debug().Str("blog", blog.ID).Int("skipped", skipped).Msg("Entries without publish time skipped")
		}

		observability.ItemsCollected.WithLabelValues(domain.KindBlog.String(), blog.ID).Add(float64(len(entries)))

		for _, e := range entries {
			items = append(items, e.Item())
		}
	}

	return items, failures
}

func (c *Collector) collectBlog(ctx context.Context, blogID string, cutoff time.Time) ([]Entry, int, error) {
	feed, err := c.fetcher.Fetch(ctx, c.FeedURL(blogID))
	if err != nil {
		return nil, 0, err
	}

	var (
		entries []Entry
		skipped int
	)

	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		entry, ok := newEntry(blogID, item, c.location)
		if !ok {
			skipped++
			continue
		}

		if entry.Published.Before(cutoff) || strings.TrimSpace(entry.Title+entry.Synopsis) == "" {
			continue
		}

		entries = append(entries, entry)
	}

	return entries, skipped, nil
}
