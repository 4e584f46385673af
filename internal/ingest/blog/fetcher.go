package blog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	apperrors "github.com/lueurxax/channel-snapshot-bot/internal/core/errors"
)

const (
	headerUserAgent  = "User-Agent"
	defaultUserAgent = "Mozilla/5.0 (compatible; ChannelSnapshotBot/1.0)"
	defaultTimeout   = 30 * time.Second
	fetcherBurst     = 1

	errFmtFetchFeed = "fetch feed: %w"
	errFmtParseFeed = "parse feed: %w"
)

var errRateLimiter = errors.New("rate limiter")

// FeedFetcher downloads and parses one feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error)
}

// HTTPFetcher fetches feeds over HTTP, spacing requests with a rate limiter.
type HTTPFetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	parser     *gofeed.Parser
	userAgent  string
}

func NewHTTPFetcher(timeout time.Duration, rps float64) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	return &HTTPFetcher{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, fetcherBurst),
		parser:     gofeed.NewParser(),
		userAgent:  defaultUserAgent,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", errRateLimiter, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}

	req.Header.Set(headerUserAgent, f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf(errFmtFetchFeed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", apperrors.ErrFeedStatus, resp.StatusCode)
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf(errFmtParseFeed, err)
	}

	return feed, nil
}
