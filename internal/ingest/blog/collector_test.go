package blog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/channel-snapshot-bot/internal/core/domain"
	apperrors "github.com/lueurxax/channel-snapshot-bot/internal/core/errors"
)

var (
	kst = time.FixedZone("KST", 9*60*60)
	now = time.Date(2026, 3, 2, 7, 0, 0, 0, kst)
)

const ranto28Feed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>메르의 블로그</title>
<link>https://blog.naver.com/ranto28</link>
<item>
  <title><![CDATA[반도체 사이클 점검]]></title>
  <link>https://blog.naver.com/ranto28/223000000002?fromRss=true&amp;trackingCode=rss</link>
  <description><![CDATA[<p>메모리 <b>가격</b>이 반등했다.</p><p>재고는   감소.</p>]]></description>
  <pubDate>Mon, 02 Mar 2026 06:10:00 +0900</pubDate>
</item>
<item>
  <title>어제 글</title>
  <link>https://blog.naver.com/ranto28/223000000001</link>
  <description>본문</description>
  <pubDate>Sun, 01 Mar 2026 08:00:00 +0900</pubDate>
</item>
<item>
  <title>오래된 글</title>
  <link>https://blog.naver.com/ranto28/222999999999</link>
  <description>본문</description>
  <pubDate>Fri, 27 Feb 2026 08:00:00 +0900</pubDate>
</item>
<item>
  <title>날짜 없는 글</title>
  <link>https://blog.naver.com/ranto28/222999999998</link>
</item>
</channel>
</rss>`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get(headerUserAgent))

		switch r.URL.Path {
		case "/ranto28.xml":
			w.Header().Set("Content-Type", "application/rss+xml")
			_, _ = fmt.Fprint(w, ranto28Feed)
		case "/broken.xml":
			_, _ = fmt.Fprint(w, "this is not a feed")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func newTestCollector(srv *httptest.Server) *Collector {
	logger := zerolog.Nop()

	return NewCollector(NewHTTPFetcher(5*time.Second, 0), srv.URL+"/%s.xml", kst, &logger)
}

func TestCollectKeepsEntriesInsideWindow(t *testing.T) {
	c := newTestCollector(newFeedServer(t))
	cutoff := now.Add(-24 * time.Hour)

	items, failures := c.Collect(context.Background(), []domain.Source{{ID: "ranto28", Kind: domain.KindBlog}}, cutoff)
	require.Empty(t, failures)
	require.Len(t, items, 2)

	for _, item := range items {
		assert.False(t, item.Timestamp.Before(cutoff))
		assert.Equal(t, domain.KindBlog, item.Kind)
		assert.Equal(t, "ranto28", item.SourceID)
	}

	assert.Equal(t, "반도체 사이클 점검\n메모리 가격이 반등했다. 재고는 감소.", items[0].Text)
	assert.Equal(t, "https://blog.naver.com/ranto28/223000000002", items[0].Link)
	assert.Equal(t, "어제 글\n본문", items[1].Text)
}

func TestCollectSkipsFailingFeeds(t *testing.T) {
	c := newTestCollector(newFeedServer(t))

	blogs := []domain.Source{
		{ID: "missing", Kind: domain.KindBlog},
		{ID: "broken", Kind: domain.KindBlog},
		{ID: "ranto28", Kind: domain.KindBlog},
	}

	items, failures := c.Collect(context.Background(), blogs, now.Add(-24*time.Hour))

	assert.Len(t, items, 2)
	require.Len(t, failures, 2)

	assert.Equal(t, domain.SourceKey{Kind: domain.KindBlog, ID: "missing"}, failures[0].Key)
	assert.ErrorIs(t, failures[0], apperrors.ErrFeedStatus)
	assert.ErrorIs(t, failures[1], apperrors.ErrCollection)
	assert.Equal(t, "broken", failures[1].Key.ID)
}

func TestCollectStopsWhenCanceled(t *testing.T) {
	c := newTestCollector(newFeedServer(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, failures := c.Collect(ctx, []domain.Source{{ID: "ranto28"}}, now.Add(-24*time.Hour))
	assert.Empty(t, items)
	assert.Empty(t, failures)
}

func TestFeedURL(t *testing.T) {
	logger := zerolog.Nop()
	c := NewCollector(nil, "", nil, &logger)

	assert.Equal(t, "https://rss.blog.naver.com/ranto28.xml", c.FeedURL("ranto28"))
}

func TestPublishedAtFallsBackToDateparse(t *testing.T) {
	item := &gofeed.Item{Published: "2026-03-02 06:10:00"}

	got, ok := publishedAt(item, kst)
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2026, 3, 2, 6, 10, 0, 0, kst)))

	_, ok = publishedAt(&gofeed.Item{Published: "not a date"}, kst)
	assert.False(t, ok)

	updated := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	got, ok = publishedAt(&gofeed.Item{UpdatedParsed: &updated}, kst)
	require.True(t, ok)
	assert.Equal(t, updated, got)
}

func TestEntryLinkFallsBackToGUID(t *testing.T) {
	assert.Equal(t, "https://blog.naver.com/a/1", entryLink(&gofeed.Item{GUID: "https://blog.naver.com/a/1"}))
	assert.Empty(t, entryLink(&gofeed.Item{Link: "javascript:void(0)", GUID: "urn:uuid:1"}))
	assert.Equal(t, "https://example.com/p?id=3", entryLink(&gofeed.Item{Link: "https://example.com/p?id=3&trackingCode=rss"}))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "제목 & 부제", cleanText("<h1>제목</h1> &amp; 부제"))
	assert.Equal(t, "", cleanText(""))

	// U+1100 U+1161 (conjoining jamo) compose to U+AC00.
	assert.Equal(t, "\uac00", cleanText("\u1100\u1161"))

	long := strings.Repeat("가", maxSynopsisRunes+10)
	assert.Equal(t, maxSynopsisRunes+1, len([]rune(truncate(long, maxSynopsisRunes))))
}
