package blog

import (
	"bytes"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/lueurxax/channel-snapshot-bot/internal/core/domain"
	"github.com/lueurxax/channel-snapshot-bot/internal/core/links"
)

const maxSynopsisRunes = 600

// inlineTags do not break words when removed.
var inlineTags = map[string]bool{
	"a": true, "b": true, "i": true, "u": true, "s": true, "em": true,
	"strong": true, "span": true, "font": true, "mark": true, "small": true,
}

// trackingParams are query parameters feeds append to entry links.
var trackingParams = []string{"fromRss", "trackingCode"}

// Entry is one published blog post.
type Entry struct {
	BlogID    string
	Title     string
	Synopsis  string
	Link      string
	Published time.Time
}

// Item normalizes the entry for grouping.
func (e Entry) Item() domain.Item {
	text := e.Title
	if e.Synopsis != "" {
		text += "\n" + e.Synopsis
	}

	return domain.Item{
		SourceID:  e.BlogID,
		Kind:      domain.KindBlog,
		Text:      strings.TrimSpace(text),
		Link:      e.Link,
		Timestamp: e.Published,
	}
}

// newEntry converts a feed item. It reports false when the item has no
// parseable publish time.
func newEntry(blogID string, item *gofeed.Item, loc *time.Location) (Entry, bool) {
	published, ok := publishedAt(item, loc)
	if !ok {
		return Entry{}, false
	}

	synopsis := item.Description
	if synopsis == "" {
		synopsis = item.Content
	}

	return Entry{
		BlogID:    blogID,
		Title:     cleanText(item.Title),
		Synopsis:  truncate(cleanText(synopsis), maxSynopsisRunes),
		Link:      entryLink(item),
		Published: published,
	}, true
}

func publishedAt(item *gofeed.Item, loc *time.Location) (time.Time, bool) {
	switch {
	case item.PublishedParsed != nil:
		return *item.PublishedParsed, true
	case item.UpdatedParsed != nil:
		return *item.UpdatedParsed, true
	}

	for _, raw := range []string{item.Published, item.Updated} {
		if strings.TrimSpace(raw) == "" {
			continue
		}

		if t, err := dateparse.ParseIn(strings.TrimSpace(raw), loc); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func entryLink(item *gofeed.Item) string {
	link := strings.TrimSpace(item.Link)
	if !links.IsWebURL(link) && links.IsWebURL(strings.TrimSpace(item.GUID)) {
		link = strings.TrimSpace(item.GUID)
	}

	if !links.IsWebURL(link) {
		return ""
	}

	return stripTracking(link)
}

func stripTracking(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.RawQuery == "" {
		return link
	}

	q := u.Query()
	for _, p := range trackingParams {
		q.Del(p)
	}

	u.RawQuery = q.Encode()

	return u.String()
}

// cleanText drops markup, collapses whitespace and normalizes to NFC.
func cleanText(s string) string {
	if s == "" {
		return ""
	}

	var buf bytes.Buffer

	tokenizer := html.NewTokenizer(strings.NewReader(s))

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return norm.NFC.String(strings.Join(strings.Fields(buf.String()), " "))
		case html.TextToken:
			buf.Write(tokenizer.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if !inlineTags[string(name)] {
				buf.WriteByte(' ')
			}
		}
	}
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	return strings.TrimSpace(string([]rune(s)[:limit])) + "…"
}
