// Package links decides which URLs may appear in a delivered report. Links
// are only ever taken from collected items and each one must match the
// permalink shape of its source kind.
package links

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/lueurxax/channel-snapshot-bot/internal/core/domain"
)

const telegramHost = "t.me"

var (
	urlRegex         = regexp.MustCompile(`https?://[^\s<>"{}|\\^\x60\[\]]+`)
	tgPermalinkRegex = regexp.MustCompile(`^https://t\.me/(?:c/(\d+)|([a-zA-Z][a-zA-Z0-9_]{3,}))/(\d+)$`)
)

// Allowlist reports whether link is an acceptable citation for an item of the given kind.
type Allowlist func(kind domain.SourceKind, link string) bool

// DefaultAllowlist applies the permalink shape of each source kind.
func DefaultAllowlist(kind domain.SourceKind, link string) bool {
	switch kind {
	case domain.KindTelegram:
		return IsTelegramPermalink(link)
	case domain.KindBlog:
		return IsWebURL(link)
	default:
		return false
	}
}

// IsTelegramPermalink matches https://t.me/<username>/<id> and https://t.me/c/<internal id>/<id>.
func IsTelegramPermalink(link string) bool {
	return tgPermalinkRegex.MatchString(link)
}

// IsWebURL reports whether link is an absolute http(s) URL with a host.
func IsWebURL(link string) bool {
	if link == "" || strings.ContainsAny(link, " \t\r\n") {
		return false
	}

	u, err := url.Parse(link)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	return u.Host != "" && u.Hostname() != ""
}

// TelegramPermalink builds the public permalink of a channel post. It
// returns an empty string for channels without a public username.
func TelegramPermalink(username string, messageID int) string {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" || messageID <= 0 {
		return ""
	}

	return fmt.Sprintf("https://%s/%s/%d", telegramHost, username, messageID)
}

// Collect gathers the links of items that pass allow, deduplicated in
// first-seen order and capped at limit. Links are returned verbatim.
func Collect(items []domain.Item, allow Allowlist, limit int) []string {
	if limit <= 0 {
		return nil
	}

	if allow == nil {
		allow = DefaultAllowlist
	}

	seen := make(map[string]bool)

	var out []string

	for _, item := range items {
		if !item.HasLink() {
			continue
		}

		link := item.Link
		if seen[link] || !allow(item.Kind, link) {
			continue
		}

		seen[link] = true
		out = append(out, link)

		if len(out) == limit {
			break
		}
	}

	return out
}

// ExtractURLs returns every http(s) URL found in text, in order of appearance.
func ExtractURLs(text string) []string {
	matches := urlRegex.FindAllString(text, -1)

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimRight(m, ".,;:!?)"))
	}

	return out
}
