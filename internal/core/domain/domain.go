package domain

import (
	"strings"
	"time"
)

// SourceKind identifies where a collected item came from.
type SourceKind string

// Source kinds.
const (
	KindTelegram SourceKind = "telegram"
	KindBlog     SourceKind = "blog"
)

// String returns the kind name used in logs and metrics.
func (k SourceKind) String() string {
	return string(k)
}

// SourceKey uniquely identifies a source across kinds. The same identifier
// may be used by a Telegram channel and a blog at once.
type SourceKey struct {
	Kind SourceKind
	ID   string
}

func (k SourceKey) String() string {
	return string(k.Kind) + ":" + k.ID
}

// Item is one post collected from a source within the lookback window.
// Link is empty when the source has no public permalink for the post.
type Item struct {
	SourceID  string
	Kind      SourceKind
	Text      string
	Link      string
	Timestamp time.Time
}

// Key returns the grouping key of the item's source.
func (i Item) Key() SourceKey {
	return SourceKey{Kind: i.Kind, ID: i.SourceID}
}

// HasLink reports whether the item carries a permalink.
func (i Item) HasLink() bool {
	return strings.TrimSpace(i.Link) != ""
}

// SourceGroup holds the items of a single source in collection order.
type SourceGroup struct {
	Key   SourceKey
	Items []Item
}

// Len returns the number of items in the group.
func (g SourceGroup) Len() int {
	return len(g.Items)
}

// Groups is an ordered list of source groups; order follows the first
// appearance of each source in the collected stream.
type Groups []SourceGroup

// TotalItems returns the number of items across all groups.
func (gs Groups) TotalItems() int {
	total := 0
	for _, g := range gs {
		total += len(g.Items)
	}

	return total
}

// AllItems flattens the groups back into a single slice, group by group.
func (gs Groups) AllItems() []Item {
	items := make([]Item, 0, gs.TotalItems())
	for _, g := range gs {
		items = append(items, g.Items...)
	}

	return items
}

// Report is the summary of one source ready for formatting. Links come
// only from collected items, never from generated text.
type Report struct {
	Key   SourceKey
	Label string
	Body  string
	Links []string
}

// Source is a configured source with its display label.
type Source struct {
	ID    string     `yaml:"id"`
	Label string     `yaml:"label"`
	Kind  SourceKind `yaml:"-"`
}

// Key returns the source key.
func (s Source) Key() SourceKey {
	return SourceKey{Kind: s.Kind, ID: s.ID}
}

// SourceError records a source that was skipped during collection.
type SourceError struct {
	Key SourceKey
	Err error
}

func (e SourceError) Error() string {
	return e.Key.String() + ": " + e.Err.Error()
}

func (e SourceError) Unwrap() error {
	return e.Err
}
