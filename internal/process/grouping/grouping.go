// Package grouping partitions collected items by source.
package grouping

import "github.com/lueurxax/channel-snapshot-bot/internal/core/domain"

// Group partitions items by source key. Groups appear in the order their
// source was first seen and keep the items in input order. A source with
// no items has no group.
func Group(items []domain.Item) domain.Groups {
	index := make(map[domain.SourceKey]int)

	var groups domain.Groups

	for _, item := range items {
		key := item.Key()

		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, domain.SourceGroup{Key: key})
		}

		groups[i].Items = append(groups[i].Items, item)
	}

	return groups
}
