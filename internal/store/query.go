package store

import (
	"log/slog"
	"sort"
)

// Sort keys accepted by QueryOptions.SortBy.
const (
	SortByName      = "name"
	SortByAddedAt   = "added_at"
	SortByUpdatedAt = "updated_at"
)

// QueryOptions selects, orders and truncates index entries.
// Empty filter fields match everything.
type QueryOptions struct {
	// Parent keeps entries whose parent equals it exactly.
	Parent string

	// PropertyName keeps entries having a property with this key.
	PropertyName string

	// PropertyValue keeps entries having a property with this exact value.
	PropertyValue string

	// SortBy is SortByName, SortByAddedAt or SortByUpdatedAt. An unknown
	// key logs a warning and leaves name order in place.
	SortBy string

	// Descending reverses the sort.
	Descending bool

	// Limit truncates the result when positive.
	Limit int
}

// Query returns the entries of ix matching opts. Filters combine with AND;
// the result is filtered, then sorted, then truncated.
func Query(ix *ClassIndex, opts QueryOptions) []*IndexEntry {
	results := make([]*IndexEntry, 0)
	for _, name := range ix.Names() {
		e := ix.Entries[name]
		if matches(e, opts) {
			results = append(results, e)
		}
	}

	if opts.SortBy != "" {
		if less := lessFunc(opts.SortBy); less != nil {
			sort.SliceStable(results, func(i, j int) bool {
				if opts.Descending {
					return less(results[j], results[i])
				}
				return less(results[i], results[j])
			})
		} else {
			slog.Warn("unknown sort field", slog.String("sort_by", opts.SortBy))
		}
	}

	if opts.Limit > 0 && opts.Limit < len(results) {
		results = results[:opts.Limit]
	}
	return results
}

func matches(e *IndexEntry, opts QueryOptions) bool {
	if opts.Parent != "" && e.Class.Parent != opts.Parent {
		return false
	}
	if opts.PropertyName != "" && !e.Class.HasPropertyNamed(opts.PropertyName) {
		return false
	}
	if opts.PropertyValue != "" && !e.Class.HasPropertyValue(opts.PropertyValue) {
		return false
	}
	return true
}

func lessFunc(key string) func(a, b *IndexEntry) bool {
	switch key {
	case SortByName:
		return func(a, b *IndexEntry) bool { return a.Class.Name < b.Class.Name }
	case SortByAddedAt:
		return func(a, b *IndexEntry) bool { return a.AddedAt.Before(b.AddedAt) }
	case SortByUpdatedAt:
		return func(a, b *IndexEntry) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	default:
		return nil
	}
}

// ValidSortKey reports whether key is a recognised sort key.
func ValidSortKey(key string) bool {
	return lessFunc(key) != nil
}
