package timeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/go-daystream/internal/core/model"
	"github.com/penwyp/go-daystream/internal/util"
)

var (
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrMissingID        = errors.New("missing id")
)

// Accepted timestamp layouts, tried in order. Layouts without a zone are
// read in the builder's location.
var (
	zonedLayouts = []string{time.RFC3339Nano, time.RFC3339}
	localLayouts = []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04"}
)

// Builder normalizes source records into stream items, rejecting records
// that cannot be placed on a timeline.
type Builder struct {
	location *time.Location
}

// NewBuilder creates a builder; a nil location means time.Local.
func NewBuilder(loc *time.Location) *Builder {
	if loc == nil {
		loc = time.Local
	}
	return &Builder{location: loc}
}

// ParseTimestamp parses an ISO-8601 timestamp.
func (b *Builder) ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidTimestamp)
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, b.location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
}

// NewItem validates id and timestamp and builds an item of the given kind.
func (b *Builder) NewItem(kind model.Kind, id model.FlexibleID, timestamp string, payload any) (model.Item, error) {
	if id == "" {
		return model.Item{}, ErrMissingID
	}
	ts, err := b.ParseTimestamp(timestamp)
	if err != nil {
		return model.Item{}, err
	}
	return model.Item{
		ID:        id.String(),
		Timestamp: ts,
		Kind:      kind,
		Payload:   payload,
	}, nil
}

func (b *Builder) collect(kind model.Kind, n int, at func(int) (model.FlexibleID, string, any)) []model.Item {
	items := make([]model.Item, 0, n)
	skipped := 0
	for i := 0; i < n; i++ {
		id, ts, payload := at(i)
		item, err := b.NewItem(kind, id, ts, payload)
		if err != nil {
			skipped++
			util.LogDebug("Skip record", util.F("kind", kind), util.F("index", i), util.F("error", err))
			continue
		}
		items = append(items, item)
	}
	if skipped > 0 {
		util.LogDebugf("Rejected %d of %d %s records", skipped, n, kind)
	}
	return items
}

// FromMemos normalizes memos
func (b *Builder) FromMemos(memos []model.Memo) []model.Item {
	return b.collect(model.KindMemo, len(memos), func(i int) (model.FlexibleID, string, any) {
		return memos[i].ID, memos[i].Timestamp, memos[i]
	})
}

// FromConversation normalizes AI chat turns
func (b *Builder) FromConversation(turns []model.AIConversationItem) []model.Item {
	return b.collect(model.KindAI, len(turns), func(i int) (model.FlexibleID, string, any) {
		return turns[i].ID, turns[i].Timestamp, turns[i]
	})
}

// FromBookmarks normalizes bookmarks
func (b *Builder) FromBookmarks(bookmarks []model.Bookmark) []model.Item {
	return b.collect(model.KindBookmark, len(bookmarks), func(i int) (model.FlexibleID, string, any) {
		return bookmarks[i].ID, bookmarks[i].Timestamp, bookmarks[i]
	})
}

// FromHistory normalizes browser history, reading visit_time as the timestamp
func (b *Builder) FromHistory(entries []model.BrowserHistoryEntry) []model.Item {
	return b.collect(model.KindHistory, len(entries), func(i int) (model.FlexibleID, string, any) {
		return entries[i].ID, entries[i].VisitTime, entries[i]
	})
}

// Merge concatenates item lists and stable-sorts them by timestamp.
func Merge(lists ...[]model.Item) []model.Item {
	var totalSize int
	for _, l := range lists {
		totalSize += len(l)
	}

	merged := make([]model.Item, 0, totalSize)
	for _, l := range lists {
		merged = append(merged, l...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged
}

// Dedup drops items whose kind and id were already seen, keeping the first.
func Dedup(items []model.Item) []model.Item {
	if len(items) == 0 {
		return items
	}

	seen := make(map[string]bool, len(items))
	result := make([]model.Item, 0, len(items))
	for _, item := range items {
		key := item.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, item)
	}
	return result
}

// FilterDay keeps items on the same calendar day as day, in loc.
func FilterDay(items []model.Item, day time.Time, loc *time.Location) []model.Item {
	var filtered []model.Item
	for _, item := range items {
		if util.SameDay(item.Timestamp, day, loc) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
