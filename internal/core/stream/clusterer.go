package stream

import (
	"fmt"
	"sort"
	"time"

	"github.com/penwyp/go-daystream/internal/core/constants"
	"github.com/penwyp/go-daystream/internal/core/model"
	"github.com/penwyp/go-daystream/internal/util"
)

// Clusterer turns one day of heterogeneous items into time-bucketed clusters.
// It is stateless; a single value may be shared between goroutines.
type Clusterer struct {
	// BucketSize is the wall-clock bucket width. It should divide a day evenly.
	BucketSize time.Duration
	// GapThreshold is the silence after which a marker precedes a side item.
	GapThreshold time.Duration
	// Location defines calendar days and bucket boundaries. When nil the
	// location of the requested day is used.
	Location *time.Location
}

// NewClusterer returns a clusterer with the default bucket and gap thresholds.
func NewClusterer(loc *time.Location) *Clusterer {
	return &Clusterer{
		BucketSize:   constants.BucketSize,
		GapThreshold: constants.GapThreshold,
		Location:     loc,
	}
}

type entry struct {
	item model.Item
	side bool
}

type bucket struct {
	key     time.Time
	primary []model.Item
	side    []model.Item
}

// Cluster filters primary and secondary items to the calendar day of day,
// merges them chronologically and groups them into buckets. Each bucket's
// side column is interleaved with time markers. Inputs are not modified.
func (c *Clusterer) Cluster(primary []model.Item, day time.Time, secondary ...[]model.Item) []Cluster {
	loc := c.location(day)

	total := len(primary)
	for _, set := range secondary {
		total += len(set)
	}
	entries := make([]entry, 0, total)

	for _, item := range primary {
		if util.SameDay(item.Timestamp, day, loc) {
			entries = append(entries, entry{item: item})
		}
	}
	for _, set := range secondary {
		for _, item := range set {
			if util.SameDay(item.Timestamp, day, loc) {
				entries = append(entries, entry{item: item, side: true})
			}
		}
	}

	if len(entries) == 0 {
		return []Cluster{}
	}

	// Equal timestamps keep their input order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].item.Timestamp.Before(entries[j].item.Timestamp)
	})

	buckets := make(map[int64]*bucket)
	for _, e := range entries {
		key := c.BucketKey(e.item.Timestamp, loc)
		b, ok := buckets[key.UnixNano()]
		if !ok {
			b = &bucket{key: key}
			buckets[key.UnixNano()] = b
		}
		if e.side {
			b.side = append(b.side, e.item)
		} else {
			b.primary = append(b.primary, e.item)
		}
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].key.Before(ordered[j].key)
	})

	clusters := make([]Cluster, 0, len(ordered))
	for _, b := range ordered {
		clusters = append(clusters, Cluster{
			Time:         b.key,
			PrimaryItems: b.primary,
			SideItems:    c.interleave(b, loc),
		})
	}

	util.LogDebugf("Clustered %d items into %d clusters for %s",
		len(entries), len(clusters), day.In(loc).Format(util.DateLayout))
	return clusters
}

// interleave builds the side column of a bucket, inserting markers before the
// first side item when it starts after the bucket boundary and before any item
// that follows a silence longer than GapThreshold.
func (c *Clusterer) interleave(b *bucket, loc *time.Location) []SideItem {
	if len(b.side) == 0 {
		if len(b.primary) == 0 {
			return nil
		}
		return []SideItem{c.marker(b.key, b.key, 0, loc)}
	}

	sideItems := make([]SideItem, 0, len(b.side)+1)
	last := b.key
	for i, item := range b.side {
		if i == 0 && item.Timestamp.After(last) {
			sideItems = append(sideItems, c.marker(b.key, last, len(sideItems), loc))
		} else if item.Timestamp.Sub(last) > c.GapThreshold {
			sideItems = append(sideItems, c.marker(b.key, item.Timestamp, len(sideItems), loc))
		}
		sideItems = append(sideItems, SideItem{
			ID:        item.ID,
			Timestamp: item.Timestamp,
			Item:      item,
		})
		last = item.Timestamp
	}
	return sideItems
}

// marker ids are derived from the bucket and position, so they are unique
// within one result and identical across recomputations of the same input.
func (c *Clusterer) marker(bucketKey, at time.Time, position int, loc *time.Location) SideItem {
	return SideItem{
		Marker:    true,
		ID:        fmt.Sprintf("marker-%d-%d", bucketKey.UnixMilli(), position),
		Timestamp: at,
		Label:     at.In(loc).Format(constants.MarkerLabelLayout),
	}
}

// BucketKey floors t to its wall-clock bucket in loc, zeroing seconds.
func (c *Clusterer) BucketKey(t time.Time, loc *time.Location) time.Time {
	size := int(c.BucketSize / time.Minute)
	if size < 1 {
		size = 1
	}

	local := t.In(loc)
	minuteOfDay := local.Hour()*60 + local.Minute()
	floored := minuteOfDay / size * size

	y, m, d := local.Date()
	return time.Date(y, m, d, floored/60, floored%60, 0, 0, loc)
}

func (c *Clusterer) location(day time.Time) *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return day.Location()
}
