package stream

import (
	"time"

	"github.com/penwyp/go-daystream/internal/core/model"
)

// SideItem is an entry of a cluster's secondary column: either a synthetic
// time marker or a wrapped bookmark/history item.
type SideItem struct {
	Marker    bool
	ID        string
	Timestamp time.Time
	Label     string
	Item      model.Item
}

// Kind returns model.KindMarker for markers and the wrapped item's kind otherwise.
func (s SideItem) Kind() model.Kind {
	if s.Marker {
		return model.KindMarker
	}
	return s.Item.Kind
}

// Cluster groups everything that happened inside one bucket.
type Cluster struct {
	Time         time.Time // bucket start
	PrimaryItems []model.Item
	SideItems    []SideItem
}

// Counts tallies the contents of a cluster list.
type Counts struct {
	Clusters int
	Primary  int
	Side     int // non-marker side items
	Markers  int
	ByKind   map[model.Kind]int
}

// Count tallies clusters, items per column and items per kind.
func Count(clusters []Cluster) Counts {
	c := Counts{Clusters: len(clusters), ByKind: make(map[model.Kind]int)}
	for _, cluster := range clusters {
		c.Primary += len(cluster.PrimaryItems)
		for _, item := range cluster.PrimaryItems {
			c.ByKind[item.Kind]++
		}
		for _, side := range cluster.SideItems {
			if side.Marker {
				c.Markers++
				continue
			}
			c.Side++
			c.ByKind[side.Item.Kind]++
		}
	}
	return c
}

// Items returns the number of real (non-marker) items across all columns.
func (c Counts) Items() int {
	return c.Primary + c.Side
}
