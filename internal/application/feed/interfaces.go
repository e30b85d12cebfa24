package feed

import (
	"context"
	"time"

	"github.com/penwyp/go-daystream/internal/core/model"
	"github.com/penwyp/go-daystream/internal/data/store"
)

// Source provides normalized items for a calendar day
type Source interface {
	// Load returns items of kind on the calendar day of day
	Load(ctx context.Context, kind model.Kind, day time.Time) ([]model.Item, error)
	// Days lists calendar days holding items of the given kinds, most recent first
	Days(ctx context.Context, kinds ...model.Kind) ([]store.DayCount, error)
	// Close releases the source
	Close() error
}

// Invalidator is implemented by sources that cache file contents
type Invalidator interface {
	// Invalidate drops cached data for path
	Invalidate(path string)
}
