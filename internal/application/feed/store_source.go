package feed

import (
	"context"
	"time"

	"github.com/penwyp/go-daystream/internal/core/model"
	"github.com/penwyp/go-daystream/internal/data/store"
)

// StoreSource reads items previously imported into the sqlite store
type StoreSource struct {
	store    *store.Store
	location *time.Location
}

// OpenStoreSource opens the database at path
func OpenStoreSource(path string, loc *time.Location) (*StoreSource, error) {
	s, err := store.New(path)
	if err != nil {
		return nil, err
	}
	return NewStoreSource(s, loc), nil
}

func NewStoreSource(s *store.Store, loc *time.Location) *StoreSource {
	if loc == nil {
		loc = time.Local
	}
	return &StoreSource{store: s, location: loc}
}

func (s *StoreSource) Load(ctx context.Context, kind model.Kind, day time.Time) ([]model.Item, error) {
	return s.store.ItemsOnDay(ctx, kind, day, s.location)
}

func (s *StoreSource) Days(ctx context.Context, kinds ...model.Kind) ([]store.DayCount, error) {
	return s.store.ActiveDays(ctx, s.location, kinds...)
}

func (s *StoreSource) Close() error {
	return s.store.Close()
}
