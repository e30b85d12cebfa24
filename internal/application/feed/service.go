package feed

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/penwyp/go-daystream/internal/config"
	"github.com/penwyp/go-daystream/internal/core/constants"
	"github.com/penwyp/go-daystream/internal/core/model"
	"github.com/penwyp/go-daystream/internal/core/stream"
	"github.com/penwyp/go-daystream/internal/data/store"
	"github.com/penwyp/go-daystream/internal/util"
)

// Config contains configuration for the feed service
type Config struct {
	Stream       string // dashboard, ai
	Source       string // dir, store
	DataDir      string
	DBPath       string
	Location     *time.Location
	Concurrency  int
	BucketSize   time.Duration
	GapThreshold time.Duration
}

// Validate fills defaults and rejects unknown streams or sources
func (c *Config) Validate() error {
	if c.Stream == "" {
		c.Stream = config.StreamDashboard
	}
	if c.Source == "" {
		c.Source = config.SourceDir
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}
	if c.BucketSize == 0 {
		c.BucketSize = constants.BucketSize
	}
	if c.GapThreshold == 0 {
		c.GapThreshold = constants.GapThreshold
	}

	switch c.Stream {
	case config.StreamDashboard, config.StreamAI:
	default:
		return fmt.Errorf("invalid stream '%s' (expected dashboard or ai)", c.Stream)
	}
	switch c.Source {
	case config.SourceDir, config.SourceStore:
	default:
		return fmt.Errorf("invalid source '%s' (expected dir or store)", c.Source)
	}
	return nil
}

// PrimaryKind returns the kind shown in the main column of the stream
func (c *Config) PrimaryKind() model.Kind {
	if c.Stream == config.StreamAI {
		return model.KindAI
	}
	return model.KindMemo
}

// SecondaryKinds lists the kinds shown in the side column, in merge order
var SecondaryKinds = []model.Kind{model.KindBookmark, model.KindHistory}

// Service builds the clustered stream for a day
type Service struct {
	config Config
	source Source
	memo   *stream.Memo
}

// NewService creates a service over an existing source
func NewService(cfg Config, source Source) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clusterer := stream.NewClusterer(cfg.Location)
	clusterer.BucketSize = cfg.BucketSize
	clusterer.GapThreshold = cfg.GapThreshold

	return &Service{
		config: cfg,
		source: source,
		memo:   stream.NewMemo(clusterer),
	}, nil
}

// Open creates a service with the source named by cfg.Source
func Open(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var source Source
	switch cfg.Source {
	case config.SourceStore:
		s, err := OpenStoreSource(cfg.DBPath, cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		source = s
	default:
		source = NewDirSource(cfg.DataDir, cfg.Concurrency, cfg.Location)
	}

	return NewService(cfg, source)
}

func (s *Service) Config() Config {
	return s.config
}

// Build loads the primary and secondary kinds for day concurrently and
// clusters them. Unchanged inputs return the previous result.
func (s *Service) Build(ctx context.Context, day time.Time) ([]stream.Cluster, error) {
	start := time.Now()

	var primary []model.Item
	secondary := make([][]model.Item, len(SecondaryKinds))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.source.Load(gctx, s.config.PrimaryKind(), day)
		if err != nil {
			return fmt.Errorf("load %s: %w", s.config.PrimaryKind(), err)
		}
		primary = items
		return nil
	})
	for i, kind := range SecondaryKinds {
		i, kind := i, kind
		g.Go(func() error {
			items, err := s.source.Load(gctx, kind, day)
			if err != nil {
				return fmt.Errorf("load %s: %w", kind, err)
			}
			secondary[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	clusters := s.memo.Cluster(primary, day, secondary...)

	util.LogDebug(fmt.Sprintf("Built %s stream for %s: %d clusters, duration %v",
		s.config.Stream, day.In(s.config.Location).Format(util.DateLayout), len(clusters), time.Since(start)))
	return clusters, nil
}

// Days lists days with activity in any kind the stream shows
func (s *Service) Days(ctx context.Context) ([]store.DayCount, error) {
	kinds := append([]model.Kind{s.config.PrimaryKind()}, SecondaryKinds...)
	return s.source.Days(ctx, kinds...)
}

// Invalidate drops cached data for a changed file
func (s *Service) Invalidate(path string) {
	if inv, ok := s.source.(Invalidator); ok {
		inv.Invalidate(path)
	}
}

// CacheStats reports stream cache hits and misses
func (s *Service) CacheStats() (hits, misses int) {
	return s.memo.Stats()
}

func (s *Service) Close() error {
	return s.source.Close()
}
