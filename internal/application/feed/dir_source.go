package feed

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/penwyp/go-daystream/internal/core/model"
	"github.com/penwyp/go-daystream/internal/core/timeline"
	"github.com/penwyp/go-daystream/internal/data/cache"
	"github.com/penwyp/go-daystream/internal/data/parser"
	"github.com/penwyp/go-daystream/internal/data/scanner"
	"github.com/penwyp/go-daystream/internal/data/store"
	"github.com/penwyp/go-daystream/internal/util"
)

// DirSource reads export files from a data directory. Parsed files are kept
// in memory until they change on disk.
type DirSource struct {
	scanner  *scanner.FileScanner
	parser   *parser.Parser
	cache    cache.Cache
	location *time.Location

	mu        sync.Mutex
	lastStats *LoadStats
}

// NewDirSource creates a DirSource over dir
func NewDirSource(dir string, concurrency int, loc *time.Location) *DirSource {
	if loc == nil {
		loc = time.Local
	}
	return &DirSource{
		scanner:  scanner.NewFileScanner(dir),
		parser:   parser.NewParser(concurrency, timeline.NewBuilder(loc)),
		cache:    cache.NewMemoryCache(),
		location: loc,
	}
}

// LoadAll returns every item of the given kinds, merged by time with
// duplicate ids removed.
func (s *DirSource) LoadAll(ctx context.Context, kinds ...model.Kind) ([]model.Item, error) {
	start := time.Now()

	files, err := s.scanner.Scan()
	if err != nil {
		return nil, fmt.Errorf("failed to scan data directory: %w", err)
	}

	wanted := make(map[model.Kind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}

	var paths []string
	kindOf := make(map[string]model.Kind)
	for _, f := range files {
		if len(wanted) == 0 || wanted[f.Kind] {
			paths = append(paths, f.Path)
			kindOf[f.Path] = f.Kind
		}
	}

	stats := NewLoadStats()
	perFile := make(map[string][]model.Item, len(paths))
	var jobs []parser.Job
	for _, path := range paths {
		stats.IncrementTotal()
		result := s.cache.Get(path)
		if result.Found {
			stats.IncrementHit()
			perFile[path] = result.Items
			continue
		}
		stats.IncrementMiss(path, result.MissReason)
		jobs = append(jobs, parser.Job{File: path, Kind: kindOf[path]})
	}

	for result := range s.parser.ParseFiles(jobs) {
		if result.Error != nil {
			stats.IncrementFailure()
			util.LogWarn(fmt.Sprintf("Failed to parse %s: %v", result.File, result.Error))
			continue
		}
		perFile[result.File] = result.Items
		if err := s.cache.Set(result.File, result.Items); err != nil {
			util.LogDebug(fmt.Sprintf("Failed to cache %s: %v", result.File, err))
		}
	}

	stats.Log()
	s.mu.Lock()
	s.lastStats = stats
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Merge in path order so ties and duplicates resolve the same way every run.
	lists := make([][]model.Item, 0, len(paths))
	for _, path := range paths {
		lists = append(lists, perFile[path])
	}
	items := timeline.Dedup(timeline.Merge(lists...))

	util.LogDebug(fmt.Sprintf("Loaded %d items of %v from %d files (%d parsed), duration %v",
		len(items), kinds, len(paths), len(jobs), time.Since(start)))
	return items, nil
}

// LastStats returns the cache counters of the most recent load, or nil
func (s *DirSource) LastStats() *LoadStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStats
}

func (s *DirSource) Load(ctx context.Context, kind model.Kind, day time.Time) ([]model.Item, error) {
	items, err := s.LoadAll(ctx, kind)
	if err != nil {
		return nil, err
	}
	return timeline.FilterDay(items, day, s.location), nil
}

func (s *DirSource) Days(ctx context.Context, kinds ...model.Kind) ([]store.DayCount, error) {
	items, err := s.LoadAll(ctx, kinds...)
	if err != nil {
		return nil, err
	}
	return countDays(items, s.location), nil
}

func (s *DirSource) Invalidate(path string) {
	s.cache.Invalidate(path)
}

func (s *DirSource) Close() error {
	s.cache.Clear()
	return nil
}

func countDays(items []model.Item, loc *time.Location) []store.DayCount {
	days := make(map[string]*store.DayCount)
	for _, item := range items {
		key := item.Timestamp.In(loc).Format(util.DateLayout)
		dc, ok := days[key]
		if !ok {
			dc = &store.DayCount{Day: key, ByKind: make(map[model.Kind]int)}
			days[key] = dc
		}
		dc.Count++
		dc.ByKind[item.Kind]++
	}

	result := make([]store.DayCount, 0, len(days))
	for _, dc := range days {
		result = append(result, *dc)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Day > result[j].Day
	})
	return result
}
