package feed

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/penwyp/go-daystream/internal/data/cache"
	"github.com/penwyp/go-daystream/internal/util"
)

// LoadStats counts cache usage while export files are loaded
type LoadStats struct {
	totalFiles  int64
	cacheHits   int64
	cacheMisses int64
	failures    int64

	mu          sync.Mutex
	missDetails []MissDetail
}

// MissDetail records why a file had to be parsed again
type MissDetail struct {
	FilePath string
	Reason   cache.CacheMissReason
}

func NewLoadStats() *LoadStats {
	return &LoadStats{}
}

func (s *LoadStats) IncrementTotal() {
	atomic.AddInt64(&s.totalFiles, 1)
}

func (s *LoadStats) IncrementHit() {
	atomic.AddInt64(&s.cacheHits, 1)
}

func (s *LoadStats) IncrementMiss(filePath string, reason cache.CacheMissReason) {
	atomic.AddInt64(&s.cacheMisses, 1)

	s.mu.Lock()
	s.missDetails = append(s.missDetails, MissDetail{FilePath: filePath, Reason: reason})
	s.mu.Unlock()
}

func (s *LoadStats) IncrementFailure() {
	atomic.AddInt64(&s.failures, 1)
}

// GetStats returns the counters and the hit rate in percent
func (s *LoadStats) GetStats() (total, hits, misses, failures int64, hitRate float64) {
	total = atomic.LoadInt64(&s.totalFiles)
	hits = atomic.LoadInt64(&s.cacheHits)
	misses = atomic.LoadInt64(&s.cacheMisses)
	failures = atomic.LoadInt64(&s.failures)

	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	return
}

// MissReasons counts misses per reason
func (s *LoadStats) MissReasons() map[cache.CacheMissReason]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[cache.CacheMissReason]int)
	for _, d := range s.missDetails {
		counts[d.Reason]++
	}
	return counts
}

// Log writes the totals and, at debug level, the files that missed
func (s *LoadStats) Log() {
	total, hits, misses, failures, hitRate := s.GetStats()
	util.LogDebug(fmt.Sprintf("Export cache: %d files, hit rate %.1f%% (%d hits/%d misses/%d failures)",
		total, hitRate, hits, misses, failures))
	if misses == 0 {
		return
	}

	s.mu.Lock()
	details := make([]MissDetail, len(s.missDetails))
	copy(details, s.missDetails)
	s.mu.Unlock()

	sort.Slice(details, func(i, j int) bool { return details[i].FilePath < details[j].FilePath })
	for _, d := range details {
		util.LogDebug(fmt.Sprintf("  %s (%s)", d.FilePath, d.Reason))
	}
}
