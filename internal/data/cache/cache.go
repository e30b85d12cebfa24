package cache

import (
	"fmt"
	"sync"

	"github.com/penwyp/go-daystream/internal/core/model"
	"github.com/penwyp/go-daystream/internal/util"
)

type CacheMissReason int

const (
	MissReasonNone CacheMissReason = iota
	MissReasonError
	MissReasonSize
	MissReasonModTime
	MissReasonFingerprint
	MissReasonNotFound
)

func (r CacheMissReason) String() string {
	switch r {
	case MissReasonNone:
		return "none"
	case MissReasonError:
		return "error"
	case MissReasonSize:
		return "size"
	case MissReasonModTime:
		return "modtime"
	case MissReasonFingerprint:
		return "fingerprint"
	case MissReasonNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

type CacheResult struct {
	Items      []model.Item
	Found      bool
	MissReason CacheMissReason
}

// Cache holds normalized items per export file.
type Cache interface {
	Get(path string) CacheResult
	Set(path string, items []model.Item) error
	Invalidate(path string)
	Clear()
}

type entry struct {
	fingerprint util.FileFingerprint
	items       []model.Item
}

// MemoryCache keeps parsed files in memory and drops an entry as soon as the
// file on disk no longer matches the fingerprint taken when it was stored.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*entry),
	}
}

func (c *MemoryCache) Get(path string) CacheResult {
	c.mu.RLock()
	e, exists := c.entries[path]
	c.mu.RUnlock()

	if !exists {
		return CacheResult{Found: false, MissReason: MissReasonNotFound}
	}

	if reason := validate(path, e); reason != MissReasonNone {
		c.mu.Lock()
		// Only remove the entry we validated; a concurrent Set may have replaced it.
		if c.entries[path] == e {
			delete(c.entries, path)
		}
		c.mu.Unlock()
		return CacheResult{Found: false, MissReason: reason}
	}

	return CacheResult{Items: e.items, Found: true, MissReason: MissReasonNone}
}

func validate(path string, e *entry) CacheMissReason {
	current, err := util.CalculateFileFingerprint(path)
	if err != nil {
		util.LogDebug(fmt.Sprintf("Cache validation failed for %s: unable to get file info: %v", path, err))
		return MissReasonError
	}

	if current.Size != e.fingerprint.Size {
		util.LogDebug(fmt.Sprintf("Cache invalidated for %s: size changed (cached: %d, current: %d)",
			path, e.fingerprint.Size, current.Size))
		return MissReasonSize
	}
	if current.ModTime != e.fingerprint.ModTime {
		util.LogDebug(fmt.Sprintf("Cache invalidated for %s: modtime changed (cached: %d, current: %d)",
			path, e.fingerprint.ModTime, current.ModTime))
		return MissReasonModTime
	}
	if current.Tail != e.fingerprint.Tail {
		util.LogDebug(fmt.Sprintf("Cache invalidated for %s: fingerprint mismatch (cached: %s, current: %s)",
			path, e.fingerprint.Tail, current.Tail))
		return MissReasonFingerprint
	}
	return MissReasonNone
}

// Set stores items for path together with the file's current fingerprint.
func (c *MemoryCache) Set(path string, items []model.Item) error {
	fingerprint, err := util.CalculateFileFingerprint(path)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = &entry{fingerprint: fingerprint, items: items}
	return nil
}

func (c *MemoryCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
