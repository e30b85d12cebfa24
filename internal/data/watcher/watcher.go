package watcher

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/penwyp/go-daystream/internal/core/constants"
	"github.com/penwyp/go-daystream/internal/core/model"
	"github.com/penwyp/go-daystream/internal/data/scanner"
	"github.com/penwyp/go-daystream/internal/util"
)

// FileWatcher reports changes to export files below a set of directories.
// Bursts of writes to the same file are coalesced into one event that is
// delivered once the file has been quiet for the debounce interval.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	events   chan model.FileEvent

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewFileWatcher watches paths recursively. A non-positive debounce uses
// constants.WatchDebounce.
func NewFileWatcher(paths []string, debounce time.Duration) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = constants.WatchDebounce
	}

	fw := &FileWatcher{
		watcher:  watcher,
		debounce: debounce,
		events:   make(chan model.FileEvent, 100),
		done:     make(chan struct{}),
	}

	// Add monitoring paths
	for _, path := range paths {
		if _, err := fw.addPath(path); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	fw.wg.Add(1)
	go fw.processEvents()

	return fw, nil
}

// addPath watches path and every directory below it, returning the export
// files already present.
func (fw *FileWatcher) addPath(path string) ([]string, error) {
	var files []string
	err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}

		if info.IsDir() {
			return fw.watcher.Add(p)
		}
		if scanner.IsDataFile(p) {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

func (fw *FileWatcher) processEvents() {
	defer fw.wg.Done()

	pending := make(map[string]model.FileEvent)
	timer := time.NewTimer(fw.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-fw.done:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					files, err := fw.addPath(event.Name)
					if err != nil {
						util.LogWarn("Failed to watch new directory", util.F("path", event.Name), util.F("error", err))
					}
					// Files moved in with the directory produce no events of their own.
					for _, f := range files {
						pending[f] = model.FileEvent{Path: f, Operation: fsnotify.Create.String()}
					}
					if len(files) > 0 {
						timer.Reset(fw.debounce)
					}
					continue
				}
			}

			if !scanner.IsDataFile(event.Name) {
				continue
			}

			pending[event.Name] = model.FileEvent{
				Path:      event.Name,
				Operation: event.Op.String(),
			}
			timer.Reset(fw.debounce)

		case <-timer.C:
			if !fw.flush(pending) {
				return
			}
			pending = make(map[string]model.FileEvent)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			// Log error but continue running
			util.LogError("File monitoring error: " + err.Error())
		}
	}
}

// flush delivers pending events in path order. It returns false if the
// watcher was closed while delivering.
func (fw *FileWatcher) flush(pending map[string]model.FileEvent) bool {
	paths := make([]string, 0, len(pending))
	for path := range pending {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		select {
		case fw.events <- pending[path]:
		case <-fw.done:
			return false
		}
	}
	if len(paths) > 0 {
		util.LogDebugf("Watcher delivered %d changed files", len(paths))
	}
	return true
}

func (fw *FileWatcher) Events() <-chan model.FileEvent {
	return fw.events
}

// Close stops the watcher and closes the events channel.
func (fw *FileWatcher) Close() error {
	var err error
	fw.closeOnce.Do(func() {
		close(fw.done)
		err = fw.watcher.Close()
		fw.wg.Wait()
		close(fw.events)
	})
	return err
}
