package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/go-daystream/internal/core/model"
	"github.com/penwyp/go-daystream/internal/util"
)

// SourceFile is an export file together with the record kind it holds
type SourceFile struct {
	Path string
	Kind model.Kind
}

// FileScanner finds export files in a data directory
type FileScanner struct {
	baseDir string
}

// kindPrefixes maps lowercase base-name prefixes to record kinds. The first
// matching prefix wins.
var kindPrefixes = []struct {
	prefix string
	kind   model.Kind
}{
	{"conversation", model.KindAI},
	{"bookmark", model.KindBookmark},
	{"history", model.KindHistory},
	{"memo", model.KindMemo},
	{"chat", model.KindAI},
	{"ai", model.KindAI},
}

// NewFileScanner creates a new FileScanner instance
func NewFileScanner(baseDir string) *FileScanner {
	return &FileScanner{baseDir: baseDir}
}

// IsDataFile reports whether path has a JSON or JSON Lines extension
func IsDataFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonl":
		return true
	default:
		return false
	}
}

// Classify returns the record kind of an export file based on its name
func Classify(path string) (model.Kind, bool) {
	if !IsDataFile(path) {
		return "", false
	}
	name := strings.ToLower(filepath.Base(path))
	for _, p := range kindPrefixes {
		if strings.HasPrefix(name, p.prefix) {
			return p.kind, true
		}
	}
	return "", false
}

// Scan walks the directory and returns every recognized export file, sorted by path
func (s *FileScanner) Scan() ([]SourceFile, error) {
	start := time.Now()
	var files []SourceFile
	dirCount := 0
	totalCount := 0

	util.LogDebug(fmt.Sprintf("Start scanning directory: %s", s.baseDir))

	err := filepath.Walk(s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			util.LogDebug(fmt.Sprintf("Skip file (error): %s - %v", path, err))
			return nil
		}

		if info.IsDir() {
			dirCount++
			return nil
		}

		totalCount++
		kind, ok := Classify(path)
		if !ok {
			if IsDataFile(path) {
				util.LogDebug(fmt.Sprintf("Skip unrecognized export file: %s", path))
			}
			return nil
		}
		files = append(files, SourceFile{Path: path, Kind: kind})
		return nil
	})

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	util.LogDebug(fmt.Sprintf("File scan completed: duration %v, scanned %d directories, %d files, found %d export files",
		time.Since(start), dirCount, totalCount, len(files)))

	return files, err
}
