package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-daystream/internal/core/model"
	"github.com/penwyp/go-daystream/internal/core/timeline"
	"github.com/penwyp/go-daystream/internal/util"
)

// Parser decodes export files and normalizes their records into stream items.
type Parser struct {
	concurrency int
	builder     *timeline.Builder
}

// ParseResult represents the result of parsing a single file.
type ParseResult struct {
	File  string
	Kind  model.Kind
	Items []model.Item
	Error error
}

// NewParser creates a new Parser instance. A nil builder normalizes in time.Local.
func NewParser(concurrency int, builder *timeline.Builder) *Parser {
	if concurrency < 1 {
		concurrency = 1
	}
	if builder == nil {
		builder = timeline.NewBuilder(nil)
	}
	return &Parser{
		concurrency: concurrency,
		builder:     builder,
	}
}

// ParseFile reads a JSON array or JSON Lines file holding records of kind.
// In JSON Lines files, lines that fail to decode are skipped.
func (p *Parser) ParseFile(path string, kind model.Kind) ([]model.Item, error) {
	util.LogDebug(fmt.Sprintf("Start parsing file: %s (%s)", path, kind))

	data, err := os.ReadFile(path)
	if err != nil {
		util.LogDebug(fmt.Sprintf("Failed to open file: %s - %v", path, err))
		return nil, err
	}
	return p.Parse(data, kind)
}

// Parse decodes data as a JSON array when it starts with '[' and as JSON Lines otherwise.
func (p *Parser) Parse(data []byte, kind model.Kind) ([]model.Item, error) {
	switch kind {
	case model.KindMemo:
		memos, err := decode[model.Memo](data)
		if err != nil {
			return nil, err
		}
		return p.builder.FromMemos(memos), nil
	case model.KindAI:
		turns, err := decode[model.AIConversationItem](data)
		if err != nil {
			return nil, err
		}
		return p.builder.FromConversation(turns), nil
	case model.KindBookmark:
		bookmarks, err := decode[model.Bookmark](data)
		if err != nil {
			return nil, err
		}
		return p.builder.FromBookmarks(bookmarks), nil
	case model.KindHistory:
		entries, err := decode[model.BrowserHistoryEntry](data)
		if err != nil {
			return nil, err
		}
		return p.builder.FromHistory(entries), nil
	default:
		return nil, fmt.Errorf("unsupported kind '%s'", kind)
	}
}

func decode[T any](data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var records []T
		if err := sonic.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode json array: %w", err)
		}
		return records, nil
	}

	var records []T
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	lineCount := 0
	for scanner.Scan() {
		lineCount++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record T
		if err := sonic.Unmarshal(line, &record); err != nil {
			util.LogDebug(fmt.Sprintf("Skip invalid JSON line %d - %v", lineCount, err))
			continue
		}
		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan json lines: %w", err)
	}
	return records, nil
}

// Job names a file and the kind of records it holds.
type Job struct {
	File string
	Kind model.Kind
}

// ParseFiles parses multiple files concurrently and returns a channel of ParseResult.
func (p *Parser) ParseFiles(jobs []Job) <-chan ParseResult {
	start := time.Now()
	results := make(chan ParseResult, len(jobs))
	var wg sync.WaitGroup

	util.LogDebug(fmt.Sprintf("Start concurrent parsing of %d files, concurrency: %d", len(jobs), p.concurrency))

	semaphore := make(chan struct{}, p.concurrency)

	for _, job := range jobs {
		wg.Add(1)
		go func(j Job) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			fileStart := time.Now()
			items, err := p.ParseFile(j.File, j.Kind)
			fileDuration := time.Since(fileStart)

			if err != nil {
				util.LogDebug(fmt.Sprintf("File parsing failed: %s, duration %v - %v", j.File, fileDuration, err))
			}

			results <- ParseResult{
				File:  j.File,
				Kind:  j.Kind,
				Items: items,
				Error: err,
			}
		}(job)
	}

	go func() {
		wg.Wait()
		close(results)

		util.LogDebug(fmt.Sprintf("Concurrent parsing finished, total duration: %v", time.Since(start)))
	}()

	return results
}
