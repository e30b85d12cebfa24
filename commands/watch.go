package commands

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-daystream/internal/application/feed"
	"github.com/penwyp/go-daystream/internal/config"
	"github.com/penwyp/go-daystream/internal/core/model"
	"github.com/penwyp/go-daystream/internal/data/watcher"
	"github.com/penwyp/go-daystream/internal/presentation/formatter"
	"github.com/penwyp/go-daystream/internal/util"
)

var watchDate string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-render the stream whenever exports change",
	Long: `Watches the export directory and redraws the stream each time a memo, chat,
bookmark or history file is written. Without --date the stream follows the
current day. Stop with Ctrl+C.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchDate, "date", "",
		"Calendar day to show, YYYY-MM-DD (default today)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if cfg.Source != config.SourceDir {
		return fmt.Errorf("watch reads exports directly and requires --source dir")
	}

	tp := util.GetTimeProvider()
	var fixedDay *time.Time
	if watchDate != "" {
		day, err := tp.ParseDate(watchDate)
		if err != nil {
			return err
		}
		fixedDay = &day
	}

	out, err := newFormatter(cmd, cfg)
	if err != nil {
		return err
	}

	svc, err := feed.Open(feedConfig(cfg))
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := ensureDir(cfg.DataDir); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	fw, err := watcher.NewFileWatcher([]string{cfg.DataDir}, cfg.WatchDebounce())
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.DataDir, err)
	}
	defer fw.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := &renderer{
		svc:       svc,
		formatter: out,
		w:         cmd.OutOrStdout(),
		clear:     isTerminal(cmd) && cfg.Output == "table",
		day: func() time.Time {
			if fixedDay != nil {
				return *fixedDay
			}
			return tp.Today()
		},
	}

	if err := r.render(ctx); err != nil {
		return err
	}

	// Following today needs a redraw after midnight even without file changes.
	var tick <-chan time.Time
	if fixedDay == nil {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		tick = ticker.C
	}

	util.LogInfo("Watching for changes", util.F("dir", cfg.DataDir))
	return r.loop(ctx, fw.Events(), tick)
}

type renderer struct {
	svc       *feed.Service
	formatter formatter.Formatter
	w         io.Writer
	clear     bool
	day       func() time.Time
	shown     time.Time
}

func (r *renderer) render(ctx context.Context) error {
	day := r.day()
	clusters, err := r.svc.Build(ctx, day)
	if err != nil {
		return fmt.Errorf("failed to build stream: %w", err)
	}
	if r.clear {
		fmt.Fprint(r.w, util.ClearScreen+util.MoveCursorHome)
	}
	r.shown = day
	if err := r.formatter.Format(r.w, clusters); err != nil {
		return err
	}

	hits, misses := r.svc.CacheStats()
	util.LogDebug("Stream rendered",
		util.F("clusters", len(clusters)), util.F("cache_hits", hits), util.F("cache_misses", misses))
	return nil
}

// loop redraws on every file event and on ticks that find the day changed.
func (r *renderer) loop(ctx context.Context, events <-chan model.FileEvent, tick <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			util.LogDebug("Export changed", util.F("path", ev.Path), util.F("op", ev.Operation))
			r.svc.Invalidate(ev.Path)
		case <-tick:
			if r.day().Equal(r.shown) {
				continue
			}
			util.LogInfo("Day changed", util.F("day", r.day().Format(util.DateLayout)))
		}

		if err := r.render(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			util.LogError("Render failed: " + err.Error())
		}
	}
}
