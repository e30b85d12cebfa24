package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/penwyp/go-daystream/internal/application/feed"
	"github.com/penwyp/go-daystream/internal/config"
	"github.com/penwyp/go-daystream/internal/presentation/formatter"
	"github.com/penwyp/go-daystream/internal/util"
)

var (
	// Logging related
	debug bool

	// Configuration
	configPath string

	// Data paths
	dataDir    string
	dbPath     string
	sourceName string

	// Output related
	outputFormat string
	timezone     string

	// Stream selection
	streamName    string
	date          string
	bucketMinutes int
	gapMinutes    int

	rootCmd = &cobra.Command{
		Use:   "go-daystream [flags]",
		Short: "Day activity stream of memos, bookmarks and browsing history",
		Long: `go-daystream reads memo, chat, bookmark and browser history exports and shows one
day of activity as a stream of 10-minute buckets: memos (or chat turns) in the main
column, bookmarks and visited pages in a side column with time markers between them.

Examples:
  go-daystream                                  # Today's dashboard stream
  go-daystream --date 2024-01-01                # A specific day
  go-daystream --stream ai                      # Chat turns instead of memos
  go-daystream --output json                    # Clustered stream as JSON
  go-daystream import --dir ~/exports           # Load exports into the local database
  go-daystream --source store --output summary  # Read from the database
  go-daystream watch                            # Re-render when exports change`,
		SilenceUsage: true,
		RunE:         runStream,
	}
)

func init() {
	// Configuration file
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(),
		"Config file path")

	// Input data configuration
	rootCmd.PersistentFlags().StringVar(&dataDir, "dir", "",
		"Export directory path (default from config: ~/.go-daystream/exports)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "",
		"SQLite database path (default from config: ~/.go-daystream/daystream.db)")
	rootCmd.PersistentFlags().StringVar(&sourceName, "source", "",
		"Data source (dir, store)")

	// Stream selection
	rootCmd.PersistentFlags().StringVar(&streamName, "stream", "",
		"Stream to show (dashboard, ai)")
	rootCmd.Flags().StringVar(&date, "date", "",
		"Calendar day to show, YYYY-MM-DD (default today)")
	rootCmd.PersistentFlags().IntVar(&bucketMinutes, "bucket", 0,
		"Bucket width in minutes (must divide a day)")
	rootCmd.PersistentFlags().IntVar(&gapMinutes, "gap", 0,
		"Minutes of silence before a time marker is inserted")

	// Output configuration
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "",
		"Output format (table, json, csv, summary)")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "",
		"Timezone setting (e.g., Asia/Shanghai, UTC)")

	// System and debugging
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")
}

// loadSettings reads the config file, applies changed flags on top, and
// initializes logging and the time provider.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("db") {
		cfg.DBPath = dbPath
	}
	if flags.Changed("source") {
		cfg.Source = sourceName
	}
	if flags.Changed("stream") {
		cfg.Stream = streamName
	}
	if flags.Changed("bucket") {
		cfg.BucketMinutes = bucketMinutes
	}
	if flags.Changed("gap") {
		cfg.GapMinutes = gapMinutes
	}
	if flags.Changed("output") {
		cfg.Output = outputFormat
	}
	if flags.Changed("timezone") {
		cfg.Timezone = timezone
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.DataDir = expandPath(cfg.DataDir)
	cfg.DBPath = expandPath(cfg.DBPath)

	logFile := ""
	if cfg.Logging.File != "" {
		logFile = expandPath(cfg.Logging.File)
		if err := ensureDir(filepath.Dir(logFile)); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	if err := util.InitLogger(cfg.Logging.Level, logFile, debug, util.LogFormat(cfg.Logging.Format)); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := util.InitializeTimeProvider(cfg.Timezone); err != nil {
		return nil, err
	}

	util.LogDebug("Settings loaded",
		util.F("data_dir", cfg.DataDir), util.F("source", cfg.Source), util.F("stream", cfg.Stream))
	return cfg, nil
}

func feedConfig(cfg *config.Config) feed.Config {
	return feed.Config{
		Stream:       cfg.Stream,
		Source:       cfg.Source,
		DataDir:      cfg.DataDir,
		DBPath:       cfg.DBPath,
		Location:     util.GetTimeProvider().Location(),
		Concurrency:  cfg.Concurrency,
		BucketSize:   cfg.BucketSize(),
		GapThreshold: cfg.GapThreshold(),
	}
}

func newFormatter(cmd *cobra.Command, cfg *config.Config) (formatter.Formatter, error) {
	return formatter.New(cfg.Output, formatter.Options{
		Location: util.GetTimeProvider().Location(),
		Width:    terminalWidth(cmd),
		Color:    isTerminal(cmd),
	})
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	day, err := util.GetTimeProvider().ParseDate(date)
	if err != nil {
		return err
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

	start := time.Now()
	clusters, err := svc.Build(cmd.Context(), day)
	if err != nil {
		return fmt.Errorf("failed to build stream: %w", err)
	}
	util.LogDebug(fmt.Sprintf("Stream ready in %v", time.Since(start)))

	return out.Format(cmd.OutOrStdout(), clusters)
}

func Execute() error {
	return ExecuteContext(context.Background())
}

func ExecuteContext(ctx context.Context) error {
	defer util.CloseLogger()
	return rootCmd.ExecuteContext(ctx)
}

// Helper functions

func expandPath(path string) string {
	path = config.ExpandPath(path)
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// isTerminal reports whether the command writes to an interactive terminal
func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of the terminal the command writes to, or 0
// when the output is not a terminal.
func terminalWidth(cmd *cobra.Command) int {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
