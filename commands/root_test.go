package commands

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-daystream/internal/application/feed"
	"github.com/penwyp/go-daystream/internal/config"
	"github.com/penwyp/go-daystream/internal/core/model"
	"github.com/penwyp/go-daystream/internal/presentation/formatter"
	"github.com/penwyp/go-daystream/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected func(string) string
	}{
		{
			name:  "home directory expansion",
			input: "~/test/path",
			expected: func(home string) string {
				return filepath.Join(home, "test/path")
			},
		},
		{
			name:  "absolute path unchanged",
			input: "/absolute/path",
			expected: func(home string) string {
				return "/absolute/path"
			},
		},
		{
			name:  "relative path converted to absolute",
			input: "relative/path",
			expected: func(home string) string {
				abs, _ := filepath.Abs("relative/path")
				return abs
			},
		},
	}

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandPath(tt.input)
			expected := tt.expected(home)
			assert.Equal(t, expected, result)
		})
	}
}

func TestEnsureDir(t *testing.T) {
	tempDir := t.TempDir()
	testDir := filepath.Join(tempDir, "test", "nested", "dir")

	err := ensureDir(testDir)
	assert.NoError(t, err)

	// Verify directory was created
	info, err := os.Stat(testDir)
	assert.NoError(t, err)
	assert.True(t, info.IsDir())

	// Test idempotency
	err = ensureDir(testDir)
	assert.NoError(t, err)
}

func TestRootCommandFlags(t *testing.T) {
	tests := []struct {
		flag         string
		defaultValue string
		shorthand    string
	}{
		{"config", filepath.Join("~", ".go-daystream", "config.yaml"), ""},
		{"dir", "", ""},
		{"db", "", ""},
		{"source", "", ""},
		{"stream", "", ""},
		{"date", "", ""},
		{"bucket", "0", ""},
		{"gap", "0", ""},
		{"output", "", "o"},
		{"timezone", "", ""},
		{"debug", "false", ""},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			flag := rootCmd.Flags().Lookup(tt.flag)
			if flag == nil {
				flag = rootCmd.PersistentFlags().Lookup(tt.flag)
			}
			require.NotNil(t, flag)
			assert.Equal(t, tt.defaultValue, flag.DefValue)
			if tt.shorthand != "" {
				assert.Equal(t, tt.shorthand, flag.Shorthand)
			}
		})
	}
}

func TestTerminalWidthWithoutTerminal(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	assert.Equal(t, 0, terminalWidth(cmd))
	assert.False(t, isTerminal(cmd))
}

func TestSubcommandsRegistered(t *testing.T) {
	for _, name := range []string{"import", "imports", "watch", "days", "config"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

// testEnv holds an export directory and a config file whose log output stays
// inside the test's temp dir.
type testEnv struct {
	dataDir string
	dbPath  string
	config  string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	root := t.TempDir()
	env := testEnv{
		dataDir: filepath.Join(root, "exports"),
		dbPath:  filepath.Join(root, "db", "daystream.db"),
		config:  filepath.Join(root, "config.yaml"),
	}

	files := map[string]string{
		"memos.jsonl": `{"id":"m1","timestamp":"2024-01-01T10:03:00Z","type":"text","content":"first memo"}
{"id":"m2","timestamp":"2024-01-02T09:00:00Z","type":"text","content":"next day"}`,
		"conversations.jsonl": `{"id":"a1","timestamp":"2024-01-01T14:00:00Z","type":"user","content":"hello"}`,
		"bookmarks.json":      `[{"id":"b1","url":"https://go.dev","title":"Go","timestamp":"2024-01-01T10:07:00Z"}]`,
		"history.jsonl":       `{"id":"h1","url":"https://pkg.go.dev","title":"Packages","visit_time":"2024-01-01T23:59:00Z"}`,
	}
	require.NoError(t, os.MkdirAll(env.dataDir, 0755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(env.dataDir, name), []byte(content), 0644))
	}

	cfg := "logging:\n  file: " + filepath.Join(root, "logs", "app.log") + "\n"
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0644))
	return env
}

func (e testEnv) args(extra ...string) []string {
	return append([]string{"--config", e.config, "--dir", e.dataDir, "--db", e.dbPath, "--timezone", "UTC"}, extra...)
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { util.CloseLogger() })

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRunStreamJSON(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, env.args("--date", "2024-01-01", "--output", "json")...)
	require.NoError(t, err, out)

	var clusters []map[string]any
	require.NoError(t, sonic.UnmarshalString(out, &clusters))
	require.Len(t, clusters, 2)
	assert.Equal(t, "2024-01-01T10:00:00.000Z", clusters[0]["time"])
	assert.Equal(t, "2024-01-01T23:50:00.000Z", clusters[1]["time"])
	assert.Len(t, clusters[0]["sideItems"], 2, "marker and bookmark")
}

func TestRunStreamAI(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, env.args("--date", "2024-01-01", "--stream", "ai", "--output", "csv")...)
	require.NoError(t, err, out)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)

	var primaryKinds []string
	for _, r := range records[1:] {
		if r[1] == "primary" {
			primaryKinds = append(primaryKinds, r[3])
		}
	}
	assert.Equal(t, []string{"ai"}, primaryKinds)
}

func TestRunStreamEmptyDay(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, env.args("--date", "2023-06-01")...)
	require.NoError(t, err)
	assert.Equal(t, "No activity\n", out)
}

func TestRunStreamInvalidInput(t *testing.T) {
	env := newTestEnv(t)

	_, err := execute(t, env.args("--date", "01/02/2024")...)
	assert.Error(t, err)

	_, err = execute(t, env.args("--stream", "feed")...)
	assert.Error(t, err)

	_, err = execute(t, env.args("--timezone", "Mars/Base")...)
	assert.Error(t, err)
}

func TestImportThenReadFromStore(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, env.args("import")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Imported 5 records")
	assert.Contains(t, out, "5 new, 0 updated")

	out, err = execute(t, env.args("import")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "0 new, 5 updated")

	out, err = execute(t, env.args("--source", "store", "--date", "2024-01-01", "--output", "summary")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Day: 2024-01-01")
	assert.Contains(t, out, "Items: 3")
}

func TestImportsCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, env.args("imports")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Stored: 0 records")
	assert.Contains(t, out, "No imports")

	_, err = execute(t, env.args("import")...)
	require.NoError(t, err)
	_, err = execute(t, env.args("import")...)
	require.NoError(t, err)

	out, err = execute(t, env.args("imports")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Stored: 5 records (memo 2, ai 1, bookmark 1, history 1)")
	assert.Equal(t, 2, strings.Count(out, env.dataDir))

	out, err = execute(t, env.args("imports", "--output", "json", "--limit", "1")...)
	require.NoError(t, err, out)
	var report struct {
		Records map[string]int   `json:"records"`
		Total   int              `json:"total"`
		Imports []map[string]any `json:"imports"`
	}
	require.NoError(t, sonic.UnmarshalString(out, &report))
	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 2, report.Records["memo"])
	require.Len(t, report.Imports, 1)
	assert.Equal(t, env.dataDir, report.Imports[0]["source"])
}

func TestConfigCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, env.args("config", "--stream", "ai")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "stream: ai")
	assert.Contains(t, out, "data_dir: "+env.dataDir)

	out, err = execute(t, env.args("config", "--stream", "ai", "--bucket", "15", "--save")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Saved configuration to "+env.config)

	saved, err := config.Load(env.config)
	require.NoError(t, err)
	assert.Equal(t, config.StreamAI, saved.Stream)
	assert.Equal(t, 15, saved.BucketMinutes)
	assert.Equal(t, "UTC", saved.Timezone)
}

func TestDaysCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, env.args("days")...)
	require.NoError(t, err, out)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "2024-01-02"))
	assert.Contains(t, lines[1], "memo 1, bookmark 1, history 1")

	out, err = execute(t, env.args("days", "--output", "json", "--limit", "1")...)
	require.NoError(t, err, out)
	var days []map[string]any
	require.NoError(t, sonic.UnmarshalString(out, &days))
	require.Len(t, days, 1)
	assert.Equal(t, "2024-01-02", days[0]["day"])
}

func TestWatchRequiresDirSource(t *testing.T) {
	env := newTestEnv(t)

	_, err := execute(t, env.args("watch", "--source", "store")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires --source dir")
}

func TestRendererLoop(t *testing.T) {
	env := newTestEnv(t)
	svc, err := feed.Open(feed.Config{DataDir: env.dataDir, Location: time.UTC})
	require.NoError(t, err)
	defer svc.Close()

	var buf syncBuffer
	r := &renderer{
		svc:       svc,
		formatter: formatter.NewJSONFormatter(),
		w:         &buf,
		day:       func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	}

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan model.FileEvent, 1)
	done := make(chan error, 1)
	go func() { done <- r.loop(ctx, events, nil) }()

	path := filepath.Join(env.dataDir, "memos.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"m9","timestamp":"2024-01-01T08:00:00Z","type":"text","content":"early"}`), 0644))
	events <- model.FileEvent{Path: path, Operation: "WRITE"}

	assert.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "2024-01-01T08:00:00.000Z")
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestRendererFollowsDayChange(t *testing.T) {
	env := newTestEnv(t)
	svc, err := feed.Open(feed.Config{DataDir: env.dataDir, Location: time.UTC})
	require.NoError(t, err)
	defer svc.Close()

	var mu sync.Mutex
	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var buf syncBuffer
	r := &renderer{
		svc:       svc,
		formatter: formatter.NewCSVFormatter(formatter.Options{Location: time.UTC}),
		w:         &buf,
		day: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return current
		},
	}
	require.NoError(t, r.render(context.Background()))
	assert.NotContains(t, buf.String(), "next day")

	ctx, cancel := context.WithCancel(context.Background())
	tick := make(chan time.Time)
	done := make(chan error, 1)
	go func() { done <- r.loop(ctx, nil, tick) }()

	// Same day: nothing is redrawn.
	before := buf.String()
	tick <- time.Now()
	mu.Lock()
	current = current.AddDate(0, 0, 1)
	mu.Unlock()
	tick <- time.Now()

	assert.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "next day")
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, 2, strings.Count(buf.String(), "Bucket,Column"), before)

	cancel()
	require.NoError(t, <-done)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
