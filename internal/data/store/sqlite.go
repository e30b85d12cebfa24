package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/penwyp/go-daystream/internal/core/model"
	"github.com/penwyp/go-daystream/internal/util"
)

var ErrNotFound = errors.New("record not found")

const memoryPath = ":memory:"

type Store struct {
	db *sql.DB
}

// New opens or creates the database at path. The parent directory is created
// if needed; ":memory:" opens a private in-memory database.
func New(path string) (*Store, error) {
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection serializes writers and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// schemaVersion 1 splits record time into milliseconds and a sub-millisecond
// remainder. Version 0 databases hold UnixNano in ts.
const schemaVersion = 1

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS imports (
		id         TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		source     TEXT NOT NULL,
		count      INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS records (
		kind      TEXT NOT NULL,
		id        TEXT NOT NULL,
		ts        INTEGER NOT NULL,
		ts_nsec   INTEGER NOT NULL DEFAULT 0,
		payload   TEXT NOT NULL,
		import_id TEXT NOT NULL REFERENCES imports(id),
		PRIMARY KEY (kind, id)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version < schemaVersion {
		var split int
		if err := s.db.QueryRow(
			"SELECT COUNT(*) FROM pragma_table_info('records') WHERE name = 'ts_nsec'",
		).Scan(&split); err != nil {
			return fmt.Errorf("inspect records: %w", err)
		}
		if split == 0 {
			if _, err := s.db.Exec(`
				DROP INDEX IF EXISTS idx_records_kind_ts;
				ALTER TABLE records ADD COLUMN ts_nsec INTEGER NOT NULL DEFAULT 0;
				UPDATE records SET ts_nsec = ts % 1000000, ts = ts / 1000000;`,
			); err != nil {
				return fmt.Errorf("split record timestamps: %w", err)
			}
			util.LogInfo("Migrated record timestamps to millisecond layout")
		}
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
	}

	_, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_records_kind_time ON records(kind, ts, ts_nsec)")
	return err
}

// splitTime encodes t as whole Unix milliseconds plus the remaining
// nanoseconds, which covers every year ParseTimestamp accepts.
func splitTime(t time.Time) (ms, nsec int64) {
	return t.UnixMilli(), int64(t.Nanosecond() % int(time.Millisecond))
}

func joinTime(ms, nsec int64) time.Time {
	return time.UnixMilli(ms).Add(time.Duration(nsec))
}

// Import upserts items under a new import batch. Records are keyed by kind
// and id, so re-importing an export replaces earlier versions.
func (s *Store) Import(ctx context.Context, source string, items []model.Item) (*ImportResult, error) {
	start := time.Now()
	result := &ImportResult{
		Import: Import{
			ID:        uuid.NewString(),
			CreatedAt: time.Now().UTC(),
			Source:    source,
			Count:     len(items),
		},
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO imports (id, created_at, source, count) VALUES (?, ?, ?, ?)",
		result.ID, result.CreatedAt.UnixMilli(), source, len(items),
	); err != nil {
		return nil, fmt.Errorf("insert import: %w", err)
	}

	exists, err := tx.PrepareContext(ctx, "SELECT COUNT(*) FROM records WHERE kind = ? AND id = ?")
	if err != nil {
		return nil, fmt.Errorf("prepare lookup: %w", err)
	}
	defer exists.Close()

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO records (kind, id, ts, ts_nsec, payload, import_id) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			ts = excluded.ts,
			ts_nsec = excluded.ts_nsec,
			payload = excluded.payload,
			import_id = excluded.import_id`)
	if err != nil {
		return nil, fmt.Errorf("prepare upsert: %w", err)
	}
	defer upsert.Close()

	for _, item := range items {
		payload, err := sonic.MarshalString(item.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", item.Key(), err)
		}

		var count int
		if err := exists.QueryRowContext(ctx, string(item.Kind), item.ID).Scan(&count); err != nil {
			return nil, fmt.Errorf("lookup %s: %w", item.Key(), err)
		}

		ms, nsec := splitTime(item.Timestamp)
		if _, err := upsert.ExecContext(ctx, string(item.Kind), item.ID, ms, nsec, payload, result.ID); err != nil {
			return nil, fmt.Errorf("upsert %s: %w", item.Key(), err)
		}

		if count > 0 {
			result.Updated++
		} else {
			result.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	util.LogDebug(fmt.Sprintf("Import %s from %s completed: %d inserted, %d updated, duration %v",
		result.ID, source, result.Inserted, result.Updated, time.Since(start)))
	return result, nil
}

// ItemsBetween returns items of kind with from <= timestamp < to, oldest first.
func (s *Store) ItemsBetween(ctx context.Context, kind model.Kind, from, to time.Time) ([]model.Item, error) {
	fromMs, fromNsec := splitTime(from)
	toMs, toNsec := splitTime(to)
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, id, ts, ts_nsec, payload FROM records
		WHERE kind = ? AND (ts, ts_nsec) >= (?, ?) AND (ts, ts_nsec) < (?, ?)
		ORDER BY ts, ts_nsec, rowid`,
		string(kind), fromMs, fromNsec, toMs, toNsec,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ItemsOnDay returns items of kind on the calendar day of day in loc.
func (s *Store) ItemsOnDay(ctx context.Context, kind model.Kind, day time.Time, loc *time.Location) ([]model.Item, error) {
	if loc == nil {
		loc = day.Location()
	}
	from := util.StartOfDay(day.In(loc))
	return s.ItemsBetween(ctx, kind, from, from.AddDate(0, 0, 1))
}

func (s *Store) Get(ctx context.Context, kind model.Kind, id string) (model.Item, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT kind, id, ts, ts_nsec, payload FROM records WHERE kind = ? AND id = ?",
		string(kind), id,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, fmt.Errorf("%s:%s: %w", kind, id, ErrNotFound)
	}
	return item, err
}

// ActiveDays lists the local calendar days that hold records of the given
// kinds (all kinds when none are given), most recent first.
func (s *Store) ActiveDays(ctx context.Context, loc *time.Location, kinds ...model.Kind) ([]DayCount, error) {
	if loc == nil {
		loc = time.Local
	}

	query := "SELECT kind, ts, ts_nsec FROM records"
	args := make([]any, 0, len(kinds))
	if len(kinds) > 0 {
		placeholders := make([]string, len(kinds))
		for i, k := range kinds {
			placeholders[i] = "?"
			args = append(args, string(k))
		}
		query += " WHERE kind IN (" + strings.Join(placeholders, ", ") + ")"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := make(map[string]*DayCount)
	for rows.Next() {
		var kind string
		var ms, nsec int64
		if err := rows.Scan(&kind, &ms, &nsec); err != nil {
			return nil, err
		}
		key := joinTime(ms, nsec).In(loc).Format(util.DateLayout)
		dc, ok := days[key]
		if !ok {
			dc = &DayCount{Day: key, ByKind: make(map[model.Kind]int)}
			days[key] = dc
		}
		dc.Count++
		dc.ByKind[model.Kind(kind)]++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]DayCount, 0, len(days))
	for _, dc := range days {
		result = append(result, *dc)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Day > result[j].Day
	})
	return result, nil
}

func (s *Store) ListImports(ctx context.Context, limit int) ([]Import, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, created_at, source, count FROM imports ORDER BY created_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var imports []Import
	for rows.Next() {
		var imp Import
		var createdAt int64
		if err := rows.Scan(&imp.ID, &createdAt, &imp.Source, &imp.Count); err != nil {
			return nil, err
		}
		imp.CreatedAt = time.UnixMilli(createdAt).UTC()
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}

// CountRecords reports the number of stored records per kind.
func (s *Store) CountRecords(ctx context.Context) (map[model.Kind]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM records GROUP BY kind")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.Kind]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		counts[model.Kind(kind)] = count
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (model.Item, error) {
	var kind, id, payload string
	var ms, nsec int64
	if err := row.Scan(&kind, &id, &ms, &nsec, &payload); err != nil {
		return model.Item{}, err
	}

	decoded, err := decodePayload(model.Kind(kind), payload)
	if err != nil {
		return model.Item{}, fmt.Errorf("decode %s:%s: %w", kind, id, err)
	}

	return model.Item{
		ID:        id,
		Timestamp: joinTime(ms, nsec),
		Kind:      model.Kind(kind),
		Payload:   decoded,
	}, nil
}

func decodePayload(kind model.Kind, payload string) (any, error) {
	switch kind {
	case model.KindMemo:
		var m model.Memo
		err := sonic.UnmarshalString(payload, &m)
		return m, err
	case model.KindAI:
		var t model.AIConversationItem
		err := sonic.UnmarshalString(payload, &t)
		return t, err
	case model.KindBookmark:
		var b model.Bookmark
		err := sonic.UnmarshalString(payload, &b)
		return b, err
	case model.KindHistory:
		var h model.BrowserHistoryEntry
		err := sonic.UnmarshalString(payload, &h)
		return h, err
	default:
		return nil, fmt.Errorf("unsupported kind '%s'", kind)
	}
}
