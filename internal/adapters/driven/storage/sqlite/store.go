package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/awesometrack/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.awesometrack/data/tracker.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".awesometrack", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "tracker.db")

	// WAL lets readers (serve, items) run next to a reconciliation
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ItemStore returns an ItemStore interface backed by this store.
func (s *Store) ItemStore() driven.ItemStore {
	return &itemStore{store: s}
}

// SourceStore returns a SourceStore interface backed by this store.
func (s *Store) SourceStore() driven.SourceStore {
	return &sourceStore{store: s}
}

// StarCache returns a StarCache interface backed by this store.
func (s *Store) StarCache() driven.StarCache {
	return &starCache{store: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Item Store ====================

// itemStore implements driven.ItemStore.
type itemStore struct {
	store *Store
}

var _ driven.ItemStore = (*itemStore)(nil)

// FileItems returns a file's items keyed by fingerprint.
func (s *itemStore) FileItems(ctx context.Context, sourceID, file string) (map[string]domain.Item, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT source_id, file, fingerprint, category, category_html, markdown, html,
			first_observed_at, last_checked_at, day_bucket, week_bucket
		FROM items WHERE source_id = ? AND file = ?
	`, sourceID, file)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	items := make(map[string]domain.Item)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items[item.Fingerprint] = *item
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return items, nil
}

// ReplaceFile swaps a file's items and index entries and saves its record
// in one transaction.
func (s *itemStore) ReplaceFile(ctx context.Context, record domain.FileRecord, items []domain.Item) error {
	for _, item := range items {
		if item.SourceID != record.SourceID || item.File != record.Path {
			return fmt.Errorf("%w: item %s does not belong to %s:%s",
				domain.ErrInvalidInput, item.Key(), record.SourceID, record.Path)
		}
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"items", "item_index"} {
		query := "DELETE FROM " + table + " WHERE source_id = ? AND file = ?"
		if _, err := tx.ExecContext(ctx, query, record.SourceID, record.Path); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	itemStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO items (source_id, file, fingerprint, category, category_html, markdown, html,
			first_observed_at, last_checked_at, day_bucket, week_bucket)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing item insert: %w", err)
	}
	defer itemStmt.Close()

	indexStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO item_index (source_id, file, fingerprint, timestamp, day_bucket, week_bucket)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing index insert: %w", err)
	}
	defer indexStmt.Close()

	for _, item := range items {
		if _, err := itemStmt.ExecContext(ctx,
			item.SourceID, item.File, item.Fingerprint, item.Category, item.CategoryHTML,
			item.Markdown, item.HTML, toMillis(item.FirstObservedAt), toMillis(item.LastCheckedAt),
			item.DayBucket, item.WeekBucket); err != nil {
			return fmt.Errorf("inserting item %s: %w", item.Fingerprint, err)
		}
		if _, err := indexStmt.ExecContext(ctx,
			item.SourceID, item.File, item.Fingerprint, toMillis(item.FirstObservedAt),
			item.DayBucket, item.WeekBucket); err != nil {
			return fmt.Errorf("indexing item %s: %w", item.Fingerprint, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO files (source_id, path, sha, created_at, updated_at, checked_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, path) DO UPDATE SET
			sha = excluded.sha,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			checked_at = excluded.checked_at
	`, record.SourceID, record.Path, record.SHA,
		toMillis(record.CreatedAt), toMillis(record.UpdatedAt), toMillis(record.CheckedAt)); err != nil {
		return fmt.Errorf("saving file record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing file %s:%s: %w", record.SourceID, record.Path, err)
	}
	return nil
}

// GetFile retrieves a file record.
func (s *itemStore) GetFile(ctx context.Context, sourceID, file string) (*domain.FileRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT source_id, path, sha, created_at, updated_at, checked_at
		FROM files WHERE source_id = ? AND path = ?
	`, sourceID, file)

	record, err := scanFileRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return record, err
}

// ListFiles returns file records sorted by source and path.
func (s *itemStore) ListFiles(ctx context.Context, sourceID string) ([]domain.FileRecord, error) {
	query := "SELECT source_id, path, sha, created_at, updated_at, checked_at FROM files"
	var args []any
	if sourceID != "" {
		query += " WHERE source_id = ?"
		args = append(args, sourceID)
	}
	query += " ORDER BY source_id, path"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var records []domain.FileRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		record, err := scanFileRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating files: %w", err)
	}
	return records, nil
}

// TouchFile updates a file record's CheckedAt.
func (s *itemStore) TouchFile(ctx context.Context, sourceID, file string, checkedAt time.Time) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE files SET checked_at = ? WHERE source_id = ? AND path = ?",
		toMillis(checkedAt), sourceID, file)
	if err != nil {
		return fmt.Errorf("touching file: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IndexEntries returns matching index entries, newest first.
func (s *itemStore) IndexEntries(ctx context.Context, filter domain.IndexFilter) ([]domain.IndexEntry, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.SourceIDs) > 0 {
		where = append(where, "source_id IN (?"+strings.Repeat(", ?", len(filter.SourceIDs)-1)+")")
		for _, id := range filter.SourceIDs {
			args = append(args, id)
		}
	}
	if filter.File != "" {
		where = append(where, "file = ?")
		args = append(args, filter.File)
	}
	if !filter.Since.IsZero() {
		where = append(where, "timestamp > ?")
		args = append(args, toMillis(filter.Since))
	}
	if filter.Day != 0 {
		where = append(where, "day_bucket = ?")
		args = append(args, filter.Day)
	}
	if filter.Week != 0 {
		where = append(where, "week_bucket = ?")
		args = append(args, filter.Week)
	}

	query := "SELECT source_id, file, fingerprint, timestamp, day_bucket, week_bucket FROM item_index"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC, source_id, file, fingerprint"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var entries []domain.IndexEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			e  domain.IndexEntry
			ts int64
		)
		if err := rows.Scan(&e.Key.SourceID, &e.Key.File, &e.Key.Fingerprint, &ts, &e.DayBucket, &e.WeekBucket); err != nil {
			return nil, fmt.Errorf("scanning index entry: %w", err)
		}
		e.Timestamp = fromMillis(ts)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating index: %w", err)
	}
	return entries, nil
}

// Items loads item bodies for keys in one read transaction.
func (s *itemStore) Items(ctx context.Context, keys []domain.ItemKey) ([]domain.Item, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		SELECT source_id, file, fingerprint, category, category_html, markdown, html,
			first_observed_at, last_checked_at, day_bucket, week_bucket
		FROM items WHERE source_id = ? AND file = ? AND fingerprint = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing item query: %w", err)
	}
	defer stmt.Close()

	items := make([]domain.Item, 0, len(keys))
	for _, key := range keys {
		item, err := scanItem(stmt.QueryRowContext(ctx, key.SourceID, key.File, key.Fingerprint))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no item for index key %s", domain.ErrCorruptStore, key)
		}
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

// RebuildIndex regenerates the index from item bodies.
func (s *itemStore) RebuildIndex(ctx context.Context) (int, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM item_index"); err != nil {
		return 0, fmt.Errorf("clearing index: %w", err)
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO item_index (source_id, file, fingerprint, timestamp, day_bucket, week_bucket)
		SELECT source_id, file, fingerprint, first_observed_at, day_bucket, week_bucket FROM items
	`)
	if err != nil {
		return 0, fmt.Errorf("rebuilding index: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting index entries: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing index: %w", err)
	}
	return int(n), nil
}

// ==================== Source Store ====================

// sourceStore implements driven.SourceStore.
type sourceStore struct {
	store *Store
}

var _ driven.SourceStore = (*sourceStore)(nil)

// Save stores or updates a source record.
func (s *sourceStore) Save(ctx context.Context, record domain.SourceRecord) error {
	metaJSON, err := json.Marshal(record.Meta)
	if err != nil {
		return fmt.Errorf("marshalling meta: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sources (identifier, meta, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			meta = excluded.meta,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, record.Identifier, string(metaJSON), toMillis(record.CreatedAt), toMillis(record.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving source: %w", err)
	}
	return nil
}

// Get retrieves a source record by identifier.
func (s *sourceStore) Get(ctx context.Context, id string) (*domain.SourceRecord, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT identifier, meta, created_at, updated_at FROM sources WHERE identifier = ?", id)
	record, err := scanSourceRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return record, err
}

// List returns all source records sorted by identifier.
func (s *sourceStore) List(ctx context.Context) ([]domain.SourceRecord, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT identifier, meta, created_at, updated_at FROM sources ORDER BY identifier")
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var records []domain.SourceRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		record, err := scanSourceRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sources: %w", err)
	}
	return records, nil
}

// ==================== Star Cache ====================

// starCache implements driven.StarCache.
type starCache struct {
	store *Store
}

var _ driven.StarCache = (*starCache)(nil)

// GetStars returns a cached count unless it expired at now.
func (s *starCache) GetStars(ctx context.Context, repo string, now time.Time) (int, bool, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT count FROM stars WHERE repo = ? AND expires_at > ?", repo, toMillis(now)).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("querying stars: %w", err)
	}
	return count, true, nil
}

// PutStars caches a count.
func (s *starCache) PutStars(ctx context.Context, count domain.StarCount) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO stars (repo, count, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(repo) DO UPDATE SET count = excluded.count, expires_at = excluded.expires_at
	`, count.Repo, count.Count, toMillis(count.ExpiresAt))
	if err != nil {
		return fmt.Errorf("saving stars: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*domain.Item, error) {
	var (
		item              domain.Item
		observed, checked int64
	)
	if err := row.Scan(&item.SourceID, &item.File, &item.Fingerprint, &item.Category, &item.CategoryHTML,
		&item.Markdown, &item.HTML, &observed, &checked, &item.DayBucket, &item.WeekBucket); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning item: %w", err)
	}
	item.FirstObservedAt = fromMillis(observed)
	item.LastCheckedAt = fromMillis(checked)
	return &item, nil
}

func scanFileRecord(row scanner) (*domain.FileRecord, error) {
	var (
		record                      domain.FileRecord
		created, updated, checkedAt int64
	)
	if err := row.Scan(&record.SourceID, &record.Path, &record.SHA, &created, &updated, &checkedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning file record: %w", err)
	}
	record.CreatedAt = fromMillis(created)
	record.UpdatedAt = fromMillis(updated)
	record.CheckedAt = fromMillis(checkedAt)
	return &record, nil
}

func scanSourceRecord(row scanner) (*domain.SourceRecord, error) {
	var (
		record           domain.SourceRecord
		metaJSON         string
		created, updated int64
	)
	if err := row.Scan(&record.Identifier, &metaJSON, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning source: %w", err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &record.Meta); err != nil {
		return nil, fmt.Errorf("unmarshalling meta: %w", err)
	}
	record.CreatedAt = fromMillis(created)
	record.UpdatedAt = fromMillis(updated)
	return &record, nil
}

// toMillis converts t to unix milliseconds, 0 for the zero time.
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// fromMillis converts unix milliseconds to UTC, the zero time for 0.
func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
