package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"metaview/internal/services"
)

// createdAtLayout is fixed width and always UTC so created_at sorts as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Status values recorded for an attempt.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Entry is one recorded extraction attempt.
type Entry struct {
	ID           int64          `json:"id"`
	RequestID    string         `json:"request_id"`
	SourceName   string         `json:"source_name"`
	SourceSize   int64          `json:"source_size"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	FieldCount   int            `json:"field_count"`
	BucketCounts map[string]int `json:"bucket_counts,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Store persists extraction attempts in SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open creates or connects to the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, services.Wrap(services.ErrStorage, "history", "open", "create directory", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "history", "open", "open sqlite db", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, services.Wrap(services.ErrStorage, "history", "open", fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts entry and returns it with ID and CreatedAt populated.
func (s *Store) Record(ctx context.Context, entry Entry) (Entry, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()
	if entry.Status == "" {
		entry.Status = StatusOK
	}

	var counts any
	if len(entry.BucketCounts) > 0 {
		raw, err := json.Marshal(entry.BucketCounts)
		if err != nil {
			return Entry{}, fmt.Errorf("marshal bucket counts: %w", err)
		}
		counts = string(raw)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO extractions (
            request_id, source_name, source_size, status, error_message,
            field_count, bucket_counts_json, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID,
		entry.SourceName,
		entry.SourceSize,
		entry.Status,
		nullableString(entry.ErrorMessage),
		entry.FieldCount,
		counts,
		entry.CreatedAt.Format(createdAtLayout),
	)
	if err != nil {
		return Entry{}, services.Wrap(services.ErrStorage, "history", "record", entry.SourceName, err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return Entry{}, fmt.Errorf("last insert id: %w", err)
	}
	return entry, nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns every entry.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, request_id, source_name, source_size, status, error_message,
        field_count, bucket_counts_json, created_at
        FROM extractions ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "history", "recent", "", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStorage, "history", "recent", "iterate rows", err)
	}
	return entries, nil
}

// Clear removes every entry and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM extractions")
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "history", "clear", "", err)
	}
	return res.RowsAffected()
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		entry      Entry
		errMessage sql.NullString
		countsRaw  sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.RequestID,
		&entry.SourceName,
		&entry.SourceSize,
		&entry.Status,
		&errMessage,
		&entry.FieldCount,
		&countsRaw,
		&createdRaw,
	); err != nil {
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	entry.ErrorMessage = errMessage.String
	if countsRaw.Valid && countsRaw.String != "" {
		if err := json.Unmarshal([]byte(countsRaw.String), &entry.BucketCounts); err != nil {
			return Entry{}, fmt.Errorf("decode bucket counts for entry %d: %w", entry.ID, err)
		}
	}
	created, err := time.Parse(time.RFC3339Nano, createdRaw)
	if err != nil {
		return Entry{}, fmt.Errorf("parse created_at for entry %d: %w", entry.ID, err)
	}
	entry.CreatedAt = created
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
