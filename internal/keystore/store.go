package keystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"chansync/internal/catalog"
)

// Entry is the last known local location of a catalog item. It is a lookup
// aid, never an ownership relation: the filesystem stays authoritative, and
// an entry whose path no longer resolves is simply ignored.
type Entry struct {
	ItemID    string
	LocalPath string
	LastTitle string
	UpdatedAt time.Time
}

// Store is the process-wide id to local-path index backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS key_entries (
    item_id    TEXT PRIMARY KEY,
    local_path TEXT NOT NULL,
    last_title TEXT NOT NULL DEFAULT '',
    updated_at TEXT NOT NULL
);
`

// Open initializes or connects to the key store database.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure key store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the entry for an item id, or nil when none is recorded.
func (s *Store) Get(ctx context.Context, itemID string) (*Entry, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT item_id, local_path, last_title, updated_at FROM key_entries WHERE item_id = ?`,
		itemID,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get key entry: %w", err)
	}
	return entry, nil
}

// Put upserts the mapping for a record using its resolved output path.
func (s *Store) Put(ctx context.Context, record *catalog.VideoRecord) error {
	if record == nil {
		return errors.New("record is nil")
	}
	if strings.TrimSpace(record.ID) == "" {
		return errors.New("record id is empty")
	}
	if strings.TrimSpace(record.OutputPath) == "" {
		return errors.New("record output path is empty")
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO key_entries (item_id, local_path, last_title, updated_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(item_id) DO UPDATE SET
             local_path = excluded.local_path,
             last_title = excluded.last_title,
             updated_at = excluded.updated_at`,
		record.ID,
		record.OutputPath,
		record.Title,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert key entry: %w", err)
	}
	return nil
}

// PathsFor returns the recorded local paths for the given ids. Ids without
// an entry are simply absent from the result.
func (s *Store) PathsFor(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		entry, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			out[id] = entry.LocalPath
		}
	}
	return out, nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		itemID     string
		localPath  string
		lastTitle  string
		updatedRaw string
	)
	if err := scanner.Scan(&itemID, &localPath, &lastTitle, &updatedRaw); err != nil {
		return nil, err
	}
	entry := &Entry{ItemID: itemID, LocalPath: localPath, LastTitle: lastTitle}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		entry.UpdatedAt = updated
	}
	return entry, nil
}
