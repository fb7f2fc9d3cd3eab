package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/northgate-labs/docsync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/northgate-labs/docsync/internal/core/domain"
	"github.com/northgate-labs/docsync/internal/core/ports/driven"
)

// Store is the SQLite-backed metadata store. It currently holds only
// delta-sync cursors but owns the schema and migration machinery so
// further tables can be added without touching callers.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.docsync/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docsync", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// WAL mode for better concurrency between webhook and scheduler triggers
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

// CursorStore returns a CursorStore interface backed by this store.
func (s *Store) CursorStore() driven.CursorStore {
	return &cursorStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
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
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Cursor Store ====================

// cursorStore implements driven.CursorStore.
type cursorStore struct {
	store *Store
}

var _ driven.CursorStore = (*cursorStore)(nil)

// Save stores or updates sync state for a collection.
func (s *cursorStore) Save(ctx context.Context, state domain.SyncState) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_states (collection_id, cursor, last_sync)
		VALUES (?, ?, ?)
		ON CONFLICT(collection_id) DO UPDATE SET
			cursor = excluded.cursor,
			last_sync = excluded.last_sync
	`, state.CollectionID, state.Cursor, state.LastSync)

	if err != nil {
		return fmt.Errorf("saving sync state: %w", err)
	}
	return nil
}

// Get retrieves sync state for a collection.
func (s *cursorStore) Get(ctx context.Context, collectionID string) (*domain.SyncState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT collection_id, cursor, last_sync
		FROM sync_states WHERE collection_id = ?
	`, collectionID)

	var state domain.SyncState
	var lastSync sql.NullTime
	if err := row.Scan(&state.CollectionID, &state.Cursor, &lastSync); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning sync state: %w", err)
	}

	if lastSync.Valid {
		state.LastSync = lastSync.Time
	}

	return &state, nil
}

// Delete removes sync state for a collection.
func (s *cursorStore) Delete(ctx context.Context, collectionID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM sync_states WHERE collection_id = ?", collectionID)
	if err != nil {
		return fmt.Errorf("deleting sync state: %w", err)
	}
	return nil
}
