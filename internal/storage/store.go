package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"fintrack/internal/core"
	applog "fintrack/internal/log"

	_ "modernc.org/sqlite"
)

// ErrCorruptSnapshot marks a snapshot file that exists but cannot be read
// back into a consistent database. Callers should treat it as fatal rather
// than silently starting from an empty store.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// snapshotTables lists the relations copied between the in-memory database
// and the on-disk snapshot, parents before children.
var snapshotTables = []struct {
	name    string
	columns string
}{
	{"users", "id, email, password"},
	{"categories", "id, name, budget"},
	{"transactions", "id, category_id, amount, description, date, type"},
	{"budgets", "id, category_id, amount, period, start_date"},
	{"summary", "id, total_income, total_expenses, current_balance"},
}

// Store owns the in-memory database and its on-disk snapshot. All mutations
// and the flush are serialized through its lock; the HTTP server runs
// handlers in parallel, so the single-writer discipline must be explicit.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// Open restores the snapshot at path into a fresh in-memory database, or
// initializes an empty schema with the default categories when no snapshot
// exists. A snapshot that exists but cannot be restored is an error.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create snapshot directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}
	// Every connection to ":memory:" is a distinct empty database, so the
	// pool must be pinned to a single connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	_, err = os.Stat(path)
	switch {
	case err == nil:
		if err := s.restore(); err != nil {
			db.Close()
			return nil, fmt.Errorf("restore snapshot %s: %w", path, err)
		}
		slog.Info("Snapshot restored",
			applog.FieldComponent, applog.ComponentStorage,
			applog.FieldDBPath, path)
	case os.IsNotExist(err):
		if err := s.seedDefaultCategories(); err != nil {
			db.Close()
			return nil, fmt.Errorf("seed categories: %w", err)
		}
		slog.Info("No snapshot found, initialized empty store",
			applog.FieldComponent, applog.ComponentStorage,
			applog.FieldDBPath, path)
	default:
		db.Close()
		return nil, fmt.Errorf("stat snapshot %s: %w", path, err)
	}

	return s, nil
}

// initSchema applies migrations and is safe to re-run against a populated
// store: existing relations and rows are left untouched.
func (s *Store) initSchema() error {
	return runMigrations(s.db)
}

// seedDefaultCategories inserts the default category set, keyed on the
// unique name so a re-run never duplicates rows.
func (s *Store) seedDefaultCategories() error {
	for _, name := range core.DefaultCategories {
		if _, err := s.db.Exec(`INSERT OR IGNORE INTO categories (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}
	return nil
}

// restore replaces the freshly migrated tables with the rows of the on-disk
// snapshot. Any failure here means the snapshot cannot be trusted.
func (s *Store) restore() error {
	if _, err := s.db.Exec(`ATTACH DATABASE ? AS snapshot`, s.path); err != nil {
		return fmt.Errorf("%w: attach: %v", ErrCorruptSnapshot, err)
	}

	copyAll := func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		for _, t := range snapshotTables {
			if _, err := tx.Exec(`DELETE FROM ` + t.name); err != nil {
				return fmt.Errorf("clear %s: %v", t.name, err)
			}
			q := fmt.Sprintf(`INSERT INTO %s (%s) SELECT %s FROM snapshot.%s`,
				t.name, t.columns, t.columns, t.name)
			if _, err := tx.Exec(q); err != nil {
				return fmt.Errorf("copy %s: %v", t.name, err)
			}
		}
		return tx.Commit()
	}

	copyErr := copyAll()
	if _, err := s.db.Exec(`DETACH DATABASE snapshot`); err != nil && copyErr == nil {
		copyErr = fmt.Errorf("detach: %v", err)
	}
	if copyErr != nil {
		return fmt.Errorf("%w: %v", ErrCorruptSnapshot, copyErr)
	}
	return nil
}

// Flush serializes the full in-memory image to the snapshot path. It writes
// to a temporary file, verifies it, and renames it into place, so a reader
// of the snapshot never observes a half-written image. A flush runs to
// completion once started: interrupting VACUUM INTO mid-write poisons the
// single connection and the next serialize comes out empty.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale temp snapshot: %w", err)
	}

	if _, err := s.db.ExecContext(context.WithoutCancel(ctx), `VACUUM INTO ?`, tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("serialize snapshot: %w", err)
	}

	if err := verifySnapshot(tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("verify snapshot: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace snapshot: %w", err)
	}

	slog.Debug("Snapshot flushed",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldDBPath, s.path)
	return nil
}

// verifySnapshot opens a freshly written image and checks that it is a
// sound database holding every snapshot table. A broken image must never
// replace the previous good snapshot.
func verifySnapshot(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow(`PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check: %s", result)
	}

	for _, t := range snapshotTables {
		var name string
		err := db.QueryRow(
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, t.name).
			Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("missing table %s", t.name)
		}
		if err != nil {
			return fmt.Errorf("check table %s: %w", t.name, err)
		}
	}
	return nil
}

// Close releases the in-memory database. It does not flush; callers that
// want a final snapshot flush before closing.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
