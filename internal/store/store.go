// Package store persists project files in SQLite.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

//go:embed all:starter
var starterFS embed.FS

// EntryFile is the file the editor opens and previews by default.
const EntryFile = "App.js"

// ErrNotFound is returned when a file does not exist.
var ErrNotFound = errors.New("file not found")

const schema = `
CREATE TABLE IF NOT EXISTS files (
	project    TEXT    NOT NULL,
	name       TEXT    NOT NULL,
	contents   TEXT    NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (project, name)
)`

// File is one stored project file.
type File struct {
	Name      string    `json:"name"`
	Contents  string    `json:"contents,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store is a SQLite-backed file store.
type Store struct {
	db    *sql.DB
	path  string
	debug bool
}

// Open opens or creates the database at dbPath.
func Open(dbPath string, debug bool) (*Store, error) {
	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("store: failed to create directory for %s: %w", dbPath, err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open %s: %w", dbPath, err)
	}
	// SQLite serialises writers; a single connection also keeps
	// in-memory databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to connect to %s: %w", dbPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to create schema: %w", err)
	}
	return &Store{db: db, path: dbPath, debug: debug}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StarterFiles returns the starter project keyed by relative path.
func StarterFiles() (map[string]string, error) {
	files := make(map[string]string)
	err := fs.WalkDir(starterFS, "starter", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := starterFS.ReadFile(p)
		if err != nil {
			return err
		}
		files[strings.TrimPrefix(p, "starter/")] = string(data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: read starter files: %w", err)
	}
	return files, nil
}

// Seed writes the starter files when project has none. It reports whether
// anything was written.
func (s *Store) Seed(ctx context.Context, project string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE project = ?`, project).Scan(&n); err != nil {
		return false, fmt.Errorf("store: count files: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	files, err := StarterFiles()
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("store: begin seed: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for name, contents := range files {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO files (project, name, contents, updated_at) VALUES (?, ?, ?, ?)`,
			project, name, contents, now); err != nil {
			return false, fmt.Errorf("store: seed %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("store: commit seed: %w", err)
	}
	if s.debug {
		log.Printf("[Store] Seeded project %q with %d files", project, len(files))
	}
	return true, nil
}

// List returns the files of project ordered by name, without contents.
func (s *Store) List(ctx context.Context, project string) ([]File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, updated_at FROM files WHERE project = ? ORDER BY name`, project)
	if err != nil {
		return nil, fmt.Errorf("store: list files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		var updated int64
		if err := rows.Scan(&f.Name, &updated); err != nil {
			return nil, fmt.Errorf("store: scan file: %w", err)
		}
		f.UpdatedAt = time.UnixMilli(updated)
		files = append(files, f)
	}
	return files, rows.Err()
}

// Get returns one file.
func (s *Store) Get(ctx context.Context, project, name string) (*File, error) {
	if err := ValidName(name); err != nil {
		return nil, err
	}
	f := File{Name: name}
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT contents, updated_at FROM files WHERE project = ? AND name = ?`,
		project, name).Scan(&f.Contents, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", name, err)
	}
	f.UpdatedAt = time.UnixMilli(updated)
	return &f, nil
}

// Put creates or replaces a file.
func (s *Store) Put(ctx context.Context, project, name, contents string) error {
	if err := ValidName(name); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (project, name, contents, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (project, name) DO UPDATE SET contents = excluded.contents, updated_at = excluded.updated_at`,
		project, name, contents, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("store: put %s: %w", name, err)
	}
	if s.debug {
		log.Printf("[Store] Saved %s/%s (%d bytes)", project, name, len(contents))
	}
	return nil
}

// ValidName rejects names that are empty, absolute or escape the project.
func ValidName(name string) error {
	switch {
	case name == "":
		return errors.New("file name is required")
	case strings.HasPrefix(name, "/"), strings.Contains(name, `\`):
		return fmt.Errorf("invalid file name %q", name)
	case path.Clean(name) != name, name == ".", strings.HasPrefix(name, "../"), name == "..":
		return fmt.Errorf("invalid file name %q", name)
	}
	return nil
}
