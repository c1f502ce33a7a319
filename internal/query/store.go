package query

import (
	"database/sql"
	"fmt"

	"github.com/ohler55/ojg/oj"
	_ "modernc.org/sqlite"

	"github.com/agentic-research/pathtree/internal/template"
)

// Store persists scan results in a sqlite database so repeated queries over
// a large directory structure can skip the filesystem walk.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if necessary) a match database.
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA synchronous = OFF"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		_ = db.Close()
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS matches (
		filename   TEXT PRIMARY KEY,
		short_name TEXT NOT NULL,
		variables  JSON NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_short_name ON matches(short_name);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save replaces the stored match set with the given one.
func (s *Store) Save(matches []Match) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM matches"); err != nil {
		_ = tx.Rollback()
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO matches (filename, short_name, variables)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, m := range matches {
		vars := make(map[string]any, len(m.Variables))
		for k, v := range m.Variables {
			vars[k] = v
		}
		if _, err := stmt.Exec(m.Filename, m.ShortName, oj.JSON(vars)); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("store match %s: %w", m.Filename, err)
		}
	}
	_ = stmt.Close()
	return tx.Commit()
}

// Load returns every stored match, ordered by filename.
func (s *Store) Load() ([]Match, error) {
	rows, err := s.db.Query("SELECT filename, short_name, variables FROM matches ORDER BY filename")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var varsJSON string
		if err := rows.Scan(&m.Filename, &m.ShortName, &varsJSON); err != nil {
			return nil, err
		}
		parsed, err := oj.ParseString(varsJSON)
		if err != nil {
			return nil, fmt.Errorf("match %s: %w", m.Filename, err)
		}
		obj, ok := parsed.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("match %s: variables is not an object", m.Filename)
		}
		m.Variables = template.Bindings{}
		for k, raw := range obj {
			str, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("match %s: variable %q is not a string", m.Filename, k)
			}
			m.Variables[k] = str
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
