package preset

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/chazu/citybuilder/pkg/state"
)

//go:embed schema.sql
var schema string

// Store persists a Library in a sqlite database, one row per preset.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// Init creates the preset table.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Save replaces the stored presets with the contents of lib.
func (s *Store) Save(ctx context.Context, lib *Library) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM presets`); err != nil {
		return fmt.Errorf("clear presets: %w", err)
	}
	for _, kind := range lib.Kinds() {
		for i, p := range lib.list(kind) {
			data, merr := p.MarshalJSON()
			if merr != nil {
				err = fmt.Errorf("encode %s preset %q: %w", kind, p.Name(), merr)
				return err
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO presets (kind, position, name, state)
				VALUES (?, ?, ?, ?)
			`, kind, i, p.Name(), string(data))
			if err != nil {
				return fmt.Errorf("insert %s preset %q: %w", kind, p.Name(), err)
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load reads every stored preset. Kinds missing from the database keep the
// built-in defaults.
func (s *Store) Load(ctx context.Context) (*Library, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, name, state
		FROM presets
		ORDER BY kind, position
	`)
	if err != nil {
		return nil, fmt.Errorf("query presets: %w", err)
	}
	defer rows.Close()

	lists := make(map[string][]*state.Node)
	for rows.Next() {
		var kind, name, data string
		if err := rows.Scan(&kind, &name, &data); err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		st, err := state.Decode([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("%s preset %q: %w", kind, name, err)
		}
		lists[kind] = append(lists[kind], st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lib := NewLibrary()
	for kind, ps := range lists {
		lib.set(kind, ps)
	}
	return lib, nil
}
