package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS chats (
	id         TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
)`

// SQLiteRepository keeps one row per chat with the JSON record as payload.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps :memory: databases alive and serializes writers
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	data, err := json.Marshal(normalize(rec))
	if err != nil {
		return fmt.Errorf("encode %s: %w", rec.ID, err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO chats (id, payload, updated_at) VALUES (?, ?, strftime('%s','now'))
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		string(rec.ID), string(data))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", rec.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) LoadAll(ctx context.Context) ([]Record, []error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, payload FROM chats ORDER BY id`)
	if err != nil {
		return nil, []error{&LoadError{Key: "chats", Err: err}}
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var (
		records []Record
		errs    []error
	)
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			errs = append(errs, &LoadError{Key: "chats", Err: err})
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			errs = append(errs, &LoadError{Key: id, Err: fmt.Errorf("decode: %w", err)})
			continue
		}
		rec.ID = ChatID(id)
		records = append(records, normalize(rec))
	}
	if err := rows.Err(); err != nil {
		errs = append(errs, &LoadError{Key: "chats", Err: err})
	}
	return records, errs
}

func (r *SQLiteRepository) Close() error { return r.db.Close() }
