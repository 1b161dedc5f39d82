package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteHandle stores rows in a single sqlite table.
type SQLiteHandle struct {
	db *sql.DB
}

var _ Handle = (*SQLiteHandle)(nil)

func NewSQLiteHandle(path string) (*SQLiteHandle, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode=WAL;")
	if err != nil {
		db.Close()
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS entity_rows (
			type_id INTEGER NOT NULL,
			object_id INTEGER NOT NULL,
			data BLOB NOT NULL,
			PRIMARY KEY (type_id, object_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteHandle{db: db}, nil
}

// object ids are full uint64 values; sqlite integers are signed, so the
// bits are stored as-is.
func sqlObjectID(id uint64) int64 {
	return int64(id)
}

func (s *SQLiteHandle) Get(ctx context.Context, key Key) ([]byte, error) {
	var data []byte

	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM entity_rows WHERE type_id = ? AND object_id = ?",
		key.TypeID, sqlObjectID(key.ID),
	).Scan(&data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query row: %w", err)
	}

	return data, nil
}

func (s *SQLiteHandle) Put(ctx context.Context, key Key, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entity_rows (type_id, object_id, data) VALUES (?, ?, ?)
		ON CONFLICT (type_id, object_id) DO UPDATE SET data = excluded.data
	`, key.TypeID, sqlObjectID(key.ID), data)
	if err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}

	return nil
}

func (s *SQLiteHandle) Close() error {
	return s.db.Close()
}
