// Package storage is the client's durable key/value store (the session token and the
// current user survive restarts). It is backed by a local SQLite file.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/trezcool/feeportal/client/storage/migrations"
)

const (
	KeyToken       = "token"
	KeyCurrentUser = "currentUser"
)

// Storage is what the client contexts need from the local store.
// Get returns a nil value and no error when the key is absent.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

type SQLiteStore struct {
	db *sql.DB
}

var _ Storage = (*SQLiteStore)(nil)

// Open opens (creating it if needed) the SQLite database at path and migrates it.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening local store")
	}
	// a single connection keeps writes serialized and ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if err = migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger()) // keep the CLI output clean
	if err := goose.SetDialect("sqlite3"); err != nil {
		return errors.Wrap(err, "setting goose dialect")
	}
	return errors.Wrap(goose.UpContext(ctx, db, "."), "migrating local store")
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "getting %s", key)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return errors.Wrapf(err, "setting %s", key)
}

// Delete removes the keys in a single transaction; missing keys are ignored.
func (s *SQLiteStore) Delete(ctx context.Context, keys ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	for _, key := range keys {
		if _, err = tx.ExecContext(ctx, `DELETE FROM state WHERE key = ?`, key); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "deleting %s", key)
		}
	}
	return errors.Wrap(tx.Commit(), "committing deletion")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetJSON decodes the value stored under key into dst. It reports false when the key is absent.
func GetJSON(ctx context.Context, s Storage, key string, dst interface{}) (bool, error) {
	raw, err := s.Get(ctx, key)
	if err != nil || raw == nil {
		return false, err
	}
	if err = json.Unmarshal(raw, dst); err != nil {
		return false, errors.Wrapf(err, "decoding %s", key)
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Storage, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", key)
	}
	return s.Set(ctx, key, raw)
}
