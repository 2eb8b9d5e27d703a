package kvstore

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// SQLiteKV persists key/value pairs in a single-table SQLite database.
type SQLiteKV struct {
	db *sql.DB
}

var _ KV = &SQLiteKV{}

func NewSQLiteKV(dsn string) (*SQLiteKV, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlite kv: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite kv: open")
	}
	s := &SQLiteKV{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteKV) migrate() error {
	if s == nil || s.db == nil {
		return errors.New("sqlite kv: db is nil")
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at_ms INTEGER NOT NULL
	);`)
	return errors.Wrap(err, "sqlite kv: migrate")
}

func (s *SQLiteKV) Get(key string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, errors.New("sqlite kv: db is nil")
	}
	var v string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "sqlite kv: get")
	}
	return v, true, nil
}

func (s *SQLiteKV) Set(key, value string) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite kv: db is nil")
	}
	if key == "" {
		return errors.New("sqlite kv: key is empty")
	}
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at_ms) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at_ms = excluded.updated_at_ms`,
		key, value, time.Now().UnixMilli(),
	)
	return errors.Wrap(err, "sqlite kv: set")
}

func (s *SQLiteKV) Delete(key string) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite kv: db is nil")
	}
	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return errors.Wrap(err, "sqlite kv: delete")
}

func (s *SQLiteKV) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
