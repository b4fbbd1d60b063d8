package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	apperrors "certprep/internal/errors"
	"certprep/internal/logger"
)

// SQLiteStore is a Store backed by a single-file SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log *logger.Logger
}

// OpenSQLite opens (creating if necessary) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	log := logger.Default().WithPrefix("storage").WithField("db", path)

	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", path)
	log.Info("opening database")

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.Error("failed to open database: %v", err)
		return nil, apperrors.NewStorageError("open database", err)
	}
	db.SetMaxOpenConns(1) // SQLite best practice for single writer

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS app_state (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`); err != nil {
		log.Error("failed to create app_state table: %v", err)
		db.Close()
		return nil, apperrors.NewStorageError("create app_state table", err)
	}

	log.Debug("database ready")
	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	query, args, err := sq.Select("value").
		From("app_state").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return "", err
	}

	var value string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		s.log.Error("failed to read key %q: %v", key, err)
		return "", apperrors.NewStorageError("get "+key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	query, args, err := sq.Insert("app_state").
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP").
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.log.Error("failed to write key %q: %v", key, err)
		return apperrors.NewStorageError("set "+key, err)
	}
	s.log.Debug("wrote key %q (%d bytes)", key, len(value))
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	query, args, err := sq.Delete("app_state").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.log.Error("failed to delete key %q: %v", key, err)
		return apperrors.NewStorageError("delete "+key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
