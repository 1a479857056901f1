package preferences

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(connectionString string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// every pooled connection to ":memory:" would otherwise see its own empty database
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS preferences (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS string_sets (
			key TEXT NOT NULL,
			member TEXT NOT NULL,
			PRIMARY KEY (key, member)
		)`,
		`CREATE TABLE IF NOT EXISTS captured_at (
			image_path TEXT PRIMARY KEY,
			unix_nano INTEGER NOT NULL
		)`,
	}
	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) GetString(ctx context.Context, key, defaultValue string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return defaultValue, nil
	}
	if err != nil {
		return defaultValue, err
	}
	return value, nil
}

func (s *SQLiteStore) GetStringSet(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT member FROM string_sets WHERE key = ?", key)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	members := []string{}
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func (s *SQLiteStore) RecordAnalysis(ctx context.Context, record Record) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO string_sets (key, member) VALUES (?, ?)",
		ImagePathsKey, record.ImagePath); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		"INSERT INTO preferences (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		record.ImagePath, record.ResultPath); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		"INSERT INTO captured_at (image_path, unix_nano) VALUES (?, ?) ON CONFLICT(image_path) DO UPDATE SET unix_nano = excluded.unix_nano",
		record.ImagePath, record.CapturedAt.UnixNano()); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) Records(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT s.member, COALESCE(p.value, ''), COALESCE(c.unix_nano, 0)
		FROM string_sets s
		LEFT JOIN preferences p ON p.key = s.member
		LEFT JOIN captured_at c ON c.image_path = s.member
		WHERE s.key = ?`, ImagePathsKey)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	records := []Record{}
	for rows.Next() {
		var record Record
		var unixNano int64
		if err := rows.Scan(&record.ImagePath, &record.ResultPath, &unixNano); err != nil {
			return nil, err
		}
		if unixNano != 0 {
			record.CapturedAt = time.Unix(0, unixNano)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) DeleteRecord(ctx context.Context, imagePath string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM string_sets WHERE key = ? AND member = ?", ImagePathsKey, imagePath); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM preferences WHERE key = ?", imagePath); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM captured_at WHERE image_path = ?", imagePath); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
