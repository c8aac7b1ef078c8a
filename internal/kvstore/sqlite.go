// SPDX-License-Identifier: MIT

package kvstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/biketrack/biketrack/internal/persistence/sqlite"
)

const sqlSchemaVersion = 1

// SQLStore keeps records in the device_config table as JSON text.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLStore opens (and migrates) a SQLite device store.
func OpenSQLStore(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sqlite.Open(ctx, path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	s := &SQLStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("device store: migration failed: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= sqlSchemaVersion {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const schema = `
	CREATE TABLE IF NOT EXISTS device_config (
		device_id  TEXT PRIMARY KEY,
		data       TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", sqlSchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) Put(ctx context.Context, deviceID string, kv map[string]string) error {
	if err := checkID(deviceID); err != nil {
		return err
	}
	buf, err := json.Marshal(kv)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO device_config (device_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		deviceID, string(buf), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite put %s: %w", deviceID, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, deviceID string) (map[string]string, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM device_config WHERE device_id = ?", deviceID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, deviceID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get %s: %w", deviceID, err)
	}
	out := map[string]string{}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("decode device %s: %w", deviceID, err)
	}
	return out, nil
}

func (s *SQLStore) Delete(ctx context.Context, deviceID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM device_config WHERE device_id = ?", deviceID)
	if err != nil {
		return fmt.Errorf("sqlite delete %s: %w", deviceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, deviceID)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT device_id FROM device_config ORDER BY device_id")
	if err != nil {
		return nil, fmt.Errorf("sqlite list: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Ping verifies connectivity and runs a quick integrity check.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return err
	}
	return sqlite.Check(ctx, s.db, false)
}

func (s *SQLStore) Close() error { return s.db.Close() }
