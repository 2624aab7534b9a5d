package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetPref returns the value stored under key. ok is false when nothing is stored.
func (s *SQLiteStorage) GetPref(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM device_prefs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read pref %s: %w", key, err)
	}
	return value, true, nil
}

// SetPref stores value under key, replacing any previous value.
func (s *SQLiteStorage) SetPref(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO device_prefs (key, value) VALUES (?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value
    `, key, value)
	if err != nil {
		return fmt.Errorf("failed to write pref %s: %w", key, err)
	}
	return nil
}

// DeletePref removes key. Missing keys are ignored.
func (s *SQLiteStorage) DeletePref(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM device_prefs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete pref %s: %w", key, err)
	}
	return nil
}
