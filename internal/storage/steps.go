package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSteps is returned for a negative step count or a missing user/date.
var ErrInvalidSteps = errors.New("invalid step count")

// GetSteps returns the step count recorded for userID on date, 0 when none was recorded.
func (s *SQLiteStorage) GetSteps(ctx context.Context, userID, date string) (int, error) {
	var steps int
	err := s.db.QueryRowContext(ctx,
		`SELECT steps FROM daily_steps WHERE user_id = ? AND log_date = ?`, userID, date,
	).Scan(&steps)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read steps: %w", err)
	}
	return steps, nil
}

// SetSteps records the day's step count, replacing any earlier value.
func (s *SQLiteStorage) SetSteps(ctx context.Context, userID, date string, steps int) error {
	if userID == "" || date == "" || steps < 0 {
		return fmt.Errorf("%w: user=%q date=%q steps=%d", ErrInvalidSteps, userID, date, steps)
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO daily_steps (user_id, log_date, steps, updated_at) VALUES (?, ?, ?, ?)
        ON CONFLICT(user_id, log_date) DO UPDATE SET steps = excluded.steps, updated_at = excluded.updated_at
    `, userID, date, steps, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to write steps: %w", err)
	}
	return nil
}
