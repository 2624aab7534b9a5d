// internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"mcp-food-log/internal/models"
)

// ErrInvalidEntry is returned when an entry fails validation before insert.
var ErrInvalidEntry = errors.New("invalid food log entry")

// timeLayout is fixed-width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS food_log_entries (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        log_date TEXT NOT NULL,
        name TEXT NOT NULL,
        amount REAL NOT NULL,
        unit TEXT NOT NULL,
        calories REAL NOT NULL,
        protein REAL NOT NULL,
        carbs REAL NOT NULL,
        fat REAL NOT NULL,
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_entries_user_date ON food_log_entries(user_id, log_date);

    CREATE TABLE IF NOT EXISTS device_prefs (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS daily_steps (
        user_id TEXT NOT NULL,
        log_date TEXT NOT NULL,
        steps INTEGER NOT NULL,
        updated_at TEXT NOT NULL,
        PRIMARY KEY (user_id, log_date)
    );
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// InsertEntries stores all entries in one transaction. Either every row is
// written or none is.
func (s *SQLiteStorage) InsertEntries(ctx context.Context, entries []models.FoodLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		if err := validateEntry(&entries[i]); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
        INSERT INTO food_log_entries
            (id, user_id, log_date, name, amount, unit, calories, protein, carbs, fat, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	for _, e := range entries {
		_, err = tx.ExecContext(ctx, query,
			e.ID, e.UserID, e.Date, e.Name, e.Amount, string(e.Unit),
			e.Calories, e.Protein, e.Carbs, e.Fat,
			e.CreatedAt.UTC().Format(timeLayout), e.UpdatedAt.UTC().Format(timeLayout))
		if err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// ListEntries returns a user's entries for one date, oldest first.
func (s *SQLiteStorage) ListEntries(ctx context.Context, userID, date string) ([]models.FoodLogEntry, error) {
	query := `
        SELECT id, user_id, log_date, name, amount, unit, calories, protein, carbs, fat, created_at, updated_at
        FROM food_log_entries
        WHERE user_id = ? AND log_date = ?
        ORDER BY created_at ASC, rowid ASC
    `

	rows, err := s.db.QueryContext(ctx, query, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := []models.FoodLogEntry{}
	for rows.Next() {
		var e models.FoodLogEntry
		var unit, createdAtStr, updatedAtStr string

		err := rows.Scan(
			&e.ID, &e.UserID, &e.Date, &e.Name, &e.Amount, &unit,
			&e.Calories, &e.Protein, &e.Carbs, &e.Fat, &createdAtStr, &updatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}

		e.Unit = models.ServingUnit(unit)
		if e.CreatedAt, err = time.Parse(timeLayout, createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if e.UpdatedAt, err = time.Parse(timeLayout, updatedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return entries, nil
}

// DeleteEntry removes an entry owned by userID. Deleting an id that does not
// exist, or belongs to someone else, is not an error.
func (s *SQLiteStorage) DeleteEntry(ctx context.Context, id, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM food_log_entries WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete entry %s: %w", id, err)
	}
	return nil
}

func validateEntry(e *models.FoodLogEntry) error {
	switch {
	case e.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidEntry)
	case e.UserID == "":
		return fmt.Errorf("%w: user id is required", ErrInvalidEntry)
	case e.Date == "":
		return fmt.Errorf("%w: date is required", ErrInvalidEntry)
	case e.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive, got %v", ErrInvalidEntry, e.Amount)
	case e.Calories < 0 || e.Protein < 0 || e.Carbs < 0 || e.Fat < 0:
		return fmt.Errorf("%w: nutrition values must not be negative", ErrInvalidEntry)
	}
	return nil
}
