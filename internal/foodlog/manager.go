// Package foodlog owns the in-memory food log for the active day.
//
// Manager is the single writer of the entry list. Mutations are applied
// locally first and then confirmed against a Gateway; a failed confirmation
// rolls back exactly what was applied and raises an error toast. Mutations
// touching the same entry id are serialized, so a delete issued while the
// add of that entry is still in flight acts on the add's outcome.
package foodlog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mcp-food-log/internal/logging"
	"mcp-food-log/internal/models"
	"mcp-food-log/internal/nutrition"
)

// DefaultToastDuration is how long a notification stays visible.
const DefaultToastDuration = 3000 * time.Millisecond

const dateLayout = "2006-01-02"

// Gateway is the remote row store the log is mirrored to.
type Gateway interface {
	InsertEntries(ctx context.Context, entries []models.FoodLogEntry) error
	ListEntries(ctx context.Context, userID, date string) ([]models.FoodLogEntry, error)
	DeleteEntry(ctx context.Context, id, userID string) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides time.Now. The clock's location decides the local date.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator overrides UUID generation for new entries.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

// WithToastDuration overrides DefaultToastDuration.
func WithToastDuration(d time.Duration) Option {
	return func(m *Manager) { m.toastDuration = d }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger *logging.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// Manager holds today's entries for one user.
type Manager struct {
	gateway       Gateway
	logger        *logging.Logger
	now           func() time.Time
	newID         func() string
	toastDuration time.Duration
	idLocks       *keyedMutex

	mu          sync.Mutex
	userID      string
	entries     []models.FoodLogEntry
	loading     bool
	loadSeq     uint64
	lastLoadErr error
	toast       models.ToastState
	toastSeq    uint64
	toastTimer  *time.Timer
}

// NewManager creates a manager for userID. It does not load; call Load.
func NewManager(gateway Gateway, userID string, opts ...Option) *Manager {
	m := &Manager{
		gateway:       gateway,
		logger:        logging.NewNop(),
		now:           time.Now,
		newID:         uuid.NewString,
		toastDuration: DefaultToastDuration,
		idLocks:       newKeyedMutex(),
		userID:        userID,
		entries:       []models.FoodLogEntry{},
		toast:         models.ToastState{Type: models.ToastSuccess},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("foodlog")
	return m
}

// Today returns the active local date as YYYY-MM-DD.
func (m *Manager) Today() string {
	return m.now().Format(dateLayout)
}

// UserID returns the active user, empty when signed out.
func (m *Manager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

// SetUser switches the active user and reloads. An empty id signs out:
// the log is cleared and add/delete become no-ops.
func (m *Manager) SetUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	m.userID = userID
	m.entries = []models.FoodLogEntry{}
	m.mu.Unlock()
	return m.Load(ctx)
}

// Load replaces the local entries with the remote rows for today.
//
// On failure the local list is cleared rather than kept stale. The error is
// logged, kept for LastLoadError, and returned. A response that arrives after
// the user changed or a newer Load started is discarded.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	userID := m.userID
	if userID == "" {
		m.entries = []models.FoodLogEntry{}
		m.loading = false
		m.lastLoadErr = nil
		m.mu.Unlock()
		return nil
	}
	m.loadSeq++
	seq := m.loadSeq
	m.loading = true
	m.mu.Unlock()

	ctx = logging.WithUserID(ctx, userID)
	date := m.Today()
	entries, err := m.gateway.ListEntries(ctx, userID, date)

	m.mu.Lock()
	defer m.mu.Unlock()

	if seq != m.loadSeq || userID != m.userID {
		m.logger.Debug(ctx, "discarding stale load", zap.String("date", date))
		return nil
	}
	m.loading = false

	if err != nil {
		m.logger.Error(ctx, "failed to load food entries", zap.String("date", date), zap.Error(err))
		m.entries = []models.FoodLogEntry{}
		m.lastLoadErr = err
		return fmt.Errorf("failed to load food entries: %w", err)
	}

	if entries == nil {
		entries = []models.FoodLogEntry{}
	}
	m.entries = entries
	m.lastLoadErr = nil
	m.logger.Debug(ctx, "food entries loaded", zap.String("date", date), zap.Int("count", len(entries)))
	return nil
}

// AddFromAI logs the given parsed items for today. The entries appear
// immediately; if the remote insert fails they are removed again and an error
// toast is shown. It returns the saved entries, or nil when nothing was saved.
func (m *Manager) AddFromAI(ctx context.Context, items []models.AIFoodItem) []models.FoodLogEntry {
	userID := m.UserID()
	if userID == "" || len(items) == 0 {
		return nil
	}
	ctx = logging.WithUserID(ctx, userID)

	now := m.now()
	date := now.Format(dateLayout)
	stamp := now.UTC()

	entries := make([]models.FoodLogEntry, len(items))
	ids := make([]string, len(items))
	for i, item := range items {
		entries[i] = models.FoodLogEntry{
			ID:        m.newID(),
			UserID:    userID,
			Date:      date,
			Name:      strings.TrimSpace(item.Name),
			Amount:    item.Amount,
			Unit:      models.Grams,
			Calories:  item.Calories,
			Protein:   item.Protein,
			Carbs:     item.Carbs,
			Fat:       item.Fat,
			CreatedAt: stamp,
			UpdatedAt: stamp,
		}
		ids[i] = entries[i].ID
	}

	unlock := m.idLocks.Lock(ids...)
	defer unlock()

	tok := m.applyAdd(entries)

	if err := m.gateway.InsertEntries(ctx, entries); err != nil {
		m.logger.Error(ctx, "failed to save food entries", zap.Int("count", len(entries)), zap.Error(err))
		m.rollback(tok)
		m.ShowToast("Failed to save food entries", models.ToastError)
		return nil
	}

	m.logger.Info(ctx, "food entries saved", zap.Int("count", len(entries)))
	m.ShowToast(addedMessage(len(entries)), models.ToastSuccess)
	return entries
}

// Delete removes an entry. It disappears immediately; if the remote delete
// fails the exact captured entry is restored. It reports whether the delete
// was confirmed.
func (m *Manager) Delete(ctx context.Context, id string) bool {
	userID := m.UserID()
	if userID == "" || id == "" {
		return false
	}
	ctx = logging.WithUserID(ctx, userID)

	unlock := m.idLocks.Lock(id)
	defer unlock()

	tok := m.applyRemove(id)

	if err := m.gateway.DeleteEntry(ctx, id, userID); err != nil {
		m.logger.Error(ctx, "failed to delete food entry", zap.String("entry_id", id), zap.Error(err))
		m.rollback(tok)
		m.ShowToast("Failed to delete food entry", models.ToastError)
		return false
	}

	m.logger.Info(ctx, "food entry deleted", zap.String("entry_id", id))
	return true
}

// Entries returns a copy of today's entries, oldest first.
func (m *Manager) Entries() []models.FoodLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.FoodLogEntry{}, m.entries...)
}

// Totals sums today's entries.
func (m *Manager) Totals() models.DailyFoodTotals {
	m.mu.Lock()
	defer m.mu.Unlock()
	return nutrition.DailyTotals(m.entries)
}

// IsLoading reports whether a Load is in flight.
func (m *Manager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// LastLoadError returns the error of the most recent Load, nil if it succeeded.
func (m *Manager) LastLoadError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastLoadErr
}

// Snapshot is a consistent view of the manager's state.
type Snapshot struct {
	UserID    string                 `json:"user_id"`
	Date      string                 `json:"date"`
	Entries   []models.FoodLogEntry  `json:"entries"`
	Totals    models.DailyFoodTotals `json:"totals"`
	IsLoading bool                   `json:"is_loading"`
	LoadError string                 `json:"load_error,omitempty"`
	Toast     models.ToastState      `json:"toast"`
}

// Snapshot captures entries, totals and toast under one lock.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		UserID:    m.userID,
		Date:      m.Today(),
		Entries:   append([]models.FoodLogEntry{}, m.entries...),
		Totals:    nutrition.DailyTotals(m.entries),
		IsLoading: m.loading,
		Toast:     m.toast,
	}
	if m.lastLoadErr != nil {
		s.LoadError = m.lastLoadErr.Error()
	}
	return s
}

// Close stops the pending toast timer.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.toastTimer != nil {
		m.toastTimer.Stop()
		m.toastTimer = nil
	}
}

func addedMessage(n int) string {
	if n == 1 {
		return "Added 1 food to log"
	}
	return fmt.Sprintf("Added %d foods to log", n)
}
