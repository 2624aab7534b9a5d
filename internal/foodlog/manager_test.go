package foodlog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"mcp-food-log/internal/logging"
	"mcp-food-log/internal/models"
)

var errRemote = errors.New("remote unavailable")

// fakeGateway is an in-memory Gateway with injectable failures.
type fakeGateway struct {
	mu        sync.Mutex
	rows      []models.FoodLogEntry
	insertErr error
	listErr   error
	deleteErr error

	// insertGate, when set, blocks InsertEntries until it is closed.
	insertGate chan struct{}
	// insertStarted is closed when InsertEntries is entered.
	insertStarted chan struct{}

	inserts int
	deletes int
}

func (g *fakeGateway) InsertEntries(ctx context.Context, entries []models.FoodLogEntry) error {
	if g.insertStarted != nil {
		close(g.insertStarted)
	}
	if g.insertGate != nil {
		<-g.insertGate
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inserts++
	if g.insertErr != nil {
		return g.insertErr
	}
	g.rows = append(g.rows, entries...)
	return nil
}

func (g *fakeGateway) ListEntries(ctx context.Context, userID, date string) ([]models.FoodLogEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	var out []models.FoodLogEntry
	for _, r := range g.rows {
		if r.UserID == userID && r.Date == date {
			out = append(out, r)
		}
	}
	return out, nil
}

func (g *fakeGateway) DeleteEntry(ctx context.Context, id, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deletes++
	if g.deleteErr != nil {
		return g.deleteErr
	}
	kept := g.rows[:0]
	for _, r := range g.rows {
		if !(r.ID == id && r.UserID == userID) {
			kept = append(kept, r)
		}
	}
	g.rows = kept
	return nil
}

var fixedNow = time.Date(2026, 1, 19, 12, 30, 0, 0, time.Local)

func sequentialIDs() func() string {
	var n atomic.Int32
	return func() string { return fmt.Sprintf("entry-%d", n.Add(1)) }
}

func newTestManager(g *fakeGateway, opts ...Option) *Manager {
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(sequentialIDs()),
	}
	m := NewManager(g, "user-1", append(base, opts...)...)
	return m
}

func items(names ...string) []models.AIFoodItem {
	out := make([]models.AIFoodItem, len(names))
	for i, n := range names {
		out[i] = models.AIFoodItem{Name: n, Amount: 100, Unit: models.Grams, Calories: 100, Protein: 10, Carbs: 5, Fat: 2}
	}
	return out
}

func TestLoad(t *testing.T) {
	t.Run("no rows yields empty list and zero totals", func(t *testing.T) {
		m := newTestManager(&fakeGateway{})
		defer m.Close()

		require.NoError(t, m.Load(context.Background()))
		assert.NotNil(t, m.Entries())
		assert.Empty(t, m.Entries())
		assert.Equal(t, models.DailyFoodTotals{}, m.Totals())
		assert.False(t, m.IsLoading())
		assert.NoError(t, m.LastLoadError())
	})

	t.Run("loads only today's rows for the user", func(t *testing.T) {
		g := &fakeGateway{rows: []models.FoodLogEntry{
			{ID: "a", UserID: "user-1", Date: "2026-01-19", Calories: 100},
			{ID: "b", UserID: "user-1", Date: "2026-01-18", Calories: 200},
			{ID: "c", UserID: "user-2", Date: "2026-01-19", Calories: 300},
			{ID: "d", UserID: "user-1", Date: "2026-01-19", Calories: 50},
		}}
		m := newTestManager(g)
		defer m.Close()

		require.NoError(t, m.Load(context.Background()))
		entries := m.Entries()
		require.Len(t, entries, 2)
		assert.Equal(t, "a", entries[0].ID)
		assert.Equal(t, "d", entries[1].ID)
		assert.Equal(t, 150.0, m.Totals().Calories)
	})

	t.Run("failure clears the local list", func(t *testing.T) {
		g := &fakeGateway{}
		tl := logging.NewTestLogger()
		m := newTestManager(g, WithLogger(tl.Logger))
		defer m.Close()

		m.AddFromAI(context.Background(), items("apple"))
		require.Len(t, m.Entries(), 1)

		g.listErr = errRemote
		err := m.Load(context.Background())

		assert.ErrorIs(t, err, errRemote)
		assert.ErrorIs(t, m.LastLoadError(), errRemote)
		assert.Empty(t, m.Entries())
		assert.Equal(t, models.DailyFoodTotals{}, m.Totals())
		assert.False(t, m.IsLoading())
		tl.AssertLogged(t, zapcore.ErrorLevel, "failed to load food entries")

		// a later success clears the recorded error
		g.listErr = nil
		require.NoError(t, m.Load(context.Background()))
		assert.NoError(t, m.LastLoadError())
		assert.Len(t, m.Entries(), 1)
	})

	t.Run("signed out clears without calling the gateway", func(t *testing.T) {
		g := &fakeGateway{listErr: errRemote}
		m := NewManager(g, "")
		defer m.Close()

		assert.NoError(t, m.Load(context.Background()))
		assert.Empty(t, m.Entries())
	})
}

func TestAddFromAI(t *testing.T) {
	t.Run("appends immediately and confirms", func(t *testing.T) {
		g := &fakeGateway{}
		m := newTestManager(g)
		defer m.Close()

		saved := m.AddFromAI(context.Background(), items("chicken", "rice"))

		require.Len(t, saved, 2)
		entries := m.Entries()
		require.Len(t, entries, 2)
		for _, e := range entries {
			assert.Equal(t, "user-1", e.UserID)
			assert.Equal(t, "2026-01-19", e.Date)
			assert.Equal(t, models.Grams, e.Unit)
			assert.True(t, fixedNow.Equal(e.CreatedAt))
			assert.Equal(t, e.CreatedAt, e.UpdatedAt)
		}
		assert.Equal(t, "entry-1", entries[0].ID)
		assert.Equal(t, "chicken", entries[0].Name)
		assert.Equal(t, "entry-2", entries[1].ID)
		assert.Equal(t, 200.0, m.Totals().Calories)
		assert.Len(t, g.rows, 2)

		toast := m.Toast()
		assert.True(t, toast.Visible)
		assert.Equal(t, models.ToastSuccess, toast.Type)
		assert.Equal(t, "Added 2 foods to log", toast.Message)
	})

	t.Run("singular message", func(t *testing.T) {
		m := newTestManager(&fakeGateway{})
		defer m.Close()

		m.AddFromAI(context.Background(), items("apple"))
		assert.Equal(t, "Added 1 food to log", m.Toast().Message)
	})

	t.Run("count grows optimistically then reverts on failure", func(t *testing.T) {
		g := &fakeGateway{
			insertErr:     errRemote,
			insertGate:    make(chan struct{}),
			insertStarted: make(chan struct{}),
		}
		m := newTestManager(g)
		defer m.Close()

		// one pre-existing confirmed entry
		m.applyAdd([]models.FoodLogEntry{{ID: "existing", UserID: "user-1", Calories: 10}})
		before := len(m.Entries())

		done := make(chan []models.FoodLogEntry)
		go func() { done <- m.AddFromAI(context.Background(), items("a", "b")) }()

		<-g.insertStarted
		assert.Len(t, m.Entries(), before+2)

		close(g.insertGate)
		saved := <-done

		assert.Nil(t, saved)
		entries := m.Entries()
		require.Len(t, entries, before)
		assert.Equal(t, "existing", entries[0].ID)

		toast := m.Toast()
		assert.True(t, toast.Visible)
		assert.Equal(t, models.ToastError, toast.Type)
		assert.Equal(t, "Failed to save food entries", toast.Message)
	})

	t.Run("rollback removes only the batch's ids", func(t *testing.T) {
		g := &fakeGateway{insertErr: errRemote}
		m := newTestManager(g)
		defer m.Close()

		m.applyAdd([]models.FoodLogEntry{{ID: "x"}, {ID: "y"}})
		m.AddFromAI(context.Background(), items("a", "b", "c"))

		entries := m.Entries()
		require.Len(t, entries, 2)
		assert.Equal(t, "x", entries[0].ID)
		assert.Equal(t, "y", entries[1].ID)
	})

	t.Run("empty list or no user is a no-op", func(t *testing.T) {
		g := &fakeGateway{}
		m := newTestManager(g)
		defer m.Close()
		assert.Nil(t, m.AddFromAI(context.Background(), nil))

		signedOut := NewManager(g, "")
		defer signedOut.Close()
		assert.Nil(t, signedOut.AddFromAI(context.Background(), items("apple")))

		assert.Zero(t, g.inserts)
		assert.False(t, m.Toast().Visible)
	})
}

func TestDelete(t *testing.T) {
	seed := func(g *fakeGateway, m *Manager) []models.FoodLogEntry {
		saved := m.AddFromAI(context.Background(), items("eggs", "toast", "coffee"))
		require.Len(t, saved, 3)
		m.HideToast()
		return saved
	}

	t.Run("removes immediately and confirms", func(t *testing.T) {
		g := &fakeGateway{}
		m := newTestManager(g)
		defer m.Close()
		saved := seed(g, m)

		assert.True(t, m.Delete(context.Background(), saved[1].ID))

		entries := m.Entries()
		require.Len(t, entries, 2)
		assert.Equal(t, saved[0].ID, entries[0].ID)
		assert.Equal(t, saved[2].ID, entries[1].ID)
		assert.Len(t, g.rows, 2)
		assert.False(t, m.Toast().Visible)
	})

	t.Run("failure restores the exact captured entry", func(t *testing.T) {
		g := &fakeGateway{}
		m := newTestManager(g)
		defer m.Close()
		saved := seed(g, m)
		before := m.Entries()

		// make the remote copy differ so a re-fetch would be detectable
		g.rows[1].Name = "remote copy"
		g.deleteErr = errRemote

		assert.False(t, m.Delete(context.Background(), saved[1].ID))

		after := m.Entries()
		assert.Equal(t, before, after)
		assert.Equal(t, "toast", after[1].Name)
		assert.Equal(t, models.ToastError, m.Toast().Type)
	})

	t.Run("restored entry keeps creation order", func(t *testing.T) {
		g := &fakeGateway{deleteErr: errRemote}
		m := newTestManager(g)
		defer m.Close()

		t0 := fixedNow
		m.applyAdd([]models.FoodLogEntry{
			{ID: "a", CreatedAt: t0},
			{ID: "b", CreatedAt: t0.Add(time.Minute)},
			{ID: "c", CreatedAt: t0.Add(2 * time.Minute)},
		})

		m.Delete(context.Background(), "b")

		entries := m.Entries()
		require.Len(t, entries, 3)
		assert.Equal(t, []string{"a", "b", "c"}, []string{entries[0].ID, entries[1].ID, entries[2].ID})
	})

	t.Run("unknown id still issues the idempotent remote delete", func(t *testing.T) {
		g := &fakeGateway{}
		m := newTestManager(g)
		defer m.Close()

		assert.True(t, m.Delete(context.Background(), "missing"))
		assert.Equal(t, 1, g.deletes)
		assert.Empty(t, m.Entries())
	})

	t.Run("no user is a no-op", func(t *testing.T) {
		g := &fakeGateway{}
		m := NewManager(g, "")
		defer m.Close()

		assert.False(t, m.Delete(context.Background(), "x"))
		assert.Zero(t, g.deletes)
	})
}

func TestDeleteWaitsForInFlightAdd(t *testing.T) {
	g := &fakeGateway{
		insertErr:     errRemote,
		insertGate:    make(chan struct{}),
		insertStarted: make(chan struct{}),
	}
	m := newTestManager(g)
	defer m.Close()

	addDone := make(chan struct{})
	go func() {
		m.AddFromAI(context.Background(), items("apple"))
		close(addDone)
	}()
	<-g.insertStarted

	// the optimistic entry is visible, so a user could try to delete it
	entries := m.Entries()
	require.Len(t, entries, 1)
	id := entries[0].ID

	deleteDone := make(chan bool)
	go func() { deleteDone <- m.Delete(context.Background(), id) }()

	select {
	case <-deleteDone:
		t.Fatal("delete finished while the add of the same entry was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(g.insertGate)
	<-addDone
	<-deleteDone

	// the add rolled back and the delete must not resurrect it
	assert.Empty(t, m.Entries())
}

func TestSetUser(t *testing.T) {
	g := &fakeGateway{rows: []models.FoodLogEntry{
		{ID: "a", UserID: "user-1", Date: "2026-01-19"},
		{ID: "b", UserID: "user-2", Date: "2026-01-19"},
	}}
	m := newTestManager(g)
	defer m.Close()

	require.NoError(t, m.Load(context.Background()))
	require.Len(t, m.Entries(), 1)

	require.NoError(t, m.SetUser(context.Background(), "user-2"))
	assert.Equal(t, "user-2", m.UserID())
	require.Len(t, m.Entries(), 1)
	assert.Equal(t, "b", m.Entries()[0].ID)

	require.NoError(t, m.SetUser(context.Background(), ""))
	assert.Empty(t, m.Entries())
}

func TestToast(t *testing.T) {
	t.Run("auto hides after duration", func(t *testing.T) {
		m := newTestManager(&fakeGateway{}, WithToastDuration(20*time.Millisecond))
		defer m.Close()

		m.ShowToast("saved", models.ToastSuccess)
		assert.True(t, m.Toast().Visible)

		assert.Eventually(t, func() bool { return !m.Toast().Visible }, time.Second, 5*time.Millisecond)
		assert.Equal(t, "saved", m.Toast().Message)
	})

	t.Run("newer toast restarts the timer", func(t *testing.T) {
		m := newTestManager(&fakeGateway{}, WithToastDuration(200*time.Millisecond))
		defer m.Close()

		m.ShowToast("first", models.ToastSuccess)
		time.Sleep(120 * time.Millisecond)
		m.ShowToast("second", models.ToastError)
		time.Sleep(120 * time.Millisecond)

		toast := m.Toast()
		assert.True(t, toast.Visible)
		assert.Equal(t, "second", toast.Message)
		assert.Equal(t, models.ToastError, toast.Type)
	})

	t.Run("explicit dismiss", func(t *testing.T) {
		m := newTestManager(&fakeGateway{})
		defer m.Close()

		m.ShowToast("hello", "")
		assert.Equal(t, models.ToastSuccess, m.Toast().Type)
		m.HideToast()
		assert.False(t, m.Toast().Visible)
	})

	t.Run("default duration", func(t *testing.T) {
		m := NewManager(&fakeGateway{}, "u")
		assert.Equal(t, 3*time.Second, m.toastDuration)
	})
}

func TestSnapshot(t *testing.T) {
	g := &fakeGateway{listErr: errRemote}
	m := newTestManager(g)
	defer m.Close()

	_ = m.Load(context.Background())
	s := m.Snapshot()
	assert.Equal(t, "user-1", s.UserID)
	assert.Equal(t, "2026-01-19", s.Date)
	assert.Contains(t, s.LoadError, "remote unavailable")

	g.listErr = nil
	m.AddFromAI(context.Background(), items("pear"))
	s = m.Snapshot()
	assert.Len(t, s.Entries, 1)
	assert.Equal(t, 100.0, s.Totals.Calories)
	assert.True(t, s.Toast.Visible)
}

func TestLoad_DuringInFlightAddIsNotOrdered(t *testing.T) {
	g := &fakeGateway{
		insertGate:    make(chan struct{}),
		insertStarted: make(chan struct{}),
	}
	m := newTestManager(g)
	defer m.Close()
	ctx := context.Background()

	done := make(chan []models.FoodLogEntry, 1)
	go func() { done <- m.AddFromAI(ctx, items("Apple")) }()

	<-g.insertStarted
	require.Len(t, m.Entries(), 1)

	// The insert has not committed, so the load sees no rows and replaces the list.
	require.NoError(t, m.Load(ctx))
	assert.Empty(t, m.Entries())

	close(g.insertGate)
	require.Len(t, <-done, 1)
	assert.Empty(t, m.Entries())

	require.NoError(t, m.Load(ctx))
	require.Len(t, m.Entries(), 1)
	assert.Equal(t, "Apple", m.Entries()[0].Name)
}
