package foodlog

import (
	"mcp-food-log/internal/models"
)

// undoToken records the inverse of one optimistic mutation. It is captured
// when the mutation is applied and replayed by rollback if the remote call
// fails. Dropping the token confirms the mutation.
type undoToken struct {
	added   map[string]struct{}
	removed *models.FoodLogEntry
}

// applyAdd appends entries and returns the token that removes exactly them.
func (m *Manager) applyAdd(entries []models.FoodLogEntry) undoToken {
	tok := undoToken{added: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		tok.added[e.ID] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	return tok
}

// applyRemove removes id and returns a token holding the removed value.
// The token is empty when id was not present.
func (m *Manager) applyRemove(id string) undoToken {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.entries {
		if e.ID == id {
			removed := e
			m.entries = append(m.entries[:i:i], m.entries[i+1:]...)
			return undoToken{removed: &removed}
		}
	}
	return undoToken{}
}

// rollback reverts a mutation. A restored entry goes back into creation order.
func (m *Manager) rollback(tok undoToken) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(tok.added) > 0 {
		kept := m.entries[:0:0]
		for _, e := range m.entries {
			if _, ok := tok.added[e.ID]; !ok {
				kept = append(kept, e)
			}
		}
		m.entries = kept
	}

	if tok.removed != nil {
		for _, e := range m.entries {
			if e.ID == tok.removed.ID {
				return
			}
		}
		at := len(m.entries)
		for i, e := range m.entries {
			if e.CreatedAt.After(tok.removed.CreatedAt) {
				at = i
				break
			}
		}
		m.entries = append(m.entries[:at:at], append([]models.FoodLogEntry{*tok.removed}, m.entries[at:]...)...)
	}
}
