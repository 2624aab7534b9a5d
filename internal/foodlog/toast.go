package foodlog

import (
	"time"

	"mcp-food-log/internal/models"
)

// ShowToast makes a notification visible. It hides itself after the toast
// duration unless a newer toast replaces it first.
func (m *Manager) ShowToast(message string, kind models.ToastType) {
	if kind == "" {
		kind = models.ToastSuccess
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.toast = models.ToastState{Visible: true, Message: message, Type: kind}
	m.toastSeq++
	seq := m.toastSeq

	if m.toastTimer != nil {
		m.toastTimer.Stop()
	}
	m.toastTimer = time.AfterFunc(m.toastDuration, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.toastSeq == seq {
			m.toast.Visible = false
			m.toastTimer = nil
		}
	})
}

// HideToast dismisses the current notification. Message and type are kept.
func (m *Manager) HideToast() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.toast.Visible = false
	m.toastSeq++
	if m.toastTimer != nil {
		m.toastTimer.Stop()
		m.toastTimer = nil
	}
}

// Toast returns the current notification state.
func (m *Manager) Toast() models.ToastState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.toast
}
