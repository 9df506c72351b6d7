package core

import (
	"github.com/aretw0/introspection"
)

// ManagerState exposes internal state for observability.
type ManagerState struct {
	Loaded        bool   `json:"loaded"`
	Closed        bool   `json:"closed"`
	Notes         int    `json:"notes"`
	DraftID       string `json:"draft_id,omitempty"`
	Listeners     int    `json:"listeners"`
	SavesQueued   int    `json:"saves_queued"`
	SaveInFlight  bool   `json:"save_in_flight"`
	SavesDone     uint64 `json:"saves_done"`
	SavesFailed   uint64 `json:"saves_failed"`
	LastSaveError string `json:"last_save_error,omitempty"`
	StoreType     string `json:"store_type"`
}

// State implements introspection.Introspectable.
func (m *Manager) State() any {
	m.mu.RLock()
	state := ManagerState{
		Loaded: m.loaded,
		Closed: m.closed,
		Notes:  len(m.notes),
	}
	if m.draft != nil {
		state.DraftID = m.draft.ID
	}
	m.mu.RUnlock()

	stats := m.writer.snapshot()
	state.SavesQueued = stats.Queued
	state.SaveInFlight = stats.InFlight
	state.SavesDone = stats.Completed
	state.SavesFailed = stats.Failed
	state.LastSaveError = stats.LastError
	state.Listeners = m.broker.Len()

	state.StoreType = "unknown"
	if m.store != nil {
		state.StoreType = "store"
		if comp, ok := m.store.(introspection.Component); ok {
			state.StoreType = comp.ComponentType()
		}
	}
	return state
}

// ComponentType implements introspection.Component.
func (m *Manager) ComponentType() string {
	return "manager"
}

var _ introspection.Introspectable = (*Manager)(nil)
var _ introspection.Component = (*Manager)(nil)
