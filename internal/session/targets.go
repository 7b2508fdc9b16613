package session

import (
	"errors"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-studio/internal/imagestore"
)

// TargetStatus is the lifecycle state of a target item.
type TargetStatus string

// Target item states. Completed and failed are terminal.
const (
	StatusIdle       TargetStatus = "idle"
	StatusProcessing TargetStatus = "processing"
	StatusCompleted  TargetStatus = "completed"
	StatusFailed     TargetStatus = "failed"
)

// ErrTargetBusy is returned when removing a target that is currently being
// processed.
var ErrTargetBusy = errors.New("target is being processed")

// ErrTargetNotFound is returned when a target ID does not exist.
var ErrTargetNotFound = errors.New("target not found")

// TargetItem is one image awaiting or having undergone a face swap.
// Processed is set exactly when Status is completed; Error is set exactly
// when Status is failed.
type TargetItem struct {
	ID        string         `json:"id"`
	Original  imagestore.Ref `json:"original"`
	Processed imagestore.Ref `json:"processed,omitempty"`
	Status    TargetStatus   `json:"status"`
	Error     string         `json:"error,omitempty"`
}

// Targets returns a snapshot of the target list. Mutations replace the
// backing slice, so a returned slice is never changed afterwards.
func (m *Manager) Targets() []TargetItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.targets
}

// Target looks up a single target by ID in the live model.
func (m *Manager) Target(id string) (TargetItem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.targets {
		if t.ID == id {
			return t, true
		}
	}
	return TargetItem{}, false
}

// IdleTargetIDs returns the IDs of all targets that are idle right now.
func (m *Manager) IdleTargetIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for _, t := range m.targets {
		if t.Status == StatusIdle {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// AddTarget creates an idle target item for an uploaded image.
func (m *Manager) AddTarget(original imagestore.Ref) TargetItem {
	item := TargetItem{
		ID:       uuid.New().String(),
		Original: original,
		Status:   StatusIdle,
	}

	m.mu.Lock()
	m.targets = append(append([]TargetItem{}, m.targets...), item)
	m.mu.Unlock()

	m.schedulePersist()
	return item
}

// RemoveTarget deletes a target. Items that are mid-swap cannot be removed.
func (m *Manager) RemoveTarget(id string) error {
	m.mu.Lock()
	idx := -1
	for i, t := range m.targets {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return ErrTargetNotFound
	}
	if m.targets[idx].Status == StatusProcessing {
		m.mu.Unlock()
		return ErrTargetBusy
	}

	next := make([]TargetItem, 0, len(m.targets)-1)
	next = append(next, m.targets[:idx]...)
	next = append(next, m.targets[idx+1:]...)
	m.targets = next
	m.mu.Unlock()

	m.schedulePersist()
	return nil
}

// MarkProcessing transitions a target to processing. Returns false when the
// target no longer exists.
func (m *Manager) MarkProcessing(id string) bool {
	return m.updateTarget(id, func(t *TargetItem) {
		t.Status = StatusProcessing
		t.Processed = ""
		t.Error = ""
	})
}

// MarkCompleted transitions a target to completed with its generated image.
func (m *Manager) MarkCompleted(id string, processed imagestore.Ref) bool {
	return m.updateTarget(id, func(t *TargetItem) {
		t.Status = StatusCompleted
		t.Processed = processed
		t.Error = ""
	})
}

// MarkFailed transitions a target to failed with a human-readable reason.
func (m *Manager) MarkFailed(id string, message string) bool {
	return m.updateTarget(id, func(t *TargetItem) {
		t.Status = StatusFailed
		t.Processed = ""
		t.Error = message
	})
}

// updateTarget applies a mutation to one item by replacing the whole slice,
// so snapshots held by readers are never changed under them.
func (m *Manager) updateTarget(id string, mutate func(*TargetItem)) bool {
	m.mu.Lock()
	idx := -1
	for i, t := range m.targets {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return false
	}

	next := append([]TargetItem{}, m.targets...)
	mutate(&next[idx])
	m.targets = next
	m.mu.Unlock()

	m.schedulePersist()
	return true
}
