// Package session owns the in-memory state of one studio session: the source
// identity images, the target items, the swap settings and the analysis
// bound to the primary source image. Every meaningful mutation schedules a
// debounced write of the whole snapshot to the preferences store.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/kozaktomas/face-studio/internal/ai"
	"github.com/kozaktomas/face-studio/internal/imagestore"
	"github.com/kozaktomas/face-studio/internal/store"
)

// persistDebounce is the quiet interval after the last mutation before the
// snapshot is written. A new mutation inside the interval reschedules the
// write (trailing edge).
const persistDebounce = 500 * time.Millisecond

// persistTimeout bounds a single store write.
const persistTimeout = 10 * time.Second

// Manager is the session state manager. All exported methods are safe for
// concurrent use; collection mutations replace the backing slice so
// previously returned snapshots stay stable.
type Manager struct {
	store  store.Store
	images *imagestore.Store
	cache  *AnalysisCache

	mu       sync.RWMutex
	targets  []TargetItem
	sources  []imagestore.Ref
	analysis *ai.FaceAnalysis
	settings ai.SwapSettings

	// Persistence is gated until Restore has run, so a fresh empty session
	// can never clobber a previously persisted one during startup.
	persistMu sync.Mutex
	restored  bool
	pending   *time.Timer
}

// NewManager creates a session manager. The analysis cache is injected so its
// lifetime is explicit (one per session).
func NewManager(st store.Store, images *imagestore.Store, cache *AnalysisCache) *Manager {
	return &Manager{
		store:    st,
		images:   images,
		cache:    cache,
		settings: ai.DefaultSwapSettings(),
	}
}

// Settings returns the current swap settings.
func (m *Manager) Settings() ai.SwapSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// SetSettings replaces the swap settings, clamping numeric fields.
func (m *Manager) SetSettings(s ai.SwapSettings) ai.SwapSettings {
	clamped := s.Clamp()
	m.mu.Lock()
	m.settings = clamped
	m.mu.Unlock()

	m.schedulePersist()
	return clamped
}

// Restore loads the persisted record once at startup. A full session
// snapshot wins; otherwise the last-known-good bookmark seeds the source
// identity. After Restore returns, persistence is unlocked even if the load
// failed; storage errors are non-fatal.
func (m *Manager) Restore(ctx context.Context) error {
	record, err := m.store.Load(ctx)

	m.persistMu.Lock()
	m.restored = true
	m.persistMu.Unlock()

	if err != nil {
		return err
	}
	if record == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case record.Session != nil:
		m.adoptSnapshotLocked(record.Session)
	case record.LastGoodSource != nil:
		m.sources = append([]imagestore.Ref{}, record.LastGoodSource.Images...)
		if len(m.sources) > MaxSourceImages {
			m.sources = m.sources[:MaxSourceImages]
		}
		m.analysis = record.LastGoodSource.Analysis
	}

	if m.analysis != nil && len(m.sources) > 0 {
		m.cache.Put(m.sources[0].Hash(), m.analysis)
	}
	return nil
}

// adoptSnapshotLocked loads a persisted snapshot into the live model.
// Items persisted mid-swap come back as idle: the run they belonged to
// did not survive the restart.
func (m *Manager) adoptSnapshotLocked(snap *store.SessionSnapshot) {
	m.targets = make([]TargetItem, 0, len(snap.Targets))
	for _, t := range snap.Targets {
		status := TargetStatus(t.Status)
		if status == StatusProcessing {
			status = StatusIdle
		}
		item := TargetItem{
			ID:       t.ID,
			Original: t.Original,
			Status:   status,
		}
		if status == StatusCompleted {
			item.Processed = t.Processed
		}
		if status == StatusFailed {
			item.Error = t.Error
		}
		m.targets = append(m.targets, item)
	}

	m.sources = append([]imagestore.Ref{}, snap.SourceImages...)
	if len(m.sources) > MaxSourceImages {
		m.sources = m.sources[:MaxSourceImages]
	}
	m.analysis = snap.Analysis
	if snap.Settings != nil {
		m.settings = snap.Settings.Clamp()
	}
}

// schedulePersist arms (or re-arms) the debounced snapshot write.
func (m *Manager) schedulePersist() {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	if !m.restored {
		return
	}
	if m.pending != nil {
		m.pending.Stop()
	}
	m.pending = time.AfterFunc(persistDebounce, m.persistNow)
}

// Flush cancels any pending debounced write and persists synchronously.
// Called on shutdown so the final mutations are never lost.
func (m *Manager) Flush() {
	m.persistMu.Lock()
	if !m.restored {
		m.persistMu.Unlock()
		return
	}
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
	m.persistMu.Unlock()

	m.persistNow()
}

// persistNow writes the current snapshot. Storage failures are logged and
// swallowed; they never affect the in-memory state.
func (m *Manager) persistNow() {
	m.mu.RLock()
	snap := m.snapshotLocked()
	m.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := m.store.Update(ctx, store.Partial{Session: snap}); err != nil {
		log.Printf("failed to persist session: %v", err)
	}
}

func (m *Manager) snapshotLocked() *store.SessionSnapshot {
	snap := &store.SessionSnapshot{
		Targets:      make([]store.PersistedTarget, 0, len(m.targets)),
		SourceImages: append([]imagestore.Ref{}, m.sources...),
		Analysis:     m.analysis,
	}
	settings := m.settings
	snap.Settings = &settings

	for _, t := range m.targets {
		snap.Targets = append(snap.Targets, store.PersistedTarget{
			ID:        t.ID,
			Original:  t.Original,
			Processed: t.Processed,
			Status:    string(t.Status),
			Error:     t.Error,
		})
	}
	return snap
}

func (m *Manager) bookmarkLocked() *store.Bookmark {
	if len(m.sources) == 0 {
		return nil
	}
	return &store.Bookmark{
		Images:   append([]imagestore.Ref{}, m.sources...),
		Analysis: m.analysis,
		SavedAt:  time.Now().UTC(),
	}
}

func storePartialBookmark(b *store.Bookmark) store.Partial {
	return store.Partial{LastGoodSource: b}
}

// Images exposes the backing image store for handlers that serve raw bytes.
func (m *Manager) Images() *imagestore.Store {
	return m.images
}
