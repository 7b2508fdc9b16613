package session

import (
	"context"
	"fmt"
	"log"

	"github.com/kozaktomas/face-studio/internal/ai"
	"github.com/kozaktomas/face-studio/internal/imagestore"
)

// MaxSourceImages caps the source identity sequence. Three angles of one face
// are enough for the swap engine; further uploads are silently dropped.
const MaxSourceImages = 3

// Sources returns a snapshot copy of the source identity sequence.
func (m *Manager) Sources() []imagestore.Ref {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]imagestore.Ref{}, m.sources...)
}

// Analysis returns the analysis bound to the primary source image, if any.
func (m *Manager) Analysis() *ai.FaceAnalysis {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.analysis
}

// AddSourceImage stores the image and appends it to the source identity.
// Byte-identical duplicates and uploads beyond capacity are dropped silently
// (added=false, no error). becamePrimary reports whether the image landed at
// position 0 of a previously empty sequence, which is the trigger for
// analysis.
func (m *Manager) AddSourceImage(data []byte) (ref imagestore.Ref, added bool, becamePrimary bool, err error) {
	ref, err = m.images.Put(data)
	if err != nil {
		return "", false, false, fmt.Errorf("failed to store source image: %w", err)
	}

	m.mu.Lock()
	if len(m.sources) >= MaxSourceImages {
		m.mu.Unlock()
		return ref, false, false, nil
	}
	for _, existing := range m.sources {
		if existing == ref {
			m.mu.Unlock()
			return ref, false, false, nil
		}
	}
	becamePrimary = len(m.sources) == 0
	m.sources = append(append([]imagestore.Ref{}, m.sources...), ref)
	m.mu.Unlock()

	m.schedulePersist()
	return ref, true, becamePrimary, nil
}

// RemoveSource removes the source image at index. Removing position 0
// invalidates the bound analysis.
func (m *Manager) RemoveSource(index int) bool {
	m.mu.Lock()
	if index < 0 || index >= len(m.sources) {
		m.mu.Unlock()
		return false
	}

	next := make([]imagestore.Ref, 0, len(m.sources)-1)
	next = append(next, m.sources[:index]...)
	next = append(next, m.sources[index+1:]...)
	m.sources = next
	if index == 0 {
		m.analysis = nil
	}
	m.mu.Unlock()

	m.schedulePersist()
	return true
}

// ClearSources empties the source identity and clears the analysis.
func (m *Manager) ClearSources() {
	m.mu.Lock()
	m.sources = nil
	m.analysis = nil
	m.mu.Unlock()

	m.schedulePersist()
}

// EnsureAnalysis analyzes the primary source image unless a cached result
// exists for its content hash. Analysis is advisory display data: a failure
// leaves the analysis absent and never blocks the image from being used for
// swapping.
func (m *Manager) EnsureAnalysis(ctx context.Context, provider ai.Provider) error {
	m.mu.RLock()
	if len(m.sources) == 0 {
		m.mu.RUnlock()
		return nil
	}
	primary := m.sources[0]
	m.mu.RUnlock()

	if cached, ok := m.cache.Get(primary.Hash()); ok {
		m.bindAnalysis(primary, cached)
		return nil
	}

	data, err := m.images.Get(primary)
	if err != nil {
		return fmt.Errorf("failed to read primary source image: %w", err)
	}

	analysis, err := provider.AnalyzeFace(ctx, data)
	if err != nil {
		return fmt.Errorf("face analysis failed: %w", err)
	}

	m.cache.Put(primary.Hash(), analysis)
	m.bindAnalysis(primary, analysis)
	return nil
}

// bindAnalysis attaches a result to the session only while the analyzed image
// is still the primary source. The sequence may have changed while the
// analyzer was in flight; a stale result is dropped on the floor (it stays in
// the cache for the image it actually describes).
func (m *Manager) bindAnalysis(primary imagestore.Ref, analysis *ai.FaceAnalysis) {
	m.mu.Lock()
	if len(m.sources) == 0 || m.sources[0] != primary {
		m.mu.Unlock()
		return
	}
	m.analysis = analysis
	m.mu.Unlock()

	m.schedulePersist()
}

// BookmarkLastGoodSource records the current source identity as last known
// good, merged into the persisted record without touching unrelated fields.
// Storage failures are logged and swallowed.
func (m *Manager) BookmarkLastGoodSource(ctx context.Context) {
	m.mu.RLock()
	bookmark := m.bookmarkLocked()
	m.mu.RUnlock()

	if bookmark == nil {
		return
	}
	if err := m.store.Update(ctx, storePartialBookmark(bookmark)); err != nil {
		log.Printf("failed to bookmark source identity: %v", err)
	}
}
