package session

import (
	"sync"

	"github.com/kozaktomas/face-studio/internal/ai"
)

// AnalysisCache memoizes face analysis results by image content hash so the
// same source image is never analyzed twice. Entries live for the lifetime of
// the cache object (one session); there is no expiry within a session.
type AnalysisCache struct {
	mu      sync.RWMutex
	entries map[string]*ai.FaceAnalysis
}

// NewAnalysisCache creates an empty cache.
func NewAnalysisCache() *AnalysisCache {
	return &AnalysisCache{
		entries: make(map[string]*ai.FaceAnalysis),
	}
}

// Get returns the cached analysis for a content hash.
func (c *AnalysisCache) Get(hash string) (*ai.FaceAnalysis, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	analysis, ok := c.entries[hash]
	return analysis, ok
}

// Put stores an analysis under a content hash.
func (c *AnalysisCache) Put(hash string, analysis *ai.FaceAnalysis) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hash] = analysis
}
