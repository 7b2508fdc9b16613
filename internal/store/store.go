// Package store persists the studio's preferences as a single record: the
// "last known good" source bookmark and the full session snapshot. Updates
// are partial and merged read-modify-write, never blind overwrites, so
// writers of unrelated fields cannot clobber each other.
package store

import (
	"context"
	"time"

	"github.com/kozaktomas/face-studio/internal/ai"
	"github.com/kozaktomas/face-studio/internal/imagestore"
)

// PreferenceKey is the single fixed key the record lives under.
const PreferenceKey = "face-studio/session"

// Bookmark records a source identity that produced at least one successful
// swap, separately from the full session snapshot.
type Bookmark struct {
	Images   []imagestore.Ref `json:"images"`
	Analysis *ai.FaceAnalysis `json:"analysis,omitempty"`
	SavedAt  time.Time        `json:"saved_at"`
}

// PersistedTarget is the stored shape of one target item.
type PersistedTarget struct {
	ID        string         `json:"id"`
	Original  imagestore.Ref `json:"original"`
	Processed imagestore.Ref `json:"processed,omitempty"`
	Status    string         `json:"status"`
	Error     string         `json:"error,omitempty"`
}

// SessionSnapshot is the stored shape of the whole in-memory session.
type SessionSnapshot struct {
	Targets      []PersistedTarget `json:"targets"`
	SourceImages []imagestore.Ref  `json:"source_images"`
	Analysis     *ai.FaceAnalysis  `json:"analysis,omitempty"`
	Settings     *ai.SwapSettings  `json:"settings,omitempty"`
}

// Record is the persisted preference record. The legacy fields predate
// multi-image source identities; they are accepted on read and normalized
// into the bookmark, and never written back out.
type Record struct {
	LastGoodSource *Bookmark        `json:"last_good_source,omitempty"`
	Session        *SessionSnapshot `json:"session,omitempty"`

	// Legacy single-image bookmark shape.
	LegacyLastSource imagestore.Ref   `json:"last_source,omitempty"`
	LegacyAnalysis   *ai.FaceAnalysis `json:"last_analysis,omitempty"`
}

// Normalize migrates a legacy single-image bookmark into the current shape.
// Safe to call repeatedly; legacy fields are cleared so the old shape is
// never re-emitted.
func (r *Record) Normalize() {
	if r == nil {
		return
	}
	if r.LastGoodSource == nil && r.LegacyLastSource != "" {
		r.LastGoodSource = &Bookmark{
			Images:   []imagestore.Ref{r.LegacyLastSource},
			Analysis: r.LegacyAnalysis,
		}
	}
	r.LegacyLastSource = ""
	r.LegacyAnalysis = nil
}

// Partial is a non-destructive update: only non-nil fields replace their
// counterpart in the stored record.
type Partial struct {
	LastGoodSource *Bookmark
	Session        *SessionSnapshot
}

// Merge applies a partial update to a record, returning the merged record.
// The input record may be nil (nothing stored yet).
func Merge(r *Record, p Partial) *Record {
	merged := &Record{}
	if r != nil {
		*merged = *r
	}
	merged.Normalize()
	if p.LastGoodSource != nil {
		merged.LastGoodSource = p.LastGoodSource
	}
	if p.Session != nil {
		merged.Session = p.Session
	}
	return merged
}

// Store is the preferences store contract. Load returns nil when nothing has
// been persisted yet.
type Store interface {
	Load(ctx context.Context) (*Record, error)
	Update(ctx context.Context, p Partial) error
}
