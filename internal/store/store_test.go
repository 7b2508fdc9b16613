package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kozaktomas/face-studio/internal/ai"
	"github.com/kozaktomas/face-studio/internal/imagestore"
)

func testFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "preferences.json"))
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	return s
}

func TestLoad_EmptyStore(t *testing.T) {
	s := testFileStore(t)

	record, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if record != nil {
		t.Errorf("expected nil record for empty store, got %+v", record)
	}
}

func TestUpdate_MergeDoesNotClobber(t *testing.T) {
	s := testFileStore(t)
	ctx := context.Background()

	bookmark := &Bookmark{
		Images:  []imagestore.Ref{"aaa.jpg"},
		SavedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := s.Update(ctx, Partial{LastGoodSource: bookmark}); err != nil {
		t.Fatalf("first Update failed: %v", err)
	}

	session := &SessionSnapshot{
		Targets:      []PersistedTarget{{ID: "t1", Original: "bbb.jpg", Status: "idle"}},
		SourceImages: []imagestore.Ref{"aaa.jpg"},
	}
	if err := s.Update(ctx, Partial{Session: session}); err != nil {
		t.Fatalf("second Update failed: %v", err)
	}

	record, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if record.LastGoodSource == nil || len(record.LastGoodSource.Images) != 1 {
		t.Error("expected bookmark to survive the session update")
	}

	if record.Session == nil || len(record.Session.Targets) != 1 {
		t.Error("expected session snapshot to be stored")
	}
}

func TestUpdate_ReplacesFieldWholesale(t *testing.T) {
	s := testFileStore(t)
	ctx := context.Background()

	s.Update(ctx, Partial{Session: &SessionSnapshot{SourceImages: []imagestore.Ref{"aaa.jpg", "bbb.jpg"}}})
	s.Update(ctx, Partial{Session: &SessionSnapshot{SourceImages: []imagestore.Ref{"ccc.jpg"}}})

	record, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(record.Session.SourceImages) != 1 || record.Session.SourceImages[0] != "ccc.jpg" {
		t.Errorf("expected session replaced wholesale, got %+v", record.Session.SourceImages)
	}
}

func TestPersistRestore_Idempotent(t *testing.T) {
	s := testFileStore(t)
	ctx := context.Background()

	session := &SessionSnapshot{
		Targets: []PersistedTarget{
			{ID: "t1", Original: "aaa.jpg", Processed: "ddd.jpg", Status: "completed"},
			{ID: "t2", Original: "bbb.jpg", Status: "failed", Error: "no image generated"},
		},
		SourceImages: []imagestore.Ref{"ccc.jpg"},
		Analysis:     &ai.FaceAnalysis{SkinTone: "medium", Confidence: 0.9},
	}
	if err := s.Update(ctx, Partial{Session: session}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	first, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatalf("failed to read stored record: %v", err)
	}

	// Load and immediately persist the loaded snapshot again.
	record, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := s.Update(ctx, Partial{Session: record.Session}); err != nil {
		t.Fatalf("re-persist failed: %v", err)
	}

	second, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatalf("failed to read stored record: %v", err)
	}

	if string(first) != string(second) {
		t.Errorf("persist(restore()) is not idempotent\nfirst:  %s\nsecond: %s", first, second)
	}
}

func TestLoad_LegacyShapeNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")

	legacy := map[string]any{
		"last_source":   "aaa.jpg",
		"last_analysis": map[string]any{"skin_tone": "deep", "confidence": 0.8},
	}
	data, _ := json.Marshal(legacy)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to seed legacy record: %v", err)
	}

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}

	record, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if record.LastGoodSource == nil {
		t.Fatal("expected legacy record normalized into bookmark")
	}

	if len(record.LastGoodSource.Images) != 1 || record.LastGoodSource.Images[0] != "aaa.jpg" {
		t.Errorf("unexpected bookmark images: %+v", record.LastGoodSource.Images)
	}

	if record.LastGoodSource.Analysis == nil || record.LastGoodSource.Analysis.SkinTone != "deep" {
		t.Error("expected legacy analysis carried into bookmark")
	}

	if record.LegacyLastSource != "" {
		t.Error("expected legacy field cleared after normalization")
	}

	// A write after load must not re-emit the legacy shape.
	if err := s.Update(context.Background(), Partial{Session: &SessionSnapshot{}}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	raw, _ := os.ReadFile(path)
	var onDisk map[string]any
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("failed to parse stored record: %v", err)
	}
	if _, ok := onDisk["last_source"]; ok {
		t.Error("legacy shape was re-emitted")
	}
	if _, ok := onDisk["last_good_source"]; !ok {
		t.Error("expected normalized bookmark in stored record")
	}
}

func TestMerge_NilRecord(t *testing.T) {
	merged := Merge(nil, Partial{LastGoodSource: &Bookmark{Images: []imagestore.Ref{"aaa.jpg"}}})

	if merged.LastGoodSource == nil {
		t.Error("expected bookmark set on merged record")
	}

	if merged.Session != nil {
		t.Error("expected session to stay absent")
	}
}
