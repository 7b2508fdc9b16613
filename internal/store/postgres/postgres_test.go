//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/face-studio/internal/config"
	"github.com/kozaktomas/face-studio/internal/imagestore"
	"github.com/kozaktomas/face-studio/internal/store"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := Initialize(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to initialize pool: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestPreferenceStore_LoadEmpty(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	defer cleanup()

	s := NewPreferenceStore(pool)

	record, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if record != nil {
		t.Errorf("expected nil record for empty table, got %+v", record)
	}
}

func TestPreferenceStore_UpdateMerges(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	defer cleanup()

	s := NewPreferenceStore(pool)
	ctx := context.Background()

	bookmark := &store.Bookmark{
		Images:  []imagestore.Ref{"aaa.jpg"},
		SavedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := s.Update(ctx, store.Partial{LastGoodSource: bookmark}); err != nil {
		t.Fatalf("bookmark Update failed: %v", err)
	}

	session := &store.SessionSnapshot{
		Targets: []store.PersistedTarget{{ID: "t1", Original: "bbb.jpg", Status: "idle"}},
	}
	if err := s.Update(ctx, store.Partial{Session: session}); err != nil {
		t.Fatalf("session Update failed: %v", err)
	}

	record, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if record.LastGoodSource == nil || len(record.LastGoodSource.Images) != 1 {
		t.Error("expected bookmark to survive the session update")
	}
	if record.Session == nil || len(record.Session.Targets) != 1 {
		t.Error("expected session snapshot stored")
	}
}

func TestPreferenceStore_MigrationsIdempotent(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	defer cleanup()

	// Running migrations a second time must be a no-op.
	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}
