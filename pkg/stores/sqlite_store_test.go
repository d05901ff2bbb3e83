package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func strPtr(s string) *string { return &s }

func createTestRun(t *testing.T, store *SQLiteStore, id string, started time.Time) *Run {
	t.Helper()
	run := &Run{
		ID:        id,
		Status:    RunStatusRunning,
		StatePath: ".vibe_setup_state.json",
		StartedAt: started,
	}
	if err := store.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	return run
}

func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "nested", "history.db"),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.HealthCheck(ctx); err == nil {
		t.Error("expected health check to fail before Init")
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	// Migrating twice is a no-op.
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

// TestStoreMigrations tests that the schema exists after migration
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, table := range []string{"runs", "step_events"} {
		var count int
		if err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}
}

func TestMigrateBeforeInit(t *testing.T) {
	store, _ := NewSQLiteStore(Config{Path: ":memory:"})
	if err := store.Migrate(context.Background()); err == nil {
		t.Error("expected error when migrating an uninitialized store")
	}
}

// TestRunLifecycle tests creating, finishing and reading runs
func TestRunLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Second)
	createTestRun(t, store, "run-1", started)

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Status != RunStatusRunning {
		t.Errorf("expected status running, got %s", got.Status)
	}
	if got.Metadata != "{}" {
		t.Errorf("expected default metadata, got %q", got.Metadata)
	}
	if got.CompletedAt != nil || got.Duration() != 0 {
		t.Error("running run must not have a completion time")
	}

	finished := started.Add(42 * time.Second)
	if err := store.FinishRun(ctx, "run-1", RunStatusHalted, strPtr("tests"), strPtr("pnpm exited 1"), finished); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}

	got, err = store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Status != RunStatusHalted {
		t.Errorf("expected status halted, got %s", got.Status)
	}
	if got.FailedStep == nil || *got.FailedStep != "tests" {
		t.Errorf("expected failed step tests, got %v", got.FailedStep)
	}
	if got.Error == nil || *got.Error != "pnpm exited 1" {
		t.Errorf("unexpected error %v", got.Error)
	}
	if got.Duration() != 42*time.Second {
		t.Errorf("expected 42s duration, got %s", got.Duration())
	}
}

func TestRunNotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.FinishRun(ctx, "missing", RunStatusCompleted, nil, nil, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	createTestRun(t, store, "old", base.Add(-2*time.Hour))
	createTestRun(t, store, "new", base)
	createTestRun(t, store, "mid", base.Add(-time.Hour))

	runs, err := store.ListRuns(ctx, 10, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	want := []string{"new", "mid", "old"}
	if len(runs) != len(want) {
		t.Fatalf("expected %d runs, got %d", len(want), len(runs))
	}
	for i, id := range want {
		if runs[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, runs[i].ID)
		}
	}

	page, err := store.ListRuns(ctx, 1, 1)
	if err != nil {
		t.Fatalf("failed to list page: %v", err)
	}
	if len(page) != 1 || page[0].ID != "mid" {
		t.Errorf("expected page [mid], got %v", page)
	}
}

// TestStepEvents tests appending and listing step events
func TestStepEvents(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestRun(t, store, "run-1", time.Now().UTC())

	events := []*StepEvent{
		{RunID: "run-1", Step: "welcome", Outcome: StepOutcomeSkipped},
		{RunID: "run-1", Step: "toolchain", Outcome: StepOutcomeStarted},
		{RunID: "run-1", Step: "toolchain", Outcome: StepOutcomeFailed, ErrorKind: strPtr("tool_missing"), Message: strPtr("node is not installed"), DurationMs: 12},
	}
	for _, e := range events {
		if err := store.AppendStepEvent(ctx, e); err != nil {
			t.Fatalf("failed to append event: %v", err)
		}
		if e.ID == 0 {
			t.Error("expected ID to be assigned")
		}
	}

	got, err := store.ListStepEvents(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[0].Step != "welcome" || got[2].Outcome != StepOutcomeFailed {
		t.Errorf("events out of order: %+v", got)
	}
	if got[2].ErrorKind == nil || *got[2].ErrorKind != "tool_missing" || got[2].DurationMs != 12 {
		t.Errorf("unexpected failure event: %+v", got[2])
	}

	none, err := store.ListStepEvents(ctx, "other")
	if err != nil || len(none) != 0 {
		t.Errorf("expected no events for unknown run, got %v (%v)", none, err)
	}
}

func TestStepEventRequiresRun(t *testing.T) {
	store := setupTestStore(t)
	err := store.AppendStepEvent(context.Background(), &StepEvent{RunID: "ghost", Step: "welcome", Outcome: StepOutcomeStarted})
	if err == nil {
		t.Error("expected foreign key violation for unknown run")
	}
}

func TestDeleteRunCascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestRun(t, store, "run-1", time.Now().UTC())

	if err := store.AppendStepEvent(ctx, &StepEvent{RunID: "run-1", Step: "env", Outcome: StepOutcomeSucceeded}); err != nil {
		t.Fatalf("failed to append event: %v", err)
	}
	if err := store.DeleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("failed to delete run: %v", err)
	}

	events, err := store.ListStepEvents(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected events to be deleted with the run, got %d", len(events))
	}
}
