package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"proplens/models"
)

func testJournal(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteRunLifecycle(t *testing.T) {
	store := testJournal(t)

	run := &models.SearchRun{
		SessionID:  uuid.New(),
		SearchName: "london-family-homes",
		Location:   "London",
		StartedAt:  time.Now().UTC(),
		Status:     models.RunStatusRunning,
	}

	id, err := store.CreateRun(run)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if id == 0 {
		t.Fatal("run id not assigned")
	}
	run.ID = id

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	run.Status = models.RunStatusCompleted
	run.ListingsFound = 42
	run.SnapshotKey = "snapshots/2026/08/25/abc.json"
	if err := store.UpdateRun(run); err != nil {
		t.Fatalf("update run: %v", err)
	}

	runs, err := store.RecentRuns(10)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}

	got := runs[0]
	if got.SessionID != run.SessionID {
		t.Errorf("session id = %v, want %v", got.SessionID, run.SessionID)
	}
	if got.Status != models.RunStatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.ListingsFound != 42 {
		t.Errorf("listings found = %d, want 42", got.ListingsFound)
	}
	if got.FinishedAt == nil {
		t.Error("finished_at missing")
	}
	if got.SnapshotKey != run.SnapshotKey {
		t.Errorf("snapshot key = %q, want %q", got.SnapshotKey, run.SnapshotKey)
	}
}

func TestSQLiteRecentRunsOrder(t *testing.T) {
	store := testJournal(t)

	older := &models.SearchRun{
		SessionID:  uuid.New(),
		SearchName: "older",
		Location:   "Leeds",
		StartedAt:  time.Now().UTC().Add(-time.Hour),
		Status:     models.RunStatusCompleted,
	}
	newer := &models.SearchRun{
		SessionID:  uuid.New(),
		SearchName: "newer",
		Location:   "Leeds",
		StartedAt:  time.Now().UTC(),
		Status:     models.RunStatusCompleted,
	}

	if _, err := store.CreateRun(older); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateRun(newer); err != nil {
		t.Fatal(err)
	}

	runs, err := store.RecentRuns(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].SearchName != "newer" {
		t.Fatalf("got %+v, want the newest run only", runs)
	}
}

func TestSQLiteLogEvent(t *testing.T) {
	store := testJournal(t)

	run := &models.SearchRun{
		SessionID:  uuid.New(),
		SearchName: "test",
		Location:   "Bristol",
		StartedAt:  time.Now().UTC(),
		Status:     models.RunStatusRunning,
	}
	id, err := store.CreateRun(run)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.LogEvent(&id, models.LogLevelWarn, "persist failed", "rightmove"); err != nil {
		t.Fatalf("log event: %v", err)
	}
	// Events may also exist outside any run.
	if err := store.LogEvent(nil, models.LogLevelInfo, "startup", ""); err != nil {
		t.Fatalf("log unscoped event: %v", err)
	}
}
