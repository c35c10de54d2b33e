package audit

import (
	"context"
	"testing"
	"time"

	"github.com/nerrad567/family-rules-core/internal/infrastructure/database"
	"github.com/nerrad567/family-rules-core/migrations"
)

func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestCreate_FillsDefaults(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	entry := &AuditLog{
		Action:     ActionOverrideSet,
		EntityType: EntityDevice,
		EntityID:   "dev-1",
		Actor:      "parent-1",
		Details:    map[string]any{"state": "LOCKED", "duration_seconds": float64(60)},
	}
	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if entry.ID == "" {
		t.Error("ID should be generated")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	if entry.Source != SourceAPI {
		t.Errorf("Source = %q, want %q", entry.Source, SourceAPI)
	}

	res, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 1 || len(res.Logs) != 1 {
		t.Fatalf("List() total=%d len=%d, want 1", res.Total, len(res.Logs))
	}
	got := res.Logs[0]
	if got.Actor != "parent-1" || got.EntityID != "dev-1" {
		t.Errorf("got actor=%q entity=%q", got.Actor, got.EntityID)
	}
	if got.Details["state"] != "LOCKED" {
		t.Errorf("Details[state] = %v, want LOCKED", got.Details["state"])
	}
}

func TestList_FiltersAndOrder(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	entries := []*AuditLog{
		{Action: ActionOverrideSet, EntityType: EntityDevice, EntityID: "dev-1", CreatedAt: base},
		{Action: ActionOverrideClear, EntityType: EntityDevice, EntityID: "dev-1", CreatedAt: base.Add(500 * time.Millisecond)},
		{Action: ActionOverrideSet, EntityType: EntityDevice, EntityID: "dev-2", CreatedAt: base.Add(time.Second)},
	}
	for _, e := range entries {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		wantFirst string
	}{
		{"all newest first", Filter{}, 3, "dev-2"},
		{"by action", Filter{Action: ActionOverrideClear}, 1, "dev-1"},
		{"by entity", Filter{EntityType: EntityDevice, EntityID: "dev-1"}, 2, "dev-1"},
		{"no match", Filter{EntityID: "dev-9"}, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", res.Total, tt.wantTotal)
			}
			if tt.wantFirst == "" {
				if len(res.Logs) != 0 {
					t.Errorf("expected empty logs, got %d", len(res.Logs))
				}
				return
			}
			if res.Logs[0].EntityID != tt.wantFirst {
				t.Errorf("first EntityID = %q, want %q", res.Logs[0].EntityID, tt.wantFirst)
			}
		})
	}
}

func TestList_ClampsLimit(t *testing.T) {
	repo := setupTestRepo(t)

	res, err := repo.List(context.Background(), Filter{Limit: 1000, Offset: -5})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Limit != 200 || res.Offset != 0 {
		t.Errorf("Limit=%d Offset=%d, want 200 and 0", res.Limit, res.Offset)
	}
	if res.Logs == nil {
		t.Error("Logs should be an empty slice, not nil")
	}
}
