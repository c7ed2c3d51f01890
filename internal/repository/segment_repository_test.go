package repository

import (
	"testing"

	"github.com/jpravetz/stravaexport/internal/database"
	"github.com/jpravetz/stravaexport/internal/models"
)

func newTestRepo(t *testing.T) *SegmentRepository {
	t.Helper()
	db, err := database.Open(database.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSegmentRepository(db)
}

func TestUpsertAndGet(t *testing.T) {
	repo := newTestRepo(t)

	seg := models.StarredSegment{
		ID: 100, Name: "Foo Hill", Distance: 1500,
		AverageGrade: 5.2, ElevationGain: 120,
		Country: "France", State: "Savoie",
	}
	if err := repo.Upsert(seg); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := repo.Get(100)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || *got != seg {
		t.Errorf("Get(100) = %+v, want %+v", got, seg)
	}

	// Second upsert replaces in place.
	seg.Name = "Foo Hill Climb"
	if err := repo.Upsert(seg); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	got, err = repo.Get(100)
	if err != nil {
		t.Fatalf("Get after update failed: %v", err)
	}
	if got.Name != "Foo Hill Climb" {
		t.Errorf("upsert did not update name: %q", got.Name)
	}
}

func TestGetMissReturnsNil(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.Get(999)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("cache miss must return nil, got %+v", got)
	}
}

func TestReplaceAllAndOrdering(t *testing.T) {
	repo := newTestRepo(t)

	if err := repo.Upsert(models.StarredSegment{ID: 1, Name: "Stale"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	fresh := []models.StarredSegment{
		{ID: 10, Name: "Zeta", Country: "France", State: "Savoie"},
		{ID: 11, Name: "Alpha", Country: "France", State: "Savoie"},
		{ID: 12, Name: "Mid", Country: "Canada", State: "BC"},
	}
	if err := repo.ReplaceAll(fresh); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	got, err := repo.Get(1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("stale segment must be gone after ReplaceAll")
	}

	all, err := repo.All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("All returned %d segments, want 3", len(all))
	}
	if all[0].Name != "Mid" || all[1].Name != "Alpha" || all[2].Name != "Zeta" {
		t.Errorf("All not ordered by country, state, name: %v", names(all))
	}
}

func TestStarredIDs(t *testing.T) {
	repo := newTestRepo(t)

	for _, id := range []int64{100, 200} {
		if err := repo.Upsert(models.StarredSegment{ID: id, Name: "S"}); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	ids, err := repo.StarredIDs()
	if err != nil {
		t.Fatalf("StarredIDs failed: %v", err)
	}
	if len(ids) != 2 || !ids[100] || !ids[200] {
		t.Errorf("StarredIDs = %v, want {100, 200}", ids)
	}
}

func names(segs []models.StarredSegment) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Name
	}
	return out
}
