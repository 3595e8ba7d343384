package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/context-digest/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestPutAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ev, err := s.Put(ctx, PutParams{
		UserID: "u1", CreatedAt: t0, Description: "exam tomorrow", Tags: []string{"работа"}, Priority: 4,
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if ev.ID == "" {
		t.Error("expected generated ID")
	}

	got, err := s.Get(ctx, ev.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Description != "exam tomorrow" || got.Priority != 4 {
		t.Errorf("unexpected event %+v", got)
	}
	if !got.CreatedAt.Equal(t0) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, t0)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "работа" {
		t.Errorf("tags = %v", got.Tags)
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPutKeepsCallerID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ev, err := s.Put(ctx, PutParams{ID: "evt-1", UserID: "u1", Message: "hi"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if ev.ID != "evt-1" {
		t.Errorf("expected evt-1, got %s", ev.ID)
	}
	if _, err := s.Put(ctx, PutParams{ID: "evt-1", UserID: "u1", Message: "again"}); err == nil {
		t.Error("expected duplicate id to fail")
	}
}

func TestFetchWindowAndOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		s.Put(ctx, PutParams{UserID: "u1", CreatedAt: t0.AddDate(0, 0, -i*10), Message: "m"})
	}
	s.Put(ctx, PutParams{UserID: "u2", CreatedAt: t0, Message: "other user"})

	evs, err := s.Fetch(ctx, FetchQuery{UserID: "u1", From: t0.AddDate(0, 0, -30), To: t0})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(evs) != 4 {
		t.Fatalf("expected 4 events in window (boundary included), got %d", len(evs))
	}
	for i := 1; i < len(evs); i++ {
		if evs[i].CreatedAt.After(evs[i-1].CreatedAt) {
			t.Error("expected newest first")
		}
	}

	asc, _ := s.Fetch(ctx, FetchQuery{UserID: "u1", Order: OldestFirst, Limit: 2})
	if len(asc) != 2 || !asc[0].CreatedAt.Before(asc[1].CreatedAt) {
		t.Errorf("expected 2 oldest first, got %+v", asc)
	}

	n, err := s.Count(ctx, FetchQuery{UserID: "u1", From: t0.AddDate(0, 0, -30), To: t0})
	if err != nil || n != 4 {
		t.Errorf("count = %d, %v", n, err)
	}
}

func TestGetByIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, _ := s.Put(ctx, PutParams{UserID: "u1", Message: "a"})
	b, _ := s.Put(ctx, PutParams{UserID: "u1", Message: "b"})
	c, _ := s.Put(ctx, PutParams{UserID: "u2", Message: "c"})

	evs, err := s.GetByIDs(ctx, "u1", []string{a.ID, b.ID, c.ID, "missing"})
	if err != nil {
		t.Fatalf("get by ids: %v", err)
	}
	if len(evs) != 2 {
		t.Errorf("expected 2 events of u1, got %d", len(evs))
	}

	none, err := s.GetByIDs(ctx, "u1", nil)
	if err != nil || len(none) != 0 {
		t.Errorf("expected empty result, got %v, %v", none, err)
	}
}

func TestListTags(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, PutParams{UserID: "u1", Message: "x", Tags: []string{"deploy", "infra"}})
	s.Put(ctx, PutParams{UserID: "u1", Message: "y", Tags: []string{"deploy"}})
	s.Put(ctx, PutParams{UserID: "u1", Message: "z"})

	list, _ := s.List(ctx, ListParams{UserID: "u1", Tags: []string{"deploy"}})
	if len(list) != 2 {
		t.Errorf("expected 2 with 'deploy' tag, got %d", len(list))
	}

	list, _ = s.List(ctx, ListParams{UserID: "u1", Tags: []string{"infra"}})
	if len(list) != 1 {
		t.Errorf("expected 1 with 'infra' tag, got %d", len(list))
	}
}

func TestRm(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ev, _ := s.Put(ctx, PutParams{UserID: "u1", Description: "to delete"})
	if err := s.Rm(ctx, ev.ID); err != nil {
		t.Fatalf("rm: %v", err)
	}
	if _, err := s.Get(ctx, ev.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found after rm, got %v", err)
	}
	if err := s.Rm(ctx, ev.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found on second rm, got %v", err)
	}
	if chunks, _ := s.PendingChunks(ctx, "u1", 0); len(chunks) != 0 {
		t.Errorf("expected chunks to be removed, got %d", len(chunks))
	}
}

func TestChartVersioning(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, ok, err := s.ChartVersion(ctx, "u1"); ok || err != nil {
		t.Fatalf("expected no chart, ok=%v err=%v", ok, err)
	}
	if _, err := s.Chart(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	c1, err := s.PutChart(ctx, model.NatalChart{UserID: "u1", Planets: []model.Planet{{Name: "venus", House: 12}}})
	if err != nil {
		t.Fatalf("put chart: %v", err)
	}
	c2, _ := s.PutChart(ctx, model.NatalChart{UserID: "u1", Planets: []model.Planet{{Name: "saturn", House: 12, Retrograde: true}}})
	if c1.Version != 1 || c2.Version != 2 {
		t.Errorf("versions = %d, %d", c1.Version, c2.Version)
	}

	v, ok, _ := s.ChartVersion(ctx, "u1")
	if !ok || v != 2 {
		t.Errorf("version = %d ok=%v", v, ok)
	}
	got, err := s.Chart(ctx, "u1")
	if err != nil {
		t.Fatalf("chart: %v", err)
	}
	if len(got.Planets) != 1 || got.Planets[0].Name != "saturn" || !got.Planets[0].Retrograde {
		t.Errorf("unexpected planets %+v", got.Planets)
	}
}

func TestChartCorruptPlanets(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if _, err := s.PutChart(ctx, model.NatalChart{UserID: "u1"}); err != nil {
		t.Fatalf("put chart: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE natal_charts SET planets = '{not json' WHERE user_id = 'u1'`); err != nil {
		t.Fatalf("corrupt chart: %v", err)
	}
	if _, err := s.Chart(ctx, "u1"); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	src.Put(ctx, PutParams{UserID: "u1", CreatedAt: t0, Description: "one"})
	src.Put(ctx, PutParams{UserID: "u1", CreatedAt: t0.Add(time.Hour), Description: "two"})

	evs, err := src.ExportAll(ctx, "u1")
	if err != nil || len(evs) != 2 {
		t.Fatalf("export: %d, %v", len(evs), err)
	}

	dst := newTestStore(t)
	n, err := dst.Import(ctx, evs)
	if err != nil || n != 2 {
		t.Fatalf("import: %d, %v", n, err)
	}
	n, _ = dst.Import(ctx, evs)
	if n != 0 {
		t.Errorf("expected duplicates to be skipped, imported %d", n)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.Put(ctx, PutParams{UserID: "u1", Description: "a"})
	s.Put(ctx, PutParams{UserID: "u2", Description: "b"})
	s.PutChart(ctx, model.NatalChart{UserID: "u1"})

	st, err := s.Stats(ctx, "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalEvents != 2 || st.TotalChunks != 2 || st.Charts != 1 || len(st.Users) != 2 {
		t.Errorf("unexpected stats %+v", st)
	}
}
