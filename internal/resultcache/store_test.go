package resultcache_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"iconsort/internal/classify"
	"iconsort/internal/resultcache"
)

func scope(providerID string) resultcache.Scope {
	return resultcache.Scope{ProviderID: providerID, Taxonomy: "t1"}
}

func openStore(t *testing.T) *resultcache.Store {
	t.Helper()
	store, err := resultcache.Open(filepath.Join(t.TempDir(), "cache", "classifications.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutThenGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	record := classify.Record{Category: "navigation", Tags: []string{"back"}, Confidence: 0.9, Source: classify.SourceStructured}

	if err := store.Put(ctx, "abc", scope("local/llava"), record); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, "abc", scope("local/llava"))
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Category != "navigation" || got.Confidence != 0.9 || got.Tags[0] != "back" {
		t.Fatalf("unexpected record %+v", got)
	}
	if got.Source != classify.SourceCache {
		t.Fatalf("cache hits should be marked, got source %q", got.Source)
	}

	if _, ok, _ := store.Get(ctx, "abc", scope("openai/gpt-4o")); ok {
		t.Fatal("entries must be scoped to the provider id")
	}
	other := resultcache.Scope{ProviderID: "local/llava", Taxonomy: "t2"}
	if _, ok, _ := store.Get(ctx, "abc", other); ok {
		t.Fatal("entries must be scoped to the taxonomy")
	}
}

func TestPutReplacesAndSkipsErrors(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	_ = store.Put(ctx, "abc", scope("p"), classify.Record{Category: "media", Tags: []string{"play"}})
	_ = store.Put(ctx, "abc", scope("p"), classify.Record{Category: "action", Tags: []string{"save"}})
	if err := store.Put(ctx, "def", scope("p"), classify.ErrorRecord(errors.New("boom"))); err != nil {
		t.Fatalf("Put error record: %v", err)
	}

	got, _, _ := store.Get(ctx, "abc", scope("p"))
	if got.Category != "action" {
		t.Fatalf("expected replacement, got %+v", got)
	}
	if _, ok, _ := store.Get(ctx, "def", scope("p")); ok {
		t.Fatal("error records must not be cached")
	}
}

func TestGetManyAndStats(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	for _, digest := range []string{"a", "b", "c"} {
		if err := store.Put(ctx, digest, scope("local/llava"), classify.Record{Category: "general", Tags: []string{"icon"}}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	_ = store.Put(ctx, "a", scope("openai/gpt-4o"), classify.Record{Category: "user", Tags: []string{"person"}})

	found, err := store.GetMany(ctx, []string{"a", "b", "b", "x", ""}, scope("local/llava"))
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(found))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 4 || stats.Hits != 2 || len(stats.Providers) != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.Providers[0].ProviderID != "local/llava" || stats.Providers[0].Entries != 3 {
		t.Fatalf("unexpected provider stats %+v", stats.Providers[0])
	}
	if stats.Providers[0].Newest.IsZero() {
		t.Fatal("expected newest timestamp")
	}
}

func TestClear(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	_ = store.Put(ctx, "a", scope("p1"), classify.Record{Category: "general", Tags: []string{"icon"}})
	_ = store.Put(ctx, "b", scope("p1"), classify.Record{Category: "general", Tags: []string{"icon"}})
	_ = store.Put(ctx, "a", scope("p2"), classify.Record{Category: "general", Tags: []string{"icon"}})

	removed, err := store.Clear(ctx, "p1")
	if err != nil || removed != 2 {
		t.Fatalf("Clear(p1) = %d, %v", removed, err)
	}
	removed, err = store.Clear(ctx, "")
	if err != nil || removed != 1 {
		t.Fatalf("Clear(all) = %d, %v", removed, err)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classifications.db")
	store, err := resultcache.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = store.Put(context.Background(), "a", scope("p"), classify.Record{Category: "media", Tags: []string{"play"}})
	_ = store.Close()

	reopened, err := resultcache.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, ok, _ := reopened.Get(context.Background(), "a", scope("p")); !ok {
		t.Fatal("entry lost across reopen")
	}
}

func TestOpenRejectsOtherSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classifications.db")
	store, err := resultcache.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := resultcache.Open(path); !errors.Is(err, resultcache.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}
