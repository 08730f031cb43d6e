package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"metaview/internal/classify"
	"metaview/internal/extract"
	"metaview/internal/history"
	"metaview/internal/metadata"
	"metaview/internal/session"
	"metaview/internal/testsupport"
)

func TestRecordAndRecent(t *testing.T) {
	store := testsupport.MustOpenHistory(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		_, err := store.Record(ctx, history.Entry{
			RequestID:    "req-" + name,
			SourceName:   name,
			SourceSize:   int64(1000 * (i + 1)),
			FieldCount:   i,
			BucketCounts: map[string]int{classify.BucketEXIF: i},
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Record %s: %v", name, err)
		}
	}

	entries, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 || entries[0].SourceName != "c.jpg" || entries[1].SourceName != "b.jpg" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	newest := entries[0]
	if newest.Status != history.StatusOK || newest.SourceSize != 3000 || newest.FieldCount != 2 {
		t.Fatalf("unexpected newest entry %+v", newest)
	}
	if newest.BucketCounts[classify.BucketEXIF] != 2 {
		t.Fatalf("bucket counts not round-tripped: %v", newest.BucketCounts)
	}
	if !newest.CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("unexpected timestamp %v", newest.CreatedAt)
	}

	all, err := store.Recent(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected all entries, got %d (%v)", len(all), err)
	}
}

func TestRecentOrdersWithinOneSecond(t *testing.T) {
	store := testsupport.MustOpenHistory(t)
	ctx := context.Background()
	second := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	inserts := []struct {
		name string
		at   time.Time
	}{
		{"later.jpg", second.Add(500 * time.Millisecond)},
		{"whole.jpg", second},
		{"mid.jpg", second.Add(250 * time.Millisecond)},
		{"offset.jpg", time.Date(2024, 5, 1, 13, 0, 0, 100_000_000, time.FixedZone("CET", 3600))},
	}
	for _, in := range inserts {
		if _, err := store.Record(ctx, history.Entry{RequestID: in.name, SourceName: in.name, Status: history.StatusOK, CreatedAt: in.at}); err != nil {
			t.Fatalf("Record %s: %v", in.name, err)
		}
	}

	entries, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	want := []string{"later.jpg", "mid.jpg", "offset.jpg", "whole.jpg"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, name := range want {
		if entries[i].SourceName != name {
			t.Fatalf("entry %d = %s, want %s", i, entries[i].SourceName, name)
		}
	}
	if !entries[3].CreatedAt.Equal(second) {
		t.Fatalf("whole-second timestamp read back as %s", entries[3].CreatedAt)
	}
}

func TestRecordFailure(t *testing.T) {
	store := testsupport.MustOpenHistory(t)
	ctx := context.Background()

	entry := history.FromResult("req-1", metadata.Source{Name: "bad.bin", Data: []byte("xx")},
		extract.Result{Err: errors.New("decode error: unsupported image format")}, classify.DefaultTable())
	saved, err := store.Record(ctx, entry)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if saved.ID == 0 || saved.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", saved)
	}

	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	got := entries[0]
	if got.Status != history.StatusFailed || got.ErrorMessage == "" || got.BucketCounts != nil || got.SourceSize != 2 {
		t.Fatalf("unexpected failure entry %+v", got)
	}
}

func TestFromResultCountsBuckets(t *testing.T) {
	res := extract.Result{Metadata: metadata.Map{
		"FileName": metadata.String("a.jpg"),
		"Make":     metadata.String("Canon"),
		"FNumber":  metadata.Number(2.8),
		"latitude": metadata.Number(1),
	}}
	entry := history.FromResult("req", metadata.Source{Name: "a.jpg", Data: []byte{1, 2, 3}}, res, classify.DefaultTable())
	if entry.FieldCount != 4 || entry.Status != history.StatusOK {
		t.Fatalf("unexpected entry %+v", entry)
	}
	want := map[string]int{
		classify.BucketFileInfo:       1,
		classify.BucketEXIF:           1,
		classify.BucketGPS:            1,
		classify.BucketCameraSettings: 1,
		classify.BucketAdditional:     0,
	}
	for bucket, n := range want {
		if entry.BucketCounts[bucket] != n {
			t.Fatalf("bucket %s = %d, want %d", bucket, entry.BucketCounts[bucket], n)
		}
	}
}

func TestClear(t *testing.T) {
	store := testsupport.MustOpenHistory(t)
	ctx := context.Background()
	for _, name := range []string{"a.jpg", "b.jpg"} {
		if _, err := store.Record(ctx, history.Entry{RequestID: name, SourceName: name}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	removed, err := store.Clear(ctx)
	if err != nil || removed != 2 {
		t.Fatalf("Clear removed %d (%v)", removed, err)
	}
	entries, err := store.Recent(ctx, 0)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty history, got %d (%v)", len(entries), err)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Record(context.Background(), history.Entry{RequestID: "r", SourceName: "a.jpg"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store, err = history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	entries, err := store.Recent(context.Background(), 0)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected persisted entry, got %d (%v)", len(entries), err)
	}
}

func TestSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
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

	if _, err := history.Open(path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestFromSnapshotKeepsCompletionTime(t *testing.T) {
	completed := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	snap := session.Snapshot{
		RequestID:   "req-9",
		Source:      "watched.png",
		SourceSize:  2048,
		Result:      extract.Result{Metadata: metadata.Map{"FileType": metadata.String("png")}},
		CompletedAt: completed,
	}
	entry := history.FromSnapshot(snap, classify.DefaultTable())
	if entry.RequestID != "req-9" || entry.SourceName != "watched.png" || entry.SourceSize != 2048 {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if !entry.CreatedAt.Equal(completed) || entry.BucketCounts[classify.BucketFileInfo] != 1 {
		t.Fatalf("unexpected entry %+v", entry)
	}

	store := testsupport.MustOpenHistory(t)
	if _, err := store.Record(context.Background(), entry); err != nil {
		t.Fatalf("Record: %v", err)
	}
	recent, err := store.Recent(context.Background(), 1)
	if err != nil || len(recent) != 1 {
		t.Fatalf("Recent: %v (%d entries)", err, len(recent))
	}
	if !recent[0].CreatedAt.Equal(completed) {
		t.Fatalf("created_at = %s, want %s", recent[0].CreatedAt, completed)
	}
}
