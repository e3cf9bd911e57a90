package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipforge/internal/config"
)

func newLocalStore(t *testing.T) *Local {
	t.Helper()
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	return store
}

func TestLocalPutGetRoundTrip(t *testing.T) {
	store := newLocalStore(t)
	ctx := context.Background()
	key := UploadKey("job-1", "source.mp4")

	payload := "not really video bytes"
	if err := store.Put(ctx, key, strings.NewReader(payload), int64(len(payload)), "video/mp4"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	rc, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != payload {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestLocalMoveAcrossNamespaces(t *testing.T) {
	store := newLocalStore(t)
	ctx := context.Background()
	src := ProcessingKey("job-1", "clip_0.mp4")
	dst := ResultKey("job-1", "clip_0.mp4")

	if err := store.Put(ctx, src, strings.NewReader("x"), 1, "video/mp4"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Move(ctx, src, dst); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := store.Get(ctx, src); err == nil {
		t.Fatal("source still readable after move")
	}
	rc, err := store.Get(ctx, dst)
	if err != nil {
		t.Fatalf("Get after move: %v", err)
	}
	rc.Close()
}

func TestLocalListScopedToPrefix(t *testing.T) {
	store := newLocalStore(t)
	ctx := context.Background()
	keys := []string{
		ResultKey("job-1", "clip_0.mp4"),
		ResultKey("job-1", "clip_1.mp4"),
		UploadKey("job-1", "source.mp4"),
	}
	for _, key := range keys {
		if err := store.Put(ctx, key, strings.NewReader("x"), 1, ""); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}

	assets, err := store.List(ctx, NamespaceResults)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("expected 2 result assets, got %d", len(assets))
	}
	for _, asset := range assets {
		if !strings.HasPrefix(asset.Key, NamespaceResults+"/") {
			t.Fatalf("listed key outside prefix: %s", asset.Key)
		}
	}
}

func TestLocalRejectsTraversal(t *testing.T) {
	store := newLocalStore(t)
	ctx := context.Background()
	if err := store.Put(ctx, "../escape.txt", strings.NewReader("x"), 1, ""); err == nil {
		t.Fatal("traversal key accepted")
	}
	if _, err := store.Get(ctx, "uploads/../../etc/passwd"); err == nil {
		t.Fatal("traversal key accepted on read")
	}
}

func TestLocalPresignReturnsFileURL(t *testing.T) {
	store := newLocalStore(t)
	ctx := context.Background()
	key := ResultKey("job-1", "final.mp4")
	if err := store.Put(ctx, key, strings.NewReader("x"), 1, ""); err != nil {
		t.Fatalf("Put: %v", err)
	}
	u, err := store.Presign(ctx, key, time.Hour)
	if err != nil {
		t.Fatalf("Presign: %v", err)
	}
	if !strings.HasPrefix(u, "file://") || !strings.HasSuffix(u, "final.mp4") {
		t.Fatalf("unexpected presign URL: %s", u)
	}
}

func TestRetentionSweepRemovesOnlyExpired(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocal(root)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ctx := context.Background()

	oldKey := UploadKey("job-old", "source.mp4")
	freshKey := UploadKey("job-new", "source.mp4")
	resultKey := ResultKey("job-old", "final.mp4")
	for _, key := range []string{oldKey, freshKey, resultKey} {
		if err := store.Put(ctx, key, strings.NewReader("x"), 1, ""); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}
	// Age the expired upload two days into the past.
	past := time.Now().Add(-48 * time.Hour)
	aged := filepath.Join(root, filepath.FromSlash(oldKey))
	if err := os.Chtimes(aged, past, past); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	cfg := config.Storage{UploadRetentionHours: 24, ResultRetentionHours: 24 * 7}
	retention := NewRetention(store, cfg, nil)
	removed, err := retention.Sweep(ctx, time.Now())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := store.Get(ctx, oldKey); err == nil {
		t.Fatal("expired asset survived sweep")
	}
	if _, err := store.Get(ctx, freshKey); err != nil {
		t.Fatalf("fresh asset removed: %v", err)
	}
	if _, err := store.Get(ctx, resultKey); err != nil {
		t.Fatalf("unexpired result removed: %v", err)
	}
}
