package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"earshot/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	store, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNormalizeKeyStableAcrossVariants(t *testing.T) {
	a := NormalizeKey("Café Tacvba - Eres")
	b := NormalizeKey("cafe tacvba   eres!!")
	if a != b {
		t.Fatalf("keys differ: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected sha256 hex key, got %q", a)
	}
}

func TestQueryCacheRoundTripAndTTL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := NormalizeKey("nautilus")

	if _, hit, err := store.GetQuery(ctx, key, time.Hour); err != nil || hit {
		t.Fatalf("expected miss on empty cache, hit=%v err=%v", hit, err)
	}

	if err := store.PutQuery(ctx, key, "nautilus", []byte(`{"candidates":[]}`)); err != nil {
		t.Fatalf("PutQuery returned error: %v", err)
	}

	payload, hit, err := store.GetQuery(ctx, key, time.Hour)
	if err != nil || !hit {
		t.Fatalf("expected hit, hit=%v err=%v", hit, err)
	}
	if string(payload) != `{"candidates":[]}` {
		t.Fatalf("unexpected payload %q", payload)
	}

	// Simulate an expired row by advancing the clock past the TTL.
	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, hit, err := store.GetQuery(ctx, key, time.Hour); err != nil || hit {
		t.Fatalf("expected expired miss, hit=%v err=%v", hit, err)
	}
}

func TestQueryCacheUpsertOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := NormalizeKey("overwrite me")

	if err := store.PutQuery(ctx, key, "overwrite me", []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := store.PutQuery(ctx, key, "overwrite me", []byte("two")); err != nil {
		t.Fatal(err)
	}
	payload, hit, err := store.GetQuery(ctx, key, 0)
	if err != nil || !hit {
		t.Fatalf("expected hit, hit=%v err=%v", hit, err)
	}
	if string(payload) != "two" {
		t.Fatalf("payload = %q, want latest write", payload)
	}
}

func TestAudioCacheMissWhenFileRemoved(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := NormalizeKey("ghost audio")

	audioPath := filepath.Join(store.AudioDir(), key+".wav")
	if err := os.WriteFile(audioPath, []byte("riff"), 0o644); err != nil {
		t.Fatal(err)
	}
	entry := AudioEntry{Provider: "ytdlp", SourceID: "abc123", Path: audioPath, Format: "wav"}
	if err := store.PutAudio(ctx, key, entry); err != nil {
		t.Fatalf("PutAudio returned error: %v", err)
	}

	got, hit, err := store.GetAudio(ctx, key)
	if err != nil || !hit {
		t.Fatalf("expected hit, hit=%v err=%v", hit, err)
	}
	if got != entry {
		t.Fatalf("entry mismatch: %+v", got)
	}

	if err := os.Remove(audioPath); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := store.GetAudio(ctx, key); err != nil || hit {
		t.Fatalf("expected miss after file removal, hit=%v err=%v", hit, err)
	}
	// The stale row should be gone for good.
	if _, hit, _ := store.GetAudio(ctx, key); hit {
		t.Fatal("stale audio row was not purged")
	}
}

func TestFeaturePathRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := NormalizeKey("features")

	featurePath := filepath.Join(store.FeatureDir(), key+".json")
	if err := os.WriteFile(featurePath, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := store.PutFeaturePath(ctx, key, featurePath); err != nil {
		t.Fatalf("PutFeaturePath returned error: %v", err)
	}
	path, hit, err := store.GetFeaturePath(ctx, key)
	if err != nil || !hit || path != featurePath {
		t.Fatalf("GetFeaturePath = %q hit=%v err=%v", path, hit, err)
	}

	if err := os.Remove(featurePath); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := store.GetFeaturePath(ctx, key); hit {
		t.Fatal("expected miss after feature file removal")
	}
}

func TestLyricsPayloads(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := NormalizeKey("lyrics")

	if err := store.PutLyrics(ctx, key, []byte(`{"text":"la la"}`)); err != nil {
		t.Fatal(err)
	}
	if err := store.PutLyricsAnalysis(ctx, key, []byte(`{"polarity":0.2}`)); err != nil {
		t.Fatal(err)
	}

	payload, hit, err := store.GetLyrics(ctx, key)
	if err != nil || !hit || string(payload) != `{"text":"la la"}` {
		t.Fatalf("GetLyrics = %q hit=%v err=%v", payload, hit, err)
	}
	payload, hit, err = store.GetLyricsAnalysis(ctx, key)
	if err != nil || !hit || string(payload) != `{"polarity":0.2}` {
		t.Fatalf("GetLyricsAnalysis = %q hit=%v err=%v", payload, hit, err)
	}
}

func TestStatusCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.PutQuery(ctx, NormalizeKey("q1"), "q1", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if err := store.PutQuery(ctx, NormalizeKey("q2"), "q2", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if err := store.PutLyrics(ctx, NormalizeKey("q1"), []byte("{}")); err != nil {
		t.Fatal(err)
	}

	status, err := store.Status(ctx)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.QueryEntries != 2 || status.LyricsEntries != 1 || status.AudioEntries != 0 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.DatabasePath == "" {
		t.Fatal("status missing database path")
	}
}

func TestKeyStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := NormalizeKey("mac miller good news")

	if err := store.PutQuery(ctx, key, "mac miller good news", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	audioPath := filepath.Join(store.AudioDir(), key+".wav")
	if err := os.WriteFile(audioPath, []byte("riff"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := store.PutAudio(ctx, key, AudioEntry{Provider: "ytdlp", SourceID: "y1", Path: audioPath, Format: "wav"}); err != nil {
		t.Fatal(err)
	}

	status, err := store.KeyStatus(ctx, key)
	if err != nil {
		t.Fatalf("KeyStatus returned error: %v", err)
	}
	if !status.QueryCached || !status.AudioCached || status.FeatureCached {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.AudioPath != audioPath {
		t.Fatalf("audio path = %q", status.AudioPath)
	}

	other, err := store.KeyStatus(ctx, NormalizeKey("unseen"))
	if err != nil {
		t.Fatalf("KeyStatus returned error: %v", err)
	}
	if other.QueryCached || other.AudioCached || other.FeatureCached {
		t.Fatalf("unseen key should be empty: %+v", other)
	}
}

func TestSchemaMismatchDetected(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()

	store, err := Open(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	if _, err := Open(&cfg); err == nil {
		t.Fatal("expected schema mismatch error")
	}
}
