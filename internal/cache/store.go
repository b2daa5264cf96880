package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"earshot/internal/config"
	"earshot/internal/textutil"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users clear the cache database after a bump.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store manages cache persistence backed by SQLite plus on-disk audio and
// feature files.
type Store struct {
	db         *sql.DB
	path       string
	audioDir   string
	featureDir string
	now        func() time.Time
}

// AudioEntry describes a cached audio artifact.
type AudioEntry struct {
	Provider string
	SourceID string
	Path     string
	Format   string
}

// KeyStatus reports which artifacts are cached under one normalized key.
type KeyStatus struct {
	Key           string `json:"key"`
	QueryCached   bool   `json:"query_cached"`
	AudioCached   bool   `json:"audio_cached"`
	FeatureCached bool   `json:"feature_cached"`
	AudioPath     string `json:"audio_path,omitempty"`
	FeaturePath   string `json:"feature_path,omitempty"`
}

// Status summarizes cache contents for diagnostics.
type Status struct {
	DatabasePath    string `json:"database_path"`
	QueryEntries    int    `json:"query_entries"`
	AudioEntries    int    `json:"audio_entries"`
	FeatureEntries  int    `json:"feature_entries"`
	LyricsEntries   int    `json:"lyrics_entries"`
	AnalysisEntries int    `json:"lyrics_analysis_entries"`
}

// Open initializes or connects to the cache database and ensures the audio
// and feature directories exist.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	audioDir := filepath.Join(cfg.Paths.CacheDir, "audio")
	featureDir := filepath.Join(cfg.Paths.CacheDir, "features")
	for _, dir := range []string{audioDir, featureDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory %q: %w", dir, err)
		}
	}

	dbPath := filepath.Join(cfg.Paths.CacheDir, "cache.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:         db,
		path:       dbPath,
		audioDir:   audioDir,
		featureDir: featureDir,
		now:        time.Now,
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// AudioDir returns the directory holding cached audio files.
func (s *Store) AudioDir() string { return s.audioDir }

// FeatureDir returns the directory holding cached feature JSON files.
func (s *Store) FeatureDir() string { return s.featureDir }

// NormalizeKey derives the stable cache key for a raw query string.
func NormalizeKey(query string) string {
	sum := sha256.Sum256([]byte(textutil.Normalize(query)))
	return hex.EncodeToString(sum[:])
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}

	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// PutQuery upserts a cached discovery payload for the given key.
func (s *Store) PutQuery(ctx context.Context, key, queryText string, payload []byte) error {
	now := s.now().UTC().Format(time.RFC3339Nano)
	return s.execWithRetry(ctx, `
INSERT INTO query_cache (cache_key, query_text, payload, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(cache_key) DO UPDATE SET
    query_text = excluded.query_text,
    payload = excluded.payload,
    updated_at = excluded.updated_at`,
		key, queryText, string(payload), now, now)
}

// GetQuery returns a cached discovery payload when one exists and is younger
// than ttl. Expired rows are treated as misses but left in place; the next
// PutQuery overwrites them.
func (s *Store) GetQuery(ctx context.Context, key string, ttl time.Duration) ([]byte, bool, error) {
	ctx = ensureContext(ctx)
	var payload, updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, updated_at FROM query_cache WHERE cache_key = ?", key,
	).Scan(&payload, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read query cache: %w", err)
	}
	if ttl > 0 {
		stamp, parseErr := time.Parse(time.RFC3339Nano, updatedAt)
		if parseErr != nil || s.now().UTC().Sub(stamp) > ttl {
			return nil, false, nil
		}
	}
	return []byte(payload), true, nil
}

// PutAudio records a retrieved audio file for the given key.
func (s *Store) PutAudio(ctx context.Context, key string, entry AudioEntry) error {
	now := s.now().UTC().Format(time.RFC3339Nano)
	return s.execWithRetry(ctx, `
INSERT INTO source_audio (cache_key, provider, source_id, audio_path, format, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(cache_key) DO UPDATE SET
    provider = excluded.provider,
    source_id = excluded.source_id,
    audio_path = excluded.audio_path,
    format = excluded.format,
    updated_at = excluded.updated_at`,
		key, entry.Provider, entry.SourceID, entry.Path, entry.Format, now, now)
}

// GetAudio returns the cached audio entry for key. A row whose file no longer
// exists on disk is removed and reported as a miss.
func (s *Store) GetAudio(ctx context.Context, key string) (AudioEntry, bool, error) {
	ctx = ensureContext(ctx)
	var entry AudioEntry
	err := s.db.QueryRowContext(ctx,
		"SELECT provider, source_id, audio_path, format FROM source_audio WHERE cache_key = ?", key,
	).Scan(&entry.Provider, &entry.SourceID, &entry.Path, &entry.Format)
	if errors.Is(err, sql.ErrNoRows) {
		return AudioEntry{}, false, nil
	}
	if err != nil {
		return AudioEntry{}, false, fmt.Errorf("read source audio: %w", err)
	}
	if _, statErr := os.Stat(entry.Path); statErr != nil {
		_ = s.execWithRetry(ctx, "DELETE FROM source_audio WHERE cache_key = ?", key)
		return AudioEntry{}, false, nil
	}
	return entry, true, nil
}

// PutFeaturePath records the feature JSON file produced for key.
func (s *Store) PutFeaturePath(ctx context.Context, key, path string) error {
	now := s.now().UTC().Format(time.RFC3339Nano)
	return s.execWithRetry(ctx, `
INSERT INTO feature_cache (cache_key, feature_path, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(cache_key) DO UPDATE SET
    feature_path = excluded.feature_path,
    updated_at = excluded.updated_at`,
		key, path, now, now)
}

// GetFeaturePath returns the cached feature file path for key, dropping the
// row when the file is gone.
func (s *Store) GetFeaturePath(ctx context.Context, key string) (string, bool, error) {
	ctx = ensureContext(ctx)
	var path string
	err := s.db.QueryRowContext(ctx,
		"SELECT feature_path FROM feature_cache WHERE cache_key = ?", key,
	).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read feature cache: %w", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		_ = s.execWithRetry(ctx, "DELETE FROM feature_cache WHERE cache_key = ?", key)
		return "", false, nil
	}
	return path, true, nil
}

// PutLyrics stores the lyric payload for key.
func (s *Store) PutLyrics(ctx context.Context, key string, payload []byte) error {
	return s.putPayload(ctx, "lyrics_cache", key, payload)
}

// GetLyrics returns the cached lyric payload for key.
func (s *Store) GetLyrics(ctx context.Context, key string) ([]byte, bool, error) {
	return s.getPayload(ctx, "lyrics_cache", key)
}

// PutLyricsAnalysis stores the lyric-analysis payload for key.
func (s *Store) PutLyricsAnalysis(ctx context.Context, key string, payload []byte) error {
	return s.putPayload(ctx, "lyrics_analysis_cache", key, payload)
}

// GetLyricsAnalysis returns the cached lyric-analysis payload for key.
func (s *Store) GetLyricsAnalysis(ctx context.Context, key string) ([]byte, bool, error) {
	return s.getPayload(ctx, "lyrics_analysis_cache", key)
}

func (s *Store) putPayload(ctx context.Context, table, key string, payload []byte) error {
	now := s.now().UTC().Format(time.RFC3339Nano)
	query := fmt.Sprintf(`
INSERT INTO %s (cache_key, payload, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(cache_key) DO UPDATE SET
    payload = excluded.payload,
    updated_at = excluded.updated_at`, table)
	return s.execWithRetry(ctx, query, key, string(payload), now, now)
}

func (s *Store) getPayload(ctx context.Context, table, key string) ([]byte, bool, error) {
	ctx = ensureContext(ctx)
	var payload string
	query := fmt.Sprintf("SELECT payload FROM %s WHERE cache_key = ?", table)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", table, err)
	}
	return []byte(payload), true, nil
}

// KeyStatus reports the cached artifacts for a single key. Audio and feature
// entries whose backing files have disappeared count as absent.
func (s *Store) KeyStatus(ctx context.Context, key string) (KeyStatus, error) {
	ctx = ensureContext(ctx)
	status := KeyStatus{Key: key}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM query_cache WHERE cache_key = ?`, key).Scan(&n); err != nil {
		return KeyStatus{}, fmt.Errorf("check query_cache: %w", err)
	}
	status.QueryCached = n > 0

	if entry, ok, err := s.GetAudio(ctx, key); err == nil && ok {
		status.AudioCached = true
		status.AudioPath = entry.Path
	}
	if path, ok, err := s.GetFeaturePath(ctx, key); err == nil && ok {
		status.FeatureCached = true
		status.FeaturePath = path
	}
	return status, nil
}

// Status reports entry counts for each cache table.
func (s *Store) Status(ctx context.Context) (Status, error) {
	ctx = ensureContext(ctx)
	status := Status{DatabasePath: s.path}
	counts := []struct {
		table string
		dest  *int
	}{
		{"query_cache", &status.QueryEntries},
		{"source_audio", &status.AudioEntries},
		{"feature_cache", &status.FeatureEntries},
		{"lyrics_cache", &status.LyricsEntries},
		{"lyrics_analysis_cache", &status.AnalysisEntries},
	}
	for _, c := range counts {
		query := fmt.Sprintf("SELECT COUNT(1) FROM %s", c.table)
		if err := s.db.QueryRowContext(ctx, query).Scan(c.dest); err != nil {
			return Status{}, fmt.Errorf("count %s: %w", c.table, err)
		}
	}
	return status, nil
}
