package resultcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"iconsort/internal/classify"
)

// Store is the SQLite-backed classification cache.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// chunkSize keeps IN lists well below SQLite's variable limit.
	chunkSize = 400
)

// Open creates or opens the cache database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("cache path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Scope selects the entries a run may reuse: answers from the same provider
// and model given the same taxonomy.
type Scope struct {
	ProviderID string
	// Taxonomy is a classify.TaxonomyFingerprint.
	Taxonomy string
}

// Get returns the cached record for digest within scope.
func (s *Store) Get(ctx context.Context, digest string, scope Scope) (classify.Record, bool, error) {
	found, err := s.GetMany(ctx, []string{digest}, scope)
	if err != nil {
		return classify.Record{}, false, err
	}
	record, ok := found[digest]
	return record, ok, nil
}

// GetMany looks up every digest at once and returns hits keyed by digest.
// Hits are marked with SourceCache and their hit counters incremented.
func (s *Store) GetMany(ctx context.Context, digests []string, scope Scope) (map[string]classify.Record, error) {
	ctx = ensureContext(ctx)
	out := make(map[string]classify.Record)
	unique := dedupeStrings(digests)
	for start := 0; start < len(unique); start += chunkSize {
		end := min(start+chunkSize, len(unique))
		chunk := unique[start:end]
		if err := s.lookupChunk(ctx, chunk, scope, out); err != nil {
			return nil, err
		}
	}
	if len(out) > 0 {
		hits := make([]string, 0, len(out))
		for digest := range out {
			hits = append(hits, digest)
		}
		if err := s.touch(ctx, hits, scope); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) lookupChunk(ctx context.Context, digests []string, scope Scope, out map[string]classify.Record) error {
	args := make([]any, 0, len(digests)+2)
	args = append(args, scope.ProviderID, scope.Taxonomy)
	for _, digest := range digests {
		args = append(args, digest)
	}
	query := `SELECT digest, record_json FROM classifications
        WHERE provider_id = ? AND taxonomy = ? AND digest IN (` + placeholders(len(digests)) + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query cache: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var digest, raw string
		if err := rows.Scan(&digest, &raw); err != nil {
			return fmt.Errorf("scan cache row: %w", err)
		}
		var record classify.Record
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			// A corrupt row is a miss; Put overwrites it later.
			continue
		}
		record.Source = classify.SourceCache
		out[digest] = record
	}
	return rows.Err()
}

func (s *Store) touch(ctx context.Context, digests []string, scope Scope) error {
	for start := 0; start < len(digests); start += chunkSize {
		end := min(start+chunkSize, len(digests))
		chunk := digests[start:end]
		args := make([]any, 0, len(chunk)+2)
		args = append(args, scope.ProviderID, scope.Taxonomy)
		for _, digest := range chunk {
			args = append(args, digest)
		}
		query := `UPDATE classifications SET hits = hits + 1
            WHERE provider_id = ? AND taxonomy = ? AND digest IN (` + placeholders(len(chunk)) + `)`
		if err := s.execWithoutResultRetry(ctx, query, args...); err != nil {
			return fmt.Errorf("update cache hits: %w", err)
		}
	}
	return nil
}

// Put stores record for digest within scope, replacing any earlier entry.
// Error records are skipped.
func (s *Store) Put(ctx context.Context, digest string, scope Scope, record classify.Record) error {
	if record.IsError() || strings.TrimSpace(digest) == "" {
		return nil
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err = s.execWithoutResultRetry(ctx,
		`INSERT INTO classifications (digest, provider_id, taxonomy, category, record_json, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(digest, provider_id, taxonomy) DO UPDATE SET
            category = excluded.category,
            record_json = excluded.record_json,
            updated_at = excluded.updated_at`,
		digest, scope.ProviderID, scope.Taxonomy, record.Category, string(payload), now, now,
	)
	if err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	return nil
}

// ProviderStats summarizes the entries of one provider id.
type ProviderStats struct {
	ProviderID string    `json:"provider_id"`
	Entries    int       `json:"entries"`
	Hits       int       `json:"hits"`
	Newest     time.Time `json:"newest"`
}

// Stats summarizes the whole cache.
type Stats struct {
	Path      string          `json:"path"`
	Entries   int             `json:"entries"`
	Hits      int             `json:"hits"`
	SizeBytes int64           `json:"size_bytes"`
	Providers []ProviderStats `json:"providers"`
}

// Stats reports entry and hit counts per provider id, ordered by id.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	stats := Stats{Path: s.path}
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider_id, COUNT(1), COALESCE(SUM(hits), 0), MAX(updated_at)
        FROM classifications GROUP BY provider_id ORDER BY provider_id`)
	if err != nil {
		return stats, fmt.Errorf("query cache stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			entry  ProviderStats
			newest sql.NullString
		)
		if err := rows.Scan(&entry.ProviderID, &entry.Entries, &entry.Hits, &newest); err != nil {
			return stats, fmt.Errorf("scan cache stats: %w", err)
		}
		if newest.Valid {
			if ts, parseErr := time.Parse(time.RFC3339Nano, newest.String); parseErr == nil {
				entry.Newest = ts
			}
		}
		stats.Entries += entry.Entries
		stats.Hits += entry.Hits
		stats.Providers = append(stats.Providers, entry)
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}
	if info, statErr := os.Stat(s.path); statErr == nil {
		stats.SizeBytes = info.Size()
	}
	return stats, nil
}

// Clear deletes the entries of providerID, or every entry when providerID is
// empty, and returns how many rows were removed.
func (s *Store) Clear(ctx context.Context, providerID string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if strings.TrimSpace(providerID) == "" {
		res, err = s.execWithRetry(ctx, "DELETE FROM classifications")
	} else {
		res, err = s.execWithRetry(ctx, "DELETE FROM classifications WHERE provider_id = ?", providerID)
	}
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	return res.RowsAffected()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
