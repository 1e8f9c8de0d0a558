// Package sqlite provides a SQLite-backed persistent store that mirrors the
// in-memory semantics and snapshots state after every successful mutation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"mfcore/internal/infra/persistence/memory"
	"mfcore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const collectionKeyPrefix = "collection/"

// Store persists the in-memory state to a single SQLite table, one JSON row
// per collection. Structural transactions rewrite the affected rows; appends
// rewrite only the owning collection's row.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "mfcore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var snapshots []domain.CollectionSnapshot
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		var snapshot domain.CollectionSnapshot
		if err := json.Unmarshal(payload, &snapshot); err != nil {
			return fmt.Errorf("decode %s: %w", bucket, err)
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if len(snapshots) == 0 {
		return nil
	}
	s.ImportState(snapshots)
	return nil
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshots := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.Exec(`DELETE FROM state`); err != nil {
		retErr = fmt.Errorf("clear state: %w", err)
		return retErr
	}
	for _, snapshot := range snapshots {
		data, err := json.Marshal(snapshot)
		if err != nil {
			retErr = err
			return retErr
		}
		bucket := collectionKeyPrefix + domain.NormalizeID(snapshot.Collection.ID)
		if _, err := tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?)`, bucket, data); err != nil {
			retErr = fmt.Errorf("insert %s: %w", bucket, err)
			return retErr
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}

func (s *Store) persistCollection(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, ok := s.ExportCollection(id)
	if !ok {
		return nil
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	bucket := collectionKeyPrefix + domain.NormalizeID(snapshot.Collection.ID)
	if _, err := s.db.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
		return fmt.Errorf("upsert %s: %w", bucket, err)
	}
	return nil
}

// RunInTransaction applies fn within a transaction, then snapshots state to
// SQLite if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) error {
	if err := s.Store.RunInTransaction(ctx, fn); err != nil {
		return err
	}
	return s.persist()
}

// AppendSample appends one track sample and persists the owning collection.
func (s *Store) AppendSample(ctx context.Context, ref domain.TrackRef, sample domain.TrackSample) error {
	if err := s.Store.AppendSample(ctx, ref, sample); err != nil {
		return err
	}
	return s.persistCollection(ref.CollectionID)
}

// AppendValue appends one series value and persists the owning collection.
func (s *Store) AppendValue(ctx context.Context, ref domain.SeriesRef, value domain.SeriesValue) error {
	if err := s.Store.AppendValue(ctx, ref, value); err != nil {
		return err
	}
	return s.persistCollection(ref.CollectionID)
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
