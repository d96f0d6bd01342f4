package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/orii-home/orii-core/internal/infrastructure/database"
)

// Store is the durable key→blob parameter store.
//
// It persists per-device present-state and the user profile across restarts.
// The underlying SQLite file does not tolerate concurrent access from the
// hub's many goroutines, so every operation passes through a single-slot
// gate: exactly one read/write/update is in flight process-wide. Callers
// block for at most the configured wait and then receive ErrBusy.
//
// Thread Safety: all methods are safe for concurrent use; concurrency is
// resolved by the gate, not by the caller.
type Store struct {
	db        *database.DB
	gate      chan struct{}
	opWait    time.Duration
	closing   chan struct{}
	closeOnce sync.Once
}

// schema is created on first use. A single table keeps the store honest:
// opaque keys, opaque JSON blobs, nothing device-specific leaks in here.
const schema = `
CREATE TABLE IF NOT EXISTS params (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL
)`

// Open prepares the parameter store on top of an open database connection.
//
// Parameters:
//   - db: Open database handle (ownership stays with the caller)
//   - opWait: Bounded wait for the serialization gate; operations that
//     cannot start within this window fail with ErrBusy
func Open(db *database.DB, opWait time.Duration) (*Store, error) {
	s := &Store{
		db:      db,
		gate:    make(chan struct{}, 1),
		opWait:  opWait,
		closing: make(chan struct{}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), opWait)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating params table: %w", err)
	}

	return s, nil
}

// acquire takes the gate or fails with ErrBusy after the bounded wait.
// The context is also honoured so callers can cancel early.
func (s *Store) acquire(ctx context.Context) error {
	timer := time.NewTimer(s.opWait)
	defer timer.Stop()

	select {
	case s.gate <- struct{}{}:
		return nil
	case <-s.closing:
		return ErrClosed
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrBusy, ctx.Err())
	case <-timer.C:
		return ErrBusy
	}
}

func (s *Store) release() {
	<-s.gate
}

// Read returns the blob stored under key.
// Returns ErrNotFound if the key has never been written.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM params WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading key %q: %w", key, err)
	}
	return value, nil
}

// Write stores the blob under key, creating or replacing the entry.
func (s *Store) Write(ctx context.Context, key string, value []byte) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO params (key, value, updated_at) VALUES (?, ?, ?)",
		key, value, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing key %q: %w", key, err)
	}
	return nil
}

// Update replaces the blob under an existing key.
// Returns ErrNotFound if the key was never written.
func (s *Store) Update(ctx context.Context, key string, value []byte) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	res, err := s.db.ExecContext(ctx,
		"UPDATE params SET value = ?, updated_at = ? WHERE key = ?",
		value, time.Now().UTC().Format(time.RFC3339), key,
	)
	if err != nil {
		return fmt.Errorf("updating key %q: %w", key, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating key %q: %w", key, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Close stops accepting new operations. Safe to call more than once.
// The database handle itself is closed by its owner, not here.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.closing) })
}
