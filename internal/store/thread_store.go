package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoThread indicates that no conversation thread is currently persisted.
var ErrNoThread = errors.New("no conversation thread exists")

// ThreadCreator creates a new provider-side conversation thread.
// Satisfied by the llm conversation provider.
type ThreadCreator interface {
	CreateThread(ctx context.Context) (string, error)
}

// ThreadStore persists the single current conversation thread.
// Rows are only inserted and deleted; the most recently updated row wins.
// Concurrent first calls may race and create two threads — harmless, since
// resolution is always "most recent" and the older row is just orphaned.
type ThreadStore struct {
	db      *DB
	creator ThreadCreator
}

// NewThreadStore creates a thread store using the given database and creator.
func NewThreadStore(db *DB, creator ThreadCreator) *ThreadStore {
	return &ThreadStore{db: db, creator: creator}
}

// GetOrCreate returns the most recently updated thread id, creating a new
// provider thread and persisting it when none exists.
func (s *ThreadStore) GetOrCreate(ctx context.Context) (string, error) {
	id, err := s.Current(ctx)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNoThread) {
		return "", err
	}

	id, err = s.creator.CreateThread(ctx)
	if err != nil {
		return "", fmt.Errorf("creating thread: %w", err)
	}

	now := time.Now().UTC().Format(time.DateTime)
	_, err = s.db.sql.ExecContext(ctx,
		`INSERT INTO agent_threads (thread_id, created_at, updated_at) VALUES (?, ?, ?)`,
		id, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("persisting thread: %w", err)
	}

	s.db.log.Info().Str("threadId", id).Msg("created conversation thread")
	return id, nil
}

// Current returns the most recently updated thread id without creating one.
func (s *ThreadStore) Current(ctx context.Context) (string, error) {
	var id string
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT thread_id FROM agent_threads ORDER BY updated_at DESC, rowid DESC LIMIT 1`,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoThread
	}
	if err != nil {
		return "", fmt.Errorf("loading current thread: %w", err)
	}
	return id, nil
}

// DeleteCurrent removes all persisted thread records. The next GetOrCreate
// creates a fresh thread. Deleting when no thread exists is a no-op.
func (s *ThreadStore) DeleteCurrent(ctx context.Context) error {
	res, err := s.db.sql.ExecContext(ctx, `DELETE FROM agent_threads`)
	if err != nil {
		return fmt.Errorf("deleting threads: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.db.log.Info().Int64("deleted", n).Msg("conversation threads deleted")
	}
	return nil
}
