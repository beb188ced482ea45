// Package postgres implements aksara.ConversationStore using PostgreSQL.
//
// Store accepts an externally-owned *pgxpool.Pool via constructor injection.
// The caller creates and closes the pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aksara-ai/aksara"
)

// Option configures a PostgreSQL Store.
type Option func(*Store)

// WithTTL sets the sliding expiry window (default: aksara.DefaultTTL).
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithClock replaces the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store implements aksara.ConversationStore backed by PostgreSQL. Expiry is
// enforced on read; expired rows are deleted lazily.
type Store struct {
	pool *pgxpool.Pool
	ttl  time.Duration
	now  func() time.Time
}

var _ aksara.ConversationStore = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool, ttl: aksara.DefaultTTL, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Init creates all required tables. Safe to call multiple times.
func (s *Store) Init(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			expires_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS turns (
			seq BIGSERIAL PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_conversation ON turns(conversation_id)`,
	}
	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// Load returns the conversation's turns in append order, or an empty history
// when the conversation is missing or past its expiry.
func (s *Store) Load(ctx context.Context, threadID string) ([]aksara.Turn, error) {
	var expiresAt int64
	err := s.pool.QueryRow(ctx,
		`SELECT expires_at FROM conversations WHERE id = $1`, threadID).Scan(&expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if expiresAt <= s.now().Unix() {
		if err := s.deleteConversation(ctx, threadID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT role, content, created_at FROM turns WHERE conversation_id = $1 ORDER BY seq`, threadID)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	defer rows.Close()

	var turns []aksara.Turn
	for rows.Next() {
		var t aksara.Turn
		if err := rows.Scan(&t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Append writes the turns and resets the sliding expiry in one transaction.
// Appending to an expired conversation discards the stale rows first.
func (s *Store) Append(ctx context.Context, threadID string, turns []aksara.Turn) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := s.now().Unix()

	var expiresAt int64
	err = tx.QueryRow(ctx,
		`SELECT expires_at FROM conversations WHERE id = $1 FOR UPDATE`, threadID).Scan(&expiresAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// New conversation.
	case err != nil:
		return fmt.Errorf("check conversation: %w", err)
	case expiresAt <= now:
		if _, err := tx.Exec(ctx, `DELETE FROM turns WHERE conversation_id = $1`, threadID); err != nil {
			return fmt.Errorf("discard expired turns: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO conversations (id, expires_at) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		threadID, s.now().Add(s.ttl).Unix()); err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}

	for _, t := range turns {
		if _, err := tx.Exec(ctx,
			`INSERT INTO turns (conversation_id, role, content, created_at) VALUES ($1, $2, $3, $4)`,
			threadID, t.Role, t.Content, t.CreatedAt); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) deleteConversation(ctx context.Context, threadID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `DELETE FROM turns WHERE conversation_id = $1`, threadID); err != nil {
		return fmt.Errorf("delete turns: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, threadID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return tx.Commit(ctx)
}
