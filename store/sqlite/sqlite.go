// Package sqlite implements aksara.ConversationStore using pure-Go SQLite.
// Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/aksara-ai/aksara"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store. If not set, no logs are
// emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithTTL sets the sliding expiry window (default: aksara.DefaultTTL).
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.ttl = ttl }
}

// WithClock replaces the time source. Test hook.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// Store implements aksara.ConversationStore backed by a local SQLite file.
// Expiry is enforced on read: an expired conversation loads as empty and its
// rows are deleted lazily.
type Store struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

var _ aksara.ConversationStore = (*Store)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, ttl: aksara.DefaultTTL, logger: nopLogger, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates all required tables.
func (s *Store) Init(ctx context.Context) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS turns (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_conversation ON turns(conversation_id)`,
	}
	for _, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Load returns the conversation's turns in append order, or an empty history
// when the conversation is missing or past its expiry.
func (s *Store) Load(ctx context.Context, threadID string) ([]aksara.Turn, error) {
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT expires_at FROM conversations WHERE id = ?`, threadID).Scan(&expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if expiresAt <= s.now().Unix() {
		s.logger.Debug("sqlite: conversation expired", "thread", threadID)
		if err := s.deleteConversation(ctx, threadID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM turns WHERE conversation_id = ? ORDER BY seq`, threadID)
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := s.now().Unix()

	var expiresAt int64
	err = tx.QueryRowContext(ctx,
		`SELECT expires_at FROM conversations WHERE id = ?`, threadID).Scan(&expiresAt)
	switch {
	case err == sql.ErrNoRows:
		// New conversation.
	case err != nil:
		return fmt.Errorf("check conversation: %w", err)
	case expiresAt <= now:
		if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE conversation_id = ?`, threadID); err != nil {
			return fmt.Errorf("discard expired turns: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversations (id, expires_at) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET expires_at = excluded.expires_at`,
		threadID, s.now().Add(s.ttl).Unix()); err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}

	for _, t := range turns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO turns (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
			threadID, t.Role, t.Content, t.CreatedAt); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) deleteConversation(ctx context.Context, threadID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE conversation_id = ?`, threadID); err != nil {
		return fmt.Errorf("delete turns: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, threadID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return tx.Commit()
}
