package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Entry is one recorded moderation outcome.
type Entry struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	ChatID   int64  `db:"chat_id"`
	UserID   int64  `db:"user_id"`
	Category string `db:"category"`
	Action   string `db:"action"`
	Detail   string `db:"detail"`
}

// Store defines the audit log operations.
type Store interface {
	// Record inserts one entry.
	Record(ctx context.Context, entry *Entry) error

	// RunSQLMaintenance compacts the database.
	RunSQLMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewStore creates a Store backed by the given database.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &sqlxStore{db: db, log: logger.With("component", "audit_store")}
}

func (s *sqlxStore) Record(ctx context.Context, entry *Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO moderation_actions (created_at, chat_id, user_id, category, action, detail)
		VALUES (:created_at, :chat_id, :user_id, :category, :action, :detail)`

	if _, err := s.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum audit database: %w", err)
	}
	s.log.InfoContext(ctx, "Audit database maintenance completed")
	return nil
}
