package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/devmud/devmud-site/internal/domain"
	"github.com/devmud/devmud-site/internal/shared"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Repository = (*SQLiteStore)(nil)

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS chat_turns (
		id TEXT PRIMARY KEY,
		visitor_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		user_message TEXT NOT NULL,
		reply TEXT NOT NULL,
		outcome TEXT NOT NULL,
		latency_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_turns_session ON chat_turns(session_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_chat_turns_created ON chat_turns(created_at);

	CREATE TABLE IF NOT EXISTS inquiries (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT,
		company TEXT,
		service TEXT,
		message TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_inquiries_created ON inquiries(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RecordTurn appends a chat turn. It satisfies chat.TurnRecorder.
func (s *SQLiteStore) RecordTurn(ctx context.Context, turn domain.Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	query := `
	INSERT INTO chat_turns (id, visitor_id, session_id, user_message, reply, outcome, latency_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	return shared.RetryOnConflict(ctx, shared.DefaultRetryPolicy, "record turn", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			turn.ID, turn.VisitorID, turn.SessionID,
			turn.UserMessage, turn.Reply, string(turn.Outcome),
			turn.Latency.Milliseconds(), turn.CreatedAt.UnixMilli(),
		)
		return err
	})
}

// ListTurns returns the turns of a widget session, oldest first.
func (s *SQLiteStore) ListTurns(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	query := `
		SELECT id, visitor_id, session_id, user_message, reply, outcome, latency_ms, created_at
		FROM chat_turns WHERE session_id = ? ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query chat turns: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close chat turn rows", "error", closeErr)
		}
	}()

	var turns []domain.Turn
	for rows.Next() {
		var turn domain.Turn
		var outcome string
		var latencyMs, createdAt int64

		if err := rows.Scan(
			&turn.ID, &turn.VisitorID, &turn.SessionID,
			&turn.UserMessage, &turn.Reply, &outcome,
			&latencyMs, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan chat turn row: %w", err)
		}

		turn.Outcome = domain.Outcome(outcome)
		turn.Latency = time.Duration(latencyMs) * time.Millisecond
		turn.CreatedAt = time.UnixMilli(createdAt)
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat turns: %w", err)
	}

	return turns, nil
}

// CreateInquiry stores a new contact form submission. ID, timestamps and a
// pending status are filled in when unset.
func (s *SQLiteStore) CreateInquiry(ctx context.Context, inquiry *domain.Inquiry) error {
	now := time.Now()
	if inquiry.ID == "" {
		inquiry.ID = uuid.NewString()
	}
	if inquiry.Status == "" {
		inquiry.Status = domain.InquiryPending
	}
	if inquiry.CreatedAt.IsZero() {
		inquiry.CreatedAt = now
	}
	inquiry.UpdatedAt = inquiry.CreatedAt

	query := `
	INSERT INTO inquiries (id, name, email, phone, company, service, message, status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	return shared.RetryOnConflict(ctx, shared.DefaultRetryPolicy, "create inquiry", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			inquiry.ID, inquiry.Name, inquiry.Email,
			nullable(inquiry.Phone), nullable(inquiry.Company), nullable(inquiry.Service),
			inquiry.Message, string(inquiry.Status),
			inquiry.CreatedAt.UnixMilli(), inquiry.UpdatedAt.UnixMilli(),
		)
		return err
	})
}

// UpdateInquiryStatus records the relay outcome of an inquiry.
func (s *SQLiteStore) UpdateInquiryStatus(ctx context.Context, id string, status domain.InquiryStatus) error {
	query := `UPDATE inquiries SET status = ?, updated_at = ? WHERE id = ?`

	var rows int64
	err := shared.RetryOnConflict(ctx, shared.DefaultRetryPolicy, "update inquiry status", func(ctx context.Context) error {
		result, err := s.db.ExecContext(ctx, query, string(status), time.Now().UnixMilli(), id)
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("update inquiry %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetInquiry retrieves an inquiry by ID.
func (s *SQLiteStore) GetInquiry(ctx context.Context, id string) (*domain.Inquiry, error) {
	query := `
		SELECT id, name, email, phone, company, service, message, status, created_at, updated_at
		FROM inquiries WHERE id = ?`

	var inquiry domain.Inquiry
	var phone, company, service sql.NullString
	var status string
	var createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&inquiry.ID, &inquiry.Name, &inquiry.Email,
		&phone, &company, &service,
		&inquiry.Message, &status, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan inquiry: %w", err)
	}

	inquiry.Phone = phone.String
	inquiry.Company = company.String
	inquiry.Service = service.String
	inquiry.Status = domain.InquiryStatus(status)
	inquiry.CreatedAt = time.UnixMilli(createdAt)
	inquiry.UpdatedAt = time.UnixMilli(updatedAt)

	return &inquiry, nil
}

// PruneBefore deletes turns and inquiries created before cutoff.
func (s *SQLiteStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, int64, error) {
	threshold := cutoff.UnixMilli()

	turns, err := s.deleteBefore(ctx, `DELETE FROM chat_turns WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, 0, fmt.Errorf("prune chat turns: %w", err)
	}
	inquiries, err := s.deleteBefore(ctx, `DELETE FROM inquiries WHERE created_at < ?`, threshold)
	if err != nil {
		return turns, 0, fmt.Errorf("prune inquiries: %w", err)
	}
	return turns, inquiries, nil
}

func (s *SQLiteStore) deleteBefore(ctx context.Context, query string, threshold int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, query, threshold)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
