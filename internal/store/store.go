// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/devmud/devmud-site/internal/domain"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Repository defines the interface for persisting chat audit records and
// contact inquiries.
type Repository interface {
	// RecordTurn appends one resolved chat turn to the audit log.
	RecordTurn(ctx context.Context, turn domain.Turn) error

	// ListTurns returns the turns of a widget session, oldest first.
	ListTurns(ctx context.Context, sessionID string) ([]domain.Turn, error)

	// CreateInquiry stores a new contact form submission.
	CreateInquiry(ctx context.Context, inquiry *domain.Inquiry) error

	// UpdateInquiryStatus records the relay outcome of an inquiry.
	UpdateInquiryStatus(ctx context.Context, id string, status domain.InquiryStatus) error

	// GetInquiry retrieves an inquiry by ID. Returns ErrNotFound if absent.
	GetInquiry(ctx context.Context, id string) (*domain.Inquiry, error)

	// PruneBefore deletes turns and inquiries created before cutoff.
	PruneBefore(ctx context.Context, cutoff time.Time) (turns int64, inquiries int64, err error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
