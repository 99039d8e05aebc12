// Package store defines the storage interface and implementations.
package store

import (
	"context"
	"errors"

	"github.com/esmeralda-med/esmeralda/domain"
)

// ErrSessionNotFound is returned when a session does not exist.
var ErrSessionNotFound = errors.New("session not found")

// Store defines persistence for sessions and their append-only message
// logs. Messages are insert-only; sessions are only updated to freeze
// the title and anchor context.
type Store interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	// ListSessions returns sessions newest first.
	ListSessions(ctx context.Context) ([]domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, sessionID string) error

	AppendMessage(ctx context.Context, message *domain.Message) error
	// GetMessages returns messages in insertion order. A limit > 0 keeps
	// only the most recent limit messages, still oldest first.
	GetMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)
	CountMessages(ctx context.Context, sessionID string) (int, error)

	Close() error
}
