package store

import (
	"context"
	"errors"

	"github.com/teemow/mailchat/internal/domain"
)

// ErrMessageNotFound is returned when no message carries the requested header.
var ErrMessageNotFound = errors.New("message not found")

// ErrThreadKeyNotFound is returned by ThreadByKey for an unknown key.
var ErrThreadKeyNotFound = errors.New("thread key not found")

// ErrDuplicate is returned when a unique id, thread key or message-id header
// is already taken.
var ErrDuplicate = errors.New("duplicate record")

// Store is the persistence capability used by the inbox service.
//
// Thread-scoped mutations must run inside WithThreadLock for that thread so
// there is at most one writer per thread at a time.
type Store interface {
	// ListThreads returns all threads ordered by LastMessageAt descending.
	ListThreads(ctx context.Context) ([]domain.Thread, error)
	// GetThread returns domain.ErrThreadNotFound for unknown ids.
	GetThread(ctx context.Context, threadID string) (*domain.Thread, error)
	// GetMessages returns the thread's messages ordered by SentAt ascending.
	GetMessages(ctx context.Context, threadID string) ([]domain.Message, error)
	// AppendMessage stores msg in its thread.
	AppendMessage(ctx context.Context, msg *domain.Message) error
	// UpdateThreadPreview copies preview onto the thread and adds
	// unreadDelta to its unread count. LastMessageAt never moves backwards.
	UpdateThreadPreview(ctx context.Context, threadID string, preview domain.ThreadPreview, unreadDelta int) error
	// MarkRead zeroes the unread count and marks every message read.
	MarkRead(ctx context.Context, threadID string) error
	// SetDeliveryStatus updates one message's delivery status.
	SetDeliveryStatus(ctx context.Context, messageID string, status domain.DeliveryStatus) error

	// ThreadByKey finds the thread created for a resolver key.
	ThreadByKey(ctx context.Context, key string) (*domain.Thread, error)
	// CreateThread stores a new thread. ID and ThreadKey must be unique.
	CreateThread(ctx context.Context, thread *domain.Thread) error
	// MessageByHeaderID finds a message by its Message-ID header.
	MessageByHeaderID(ctx context.Context, header string) (*domain.Message, error)

	// WithThreadLock runs fn as the single writer for key.
	WithThreadLock(ctx context.Context, key string, fn func(ctx context.Context) error) error

	Close() error
}
