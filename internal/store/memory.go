package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/teemow/mailchat/internal/domain"
)

// MemoryStore keeps threads and messages in process memory.
type MemoryStore struct {
	locks *KeyedLocker

	mu       sync.RWMutex
	threads  map[string]*domain.Thread
	keys     map[string]string // thread key -> thread id
	messages map[string][]*domain.Message
	headers  map[string]*domain.Message
	byID     map[string]*domain.Message
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:    NewKeyedLocker(),
		threads:  make(map[string]*domain.Thread),
		keys:     make(map[string]string),
		messages: make(map[string][]*domain.Message),
		headers:  make(map[string]*domain.Message),
		byID:     make(map[string]*domain.Message),
	}
}

var _ Store = (*MemoryStore)(nil)

// ListThreads implements Store.
func (s *MemoryStore) ListThreads(_ context.Context) ([]domain.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Thread, 0, len(s.threads))
	for _, t := range s.threads {
		out = append(out, *t)
	}
	sortThreads(out)
	return out, nil
}

// GetThread implements Store.
func (s *MemoryStore) GetThread(_ context.Context, threadID string) (*domain.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[threadID]
	if !ok {
		return nil, domain.ThreadNotFound(threadID)
	}
	cp := *t
	return &cp, nil
}

// GetMessages implements Store.
func (s *MemoryStore) GetMessages(_ context.Context, threadID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.threads[threadID]; !ok {
		return nil, domain.ThreadNotFound(threadID)
	}
	msgs := s.messages[threadID]
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, copyMessage(m))
	}
	sortMessages(out)
	return out, nil
}

// AppendMessage implements Store.
func (s *MemoryStore) AppendMessage(_ context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.threads[msg.ThreadID]; !ok {
		return domain.ThreadNotFound(msg.ThreadID)
	}
	if _, ok := s.byID[msg.ID]; ok {
		return fmt.Errorf("%w: message %s", ErrDuplicate, msg.ID)
	}
	if _, ok := s.headers[msg.MessageIDHeader]; ok {
		return fmt.Errorf("%w: message-id %s", ErrDuplicate, msg.MessageIDHeader)
	}

	cp := copyMessage(msg)
	s.messages[msg.ThreadID] = append(s.messages[msg.ThreadID], &cp)
	s.headers[cp.MessageIDHeader] = &cp
	s.byID[cp.ID] = &cp
	return nil
}

// UpdateThreadPreview implements Store.
func (s *MemoryStore) UpdateThreadPreview(_ context.Context, threadID string, preview domain.ThreadPreview, unreadDelta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[threadID]
	if !ok {
		return domain.ThreadNotFound(threadID)
	}
	applyPreview(t, preview, unreadDelta)
	return nil
}

// MarkRead implements Store.
func (s *MemoryStore) MarkRead(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[threadID]
	if !ok {
		return domain.ThreadNotFound(threadID)
	}
	t.UnreadCount = 0
	for _, m := range s.messages[threadID] {
		m.IsRead = true
	}
	return nil
}

// SetDeliveryStatus implements Store.
func (s *MemoryStore) SetDeliveryStatus(_ context.Context, messageID string, status domain.DeliveryStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byID[messageID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	}
	m.DeliveryStatus = status
	return nil
}

// ThreadByKey implements Store.
func (s *MemoryStore) ThreadByKey(_ context.Context, key string) (*domain.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.keys[key]
	if !ok {
		return nil, ErrThreadKeyNotFound
	}
	cp := *s.threads[id]
	return &cp, nil
}

// CreateThread implements Store.
func (s *MemoryStore) CreateThread(_ context.Context, thread *domain.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.threads[thread.ID]; ok {
		return fmt.Errorf("%w: thread %s", ErrDuplicate, thread.ID)
	}
	if thread.ThreadKey != "" {
		if _, ok := s.keys[thread.ThreadKey]; ok {
			return fmt.Errorf("%w: thread key %s", ErrDuplicate, thread.ThreadKey)
		}
		s.keys[thread.ThreadKey] = thread.ID
	}
	cp := *thread
	s.threads[thread.ID] = &cp
	return nil
}

// MessageByHeaderID implements Store.
func (s *MemoryStore) MessageByHeaderID(_ context.Context, header string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.headers[header]
	if !ok {
		return nil, ErrMessageNotFound
	}
	cp := copyMessage(m)
	return &cp, nil
}

// WithThreadLock implements Store.
func (s *MemoryStore) WithThreadLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return s.locks.Do(ctx, key, fn)
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

func applyPreview(t *domain.Thread, preview domain.ThreadPreview, unreadDelta int) {
	if preview.Category != "" {
		t.Category = preview.Category
	}
	t.PriorityScore = domain.Clamp(preview.PriorityScore)
	t.LastSummaryPreview = preview.LastSummaryPreview
	if preview.LastMessageAt.After(t.LastMessageAt) {
		t.LastMessageAt = preview.LastMessageAt
	}
	t.UnreadCount += unreadDelta
	if t.UnreadCount < 0 {
		t.UnreadCount = 0
	}
}

func copyMessage(m *domain.Message) domain.Message {
	cp := *m
	cp.ToAddresses = append([]string(nil), m.ToAddresses...)
	cp.Summary.ActionItems = append([]string{}, m.Summary.ActionItems...)
	cp.Summary.Entities = append([]string{}, m.Summary.Entities...)
	return cp
}

func sortThreads(threads []domain.Thread) {
	sort.SliceStable(threads, func(i, j int) bool {
		if threads[i].LastMessageAt.Equal(threads[j].LastMessageAt) {
			return threads[i].ID < threads[j].ID
		}
		return threads[i].LastMessageAt.After(threads[j].LastMessageAt)
	})
}

func sortMessages(msgs []domain.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].SentAt.Before(msgs[j].SentAt)
	})
}
