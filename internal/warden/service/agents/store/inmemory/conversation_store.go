package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/repo"
	"github.com/kiosk404/warden/internal/warden/service/agents/pkg/errno"
	"github.com/kiosk404/warden/pkg/utils/json"
)

var _ repo.ConversationRepository = (*ConversationStore)(nil)

type record struct {
	data      []byte
	updatedAt time.Time
}

// ConversationStore keeps serialized conversations in memory, so callers
// never share aggregate instances across Get calls.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[entity.ConversationID]record
}

// NewConversationStore creates an empty in-memory store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[entity.ConversationID]record),
	}
}

func (s *ConversationStore) Get(_ context.Context, id entity.ConversationID) (*entity.Conversation, error) {
	s.mu.RLock()
	rec, ok := s.conversations[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errno.ConversationNotFound(string(id))
	}
	return decode(rec.data)
}

func (s *ConversationStore) Save(_ context.Context, conv *entity.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation %q: %w", conv.ID(), err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conv.ID()] = record{data: data, updatedAt: conv.UpdatedAt()}
	return nil
}

func (s *ConversationStore) Exists(_ context.Context, id entity.ConversationID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.conversations[id]
	return ok, nil
}

func (s *ConversationStore) Delete(_ context.Context, id entity.ConversationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
	return nil
}

func (s *ConversationStore) GetOrCreate(_ context.Context, id entity.ConversationID) (*entity.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.conversations[id]; ok {
		conv, err := decode(rec.data)
		return conv, false, err
	}

	conv := entity.NewConversation(id)
	data, err := json.Marshal(conv)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal conversation %q: %w", conv.ID(), err)
	}
	s.conversations[conv.ID()] = record{data: data, updatedAt: conv.UpdatedAt()}
	return conv, true, nil
}

func (s *ConversationStore) List(_ context.Context, limit int) ([]entity.ConversationID, error) {
	s.mu.RLock()
	type entry struct {
		id        entity.ConversationID
		updatedAt time.Time
	}
	entries := make([]entry, 0, len(s.conversations))
	for id, rec := range s.conversations {
		entries = append(entries, entry{id: id, updatedAt: rec.updatedAt})
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].updatedAt.Equal(entries[j].updatedAt) {
			return entries[i].id < entries[j].id
		}
		return entries[i].updatedAt.After(entries[j].updatedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	ids := make([]entity.ConversationID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.id)
	}
	return ids, nil
}

func decode(data []byte) (*entity.Conversation, error) {
	var conv entity.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	return &conv, nil
}
