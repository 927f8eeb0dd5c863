package boltdb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/boltdb/bolt"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/repo"
	"github.com/kiosk404/warden/internal/warden/service/agents/pkg/errno"
	"github.com/kiosk404/warden/pkg/utils/json"
)

var _ repo.ConversationRepository = (*ConversationStore)(nil)

// ConversationStore implements repo.ConversationRepository on BoltDB.
// Each conversation is one JSON document keyed by its id; every operation
// runs in a single bolt transaction.
type ConversationStore struct {
	boltDB *bolt.DB
}

// NewConversationStore creates a store on an opened DB.
func NewConversationStore(db *DB) *ConversationStore {
	return &ConversationStore{boltDB: db.Bolt()}
}

func (s *ConversationStore) Get(_ context.Context, id entity.ConversationID) (*entity.Conversation, error) {
	var conv *entity.Conversation
	err := s.boltDB.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketConversations).Get([]byte(id))
		if data == nil {
			return errno.ConversationNotFound(string(id))
		}
		var err error
		conv, err = decode(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ConversationStore) Save(_ context.Context, conv *entity.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation %q: %w", conv.ID(), err)
	}
	return s.boltDB.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketConversations).Put([]byte(conv.ID()), data)
	})
}

func (s *ConversationStore) Exists(_ context.Context, id entity.ConversationID) (bool, error) {
	var exists bool
	err := s.boltDB.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(bucketConversations).Get([]byte(id)) != nil
		return nil
	})
	return exists, err
}

func (s *ConversationStore) Delete(_ context.Context, id entity.ConversationID) error {
	return s.boltDB.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketConversations).Delete([]byte(id))
	})
}

func (s *ConversationStore) GetOrCreate(_ context.Context, id entity.ConversationID) (*entity.Conversation, bool, error) {
	var (
		conv    *entity.Conversation
		created bool
	)
	err := s.boltDB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConversations)
		if data := b.Get([]byte(id)); data != nil {
			var err error
			conv, err = decode(data)
			return err
		}
		conv = entity.NewConversation(id)
		data, err := json.Marshal(conv)
		if err != nil {
			return fmt.Errorf("failed to marshal conversation %q: %w", conv.ID(), err)
		}
		created = true
		return b.Put([]byte(conv.ID()), data)
	})
	if err != nil {
		return nil, false, err
	}
	return conv, created, nil
}

func (s *ConversationStore) List(_ context.Context, limit int) ([]entity.ConversationID, error) {
	type header struct {
		ID        entity.ConversationID `json:"id"`
		UpdatedAt time.Time             `json:"updated_at"`
	}
	var headers []header
	err := s.boltDB.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketConversations).ForEach(func(_, v []byte) error {
			var h header
			if err := json.Unmarshal(v, &h); err != nil {
				return fmt.Errorf("failed to unmarshal conversation header: %w", err)
			}
			headers = append(headers, h)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(headers, func(i, j int) bool {
		return headers[i].UpdatedAt.After(headers[j].UpdatedAt)
	})
	if limit > 0 && len(headers) > limit {
		headers = headers[:limit]
	}
	ids := make([]entity.ConversationID, 0, len(headers))
	for _, h := range headers {
		ids = append(ids, h.ID)
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
