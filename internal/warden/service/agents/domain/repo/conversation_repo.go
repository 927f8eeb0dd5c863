package repo

import (
	"context"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
)

// ConversationRepository persists Conversation aggregates.
//
// It is the source of truth across the approval suspend point: a turn that
// ends with pending approvals is resumed from whatever Get returns, possibly
// in another process. Every operation is atomic per conversation id; no
// multi-conversation transactions are offered.
type ConversationRepository interface {
	// Get returns errno.ErrConversationNotFound when id is unknown.
	Get(ctx context.Context, id entity.ConversationID) (*entity.Conversation, error)

	// Save inserts or replaces the conversation.
	Save(ctx context.Context, conv *entity.Conversation) error

	Exists(ctx context.Context, id entity.ConversationID) (bool, error)

	// Delete removes the conversation. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id entity.ConversationID) error

	// GetOrCreate returns the stored conversation, or stores and returns a new
	// empty one. created reports which of the two happened.
	GetOrCreate(ctx context.Context, id entity.ConversationID) (conv *entity.Conversation, created bool, err error)

	// List returns conversation ids, most recently updated first.
	List(ctx context.Context, limit int) ([]entity.ConversationID, error)
}
