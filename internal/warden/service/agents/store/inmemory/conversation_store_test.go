package inmemory

import (
	"testing"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/repo"
	"github.com/kiosk404/warden/internal/warden/service/agents/store/storetest"
)

func TestConversationStore(t *testing.T) {
	storetest.RunConversationRepositoryTests(t, func(t *testing.T) repo.ConversationRepository {
		return NewConversationStore()
	})
}
