// Package storetest holds the behavioural contract shared by every
// ConversationRepository implementation.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/repo"
	"github.com/kiosk404/warden/internal/warden/service/agents/pkg/errno"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunConversationRepositoryTests exercises r against the repository contract.
func RunConversationRepositoryTests(t *testing.T, newRepo func(t *testing.T) repo.ConversationRepository) {
	t.Run("GetMissing", func(t *testing.T) {
		r := newRepo(t)
		_, err := r.Get(context.Background(), "missing")
		require.ErrorIs(t, err, errno.ErrConversationNotFound)

		ok, err := r.Exists(context.Background(), "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("SaveAndGet", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		conv := entity.NewConversation("conv-save")
		conv.AddSystemMessage("system")
		_, err := conv.AddUserMessage("deploy please")
		require.NoError(t, err)
		tc := entity.NewToolCall(entity.ToolCallSpec{
			ToolName:         "shell_exec",
			Input:            entity.NewToolInput(map[string]any{"command": "kubectl rollout restart"}),
			RequiresApproval: true,
		})
		require.NoError(t, conv.RequestToolApproval(tc))
		conv.AddAssistantTurn("needs approval", []*entity.ToolCall{tc})
		require.NoError(t, r.Save(ctx, conv))

		got, err := r.Get(ctx, "conv-save")
		require.NoError(t, err)
		assert.Equal(t, conv.ID(), got.ID())
		assert.Len(t, got.Messages(), 3)
		assert.True(t, got.HasPendingApprovals())
		require.Len(t, got.PendingToolCalls(), 1)
		assert.Equal(t, tc.ID(), got.PendingToolCalls()[0].ID())

		// Save is an upsert.
		require.NoError(t, got.ApproveToolCall(tc.ID()))
		require.NoError(t, r.Save(ctx, got))
		again, err := r.Get(ctx, "conv-save")
		require.NoError(t, err)
		assert.False(t, again.HasPendingApprovals())
		assert.Len(t, again.ApprovedToolCalls(), 1)
	})

	t.Run("GetReturnsIndependentCopies", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		require.NoError(t, r.Save(ctx, entity.NewConversation("conv-copy")))

		a, err := r.Get(ctx, "conv-copy")
		require.NoError(t, err)
		_, err = a.AddUserMessage("unsaved")
		require.NoError(t, err)

		b, err := r.Get(ctx, "conv-copy")
		require.NoError(t, err)
		assert.Empty(t, b.Messages())
	})

	t.Run("Delete", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		require.NoError(t, r.Save(ctx, entity.NewConversation("conv-del")))
		require.NoError(t, r.Delete(ctx, "conv-del"))
		require.NoError(t, r.Delete(ctx, "conv-del"))

		ok, err := r.Exists(ctx, "conv-del")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("GetOrCreate", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		conv, created, err := r.GetOrCreate(ctx, "conv-goc")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, entity.ConversationID("conv-goc"), conv.ID())
		assert.Len(t, conv.ClearEvents(), 1, "a created conversation carries ConversationStarted")

		_, err = conv.AddUserMessage("hello")
		require.NoError(t, err)
		require.NoError(t, r.Save(ctx, conv))

		again, created, err := r.GetOrCreate(ctx, "conv-goc")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Len(t, again.Messages(), 1)
	})

	t.Run("GetOrCreateIsAtomic", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		const workers = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			creates int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, created, err := r.GetOrCreate(ctx, "conv-race")
				assert.NoError(t, err)
				if created {
					mu.Lock()
					creates++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, creates)
	})

	t.Run("ListMostRecentFirst", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			conv := entity.NewConversation(entity.ConversationID(fmt.Sprintf("conv-%d", i)))
			conv.AddSystemMessage("touch")
			require.NoError(t, r.Save(ctx, conv))
			time.Sleep(2 * time.Millisecond)
		}

		ids, err := r.List(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []entity.ConversationID{"conv-2", "conv-1"}, ids)
	})
}
