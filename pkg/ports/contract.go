package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405.000000") + "-"

	t.Run("Create and Load", func(t *testing.T) {
		id := prefix + "create"
		s := domain.NewSession(id, "welcome", 1, "msg1")
		s.Context["name"] = "Sam"

		require.NoError(t, store.Create(ctx, s))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "msg1", loaded.CurrentNodeID)
		assert.Equal(t, "welcome", loaded.FlowID)
		assert.Equal(t, 1, loaded.FlowVersion)
		assert.Equal(t, "Sam", loaded.Context["name"])
		assert.Equal(t, domain.StatusRunning, loaded.Status)
		assert.Zero(t, loaded.Step)
	})

	t.Run("Create Rejects Running Session", func(t *testing.T) {
		id := prefix + "dup"
		require.NoError(t, store.Create(ctx, domain.NewSession(id, "welcome", 1, "msg1")))

		err := store.Create(ctx, domain.NewSession(id, "other", 1, "x"))
		assert.ErrorIs(t, err, domain.ErrAlreadyRunning)
	})

	t.Run("Create Replaces Terminal Session", func(t *testing.T) {
		id := prefix + "replace"
		s := domain.NewSession(id, "welcome", 1, "msg1")
		require.NoError(t, store.Create(ctx, s))

		done := s.Clone()
		done.Step = 1
		done.Status = domain.StatusCompleted
		require.NoError(t, store.Save(ctx, done))

		require.NoError(t, store.Create(ctx, domain.NewSession(id, "other", 2, "x")))
		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "other", loaded.FlowID)
		assert.Zero(t, loaded.Step)
	})

	t.Run("Optimistic Save", func(t *testing.T) {
		id := prefix + "optimistic"
		require.NoError(t, store.Create(ctx, domain.NewSession(id, "welcome", 1, "msg1")))

		a, err := store.Load(ctx, id)
		require.NoError(t, err)
		b, err := store.Load(ctx, id)
		require.NoError(t, err)

		a.Step++
		a.CurrentNodeID = "decision1"
		require.NoError(t, store.Save(ctx, a), "first writer wins")

		b.Step++
		b.CurrentNodeID = "elsewhere"
		assert.ErrorIs(t, store.Save(ctx, b), domain.ErrStaleWrite, "second writer is stale")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "decision1", loaded.CurrentNodeID)
		assert.Equal(t, uint64(1), loaded.Step)
	})

	t.Run("Save Unknown Session", func(t *testing.T) {
		s := domain.NewSession(prefix+"ghost", "welcome", 1, "msg1")
		s.Step = 1
		assert.ErrorIs(t, store.Save(ctx, s), domain.ErrSessionNotFound)
	})

	t.Run("Load Returns Copies", func(t *testing.T) {
		id := prefix + "copy"
		require.NoError(t, store.Create(ctx, domain.NewSession(id, "welcome", 1, "msg1")))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		loaded.Context["leak"] = "yes"

		again, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.NotContains(t, again.Context, "leak")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, prefix+"non-existent")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		id := prefix + "delete"
		require.NoError(t, store.Create(ctx, domain.NewSession(id, "welcome", 1, "msg1")))

		require.NoError(t, store.Delete(ctx, id))

		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := prefix + "list-1"
		id2 := prefix + "list-2"
		require.NoError(t, store.Create(ctx, domain.NewSession(id1, "welcome", 1, "msg1")))
		require.NoError(t, store.Create(ctx, domain.NewSession(id2, "welcome", 1, "msg1")))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
