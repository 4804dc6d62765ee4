package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebds/userapi/models"
)

func TestMemoryStore_SaveAssignsID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	user := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "h"}
	require.NoError(t, store.Save(ctx, user))
	assert.Equal(t, int64(1), user.ID)

	second := &models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "h"}
	require.NoError(t, store.Save(ctx, second))
	assert.Equal(t, int64(2), second.ID)
}

func TestMemoryStore_DuplicateEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Save(ctx, &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "h"}))

	err := store.Save(ctx, &models.User{Username: "impostor", Email: "alice@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	users, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestMemoryStore_UpdatePreservesID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	user := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "h"}
	require.NoError(t, store.Save(ctx, user))

	user.Username = "alicia"
	require.NoError(t, store.Save(ctx, user))

	got, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", got.Username)
	assert.Equal(t, "alice@example.com", got.Email)
}

func TestMemoryStore_UpdateOwnEmailIsNotADuplicate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	user := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "h"}
	require.NoError(t, store.Save(ctx, user))

	// Re-saving the same record with its own email must succeed.
	user.Username = "still alice"
	assert.NoError(t, store.Save(ctx, user))
}

func TestMemoryStore_FindMissing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.FindByID(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DeleteMissing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	assert.ErrorIs(t, store.DeleteByID(ctx, 42), ErrNotFound)
}

func TestMemoryStore_ListAllInsertionOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		require.NoError(t, store.Save(ctx, &models.User{Username: "u", Email: email, PasswordHash: "h"}))
	}

	users, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "a@example.com", users[0].Email)
	assert.Equal(t, "b@example.com", users[1].Email)
	assert.Equal(t, "c@example.com", users[2].Email)
}
