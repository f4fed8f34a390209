package memory

import (
	"context"
	"testing"
	"time"

	"github.com/popgraph/popgraph/internal/core/model"
	"github.com/popgraph/popgraph/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Repository = (*Store)(nil)

var dummyTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore() *Store {
	return NewStore(WithNowFunc(func() time.Time { return dummyTime }))
}

func TestStoreUserLifecycle(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	user := &model.User{ID: "u1", Username: "alice", Age: 30, Hobbies: []string{"Reading"}}
	require.NoError(t, store.SaveUser(ctx, user))
	assert.Equal(t, dummyTime, user.CreatedAt)

	got, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	require.NoError(t, store.UpdateUser(ctx, &model.User{ID: "u1", Username: "alicia", Age: 31}))
	got, err = store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alicia", got.Username)
	assert.Equal(t, dummyTime, got.CreatedAt)

	require.NoError(t, store.DeleteUser(ctx, "u1"))
	_, err = store.GetUser(ctx, "u1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestStoreDerivedFieldsAreNotPersisted(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	user := &model.User{ID: "u1", Username: "alice", Age: 30, Friends: []string{"ghost"}, PopularityScore: 9.5}
	require.NoError(t, store.SaveUser(ctx, user))

	got, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got.Friends)
	assert.Zero(t, got.PopularityScore)
}

func TestStoreListUsersInsertionOrder(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.SaveUser(ctx, &model.User{ID: id, Username: id, Age: 30}))
	}

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "c", users[0].ID)
	assert.Equal(t, "a", users[1].ID)
	assert.Equal(t, "b", users[2].ID)
}

func TestStoreFriendships(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.SaveUser(ctx, &model.User{ID: "a", Username: "alice", Age: 30}))
	require.NoError(t, store.SaveUser(ctx, &model.User{ID: "b", Username: "bob", Age: 28}))

	friendship := &model.Friendship{UserID1: "a", UserID2: "b"}
	created, err := store.SaveFriendship(ctx, friendship)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), friendship.ID)

	t.Run("duplicate pair returns existing edge", func(t *testing.T) {
		again := &model.Friendship{UserID1: "a", UserID2: "b"}
		created, err := store.SaveFriendship(ctx, again)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, friendship.ID, again.ID)
	})

	t.Run("linked user cannot be deleted", func(t *testing.T) {
		assert.ErrorIs(t, store.DeleteUser(ctx, "a"), model.ErrHasFriendships)
	})

	t.Run("neighbors are reported from both endpoints", func(t *testing.T) {
		friends, err := store.FriendIDs(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, friends)

		friends, err = store.FriendIDs(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, friends)
	})

	t.Run("delete friendship", func(t *testing.T) {
		removed, err := store.DeleteFriendship(ctx, "a", "b")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = store.DeleteFriendship(ctx, "a", "b")
		require.NoError(t, err)
		assert.False(t, removed)
	})
}
