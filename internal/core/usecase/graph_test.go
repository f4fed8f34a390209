package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/popgraph/popgraph/internal/actors/memory"
	"github.com/popgraph/popgraph/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dummyTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestService builds a service over a fresh in-memory store with a fixed
// clock and sequential user ids.
func newTestService() *GraphService {
	counter := 0
	return NewGraphService(
		GraphServiceArgs{Repository: memory.NewStore(memory.WithNowFunc(func() time.Time { return dummyTime }))},
		WithNowFunc(func() time.Time { return dummyTime }),
		WithIDFunc(func() string {
			counter++
			return fmt.Sprintf("user-%02d", counter)
		}),
	)
}

func TestCreateUserValidation(t *testing.T) {
	tests := []struct {
		name string
		args model.CreateUserArgs
	}{
		{name: "empty username", args: model.CreateUserArgs{Username: "", Age: 30}},
		{name: "whitespace username", args: model.CreateUserArgs{Username: "   ", Age: 30}},
		{name: "username over length cap", args: model.CreateUserArgs{Username: strings.Repeat("x", 51), Age: 30}},
		{name: "age below range", args: model.CreateUserArgs{Username: "alice", Age: 0}},
		{name: "age above range", args: model.CreateUserArgs{Username: "alice", Age: 151}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			svc := newTestService()
			resp, err := svc.CreateUser(context.Background(), test.args)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestCreateUserNormalization(t *testing.T) {
	svc := newTestService()

	resp, err := svc.CreateUser(context.Background(), model.CreateUserArgs{
		Username: "  alice  ",
		Age:      30,
		Hobbies:  []string{"Gaming", "Reading", "Gaming"},
	})
	require.NoError(t, err)

	assert.Equal(t, "user-01", resp.User.ID)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, []string{"Gaming", "Reading"}, resp.User.Hobbies)
	assert.Equal(t, dummyTime, resp.User.CreatedAt)
	assert.Equal(t, []string{}, resp.User.Friends)
	assert.Zero(t, resp.User.PopularityScore)
}

func TestCreateUserAcceptsLongUnicodeUsername(t *testing.T) {
	svc := newTestService()

	// 50 runes, more than 50 bytes
	resp, err := svc.CreateUser(context.Background(), model.CreateUserArgs{
		Username: strings.Repeat("é", 50),
		Age:      30,
	})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 50), resp.User.Username)
}

func TestGetUserNotFound(t *testing.T) {
	svc := newTestService()

	user, err := svc.GetUser(context.Background(), "missing")
	assert.Nil(t, user)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdateUser(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, model.CreateUserArgs{Username: "alice", Age: 30, Hobbies: []string{"Reading"}})
	require.NoError(t, err)

	t.Run("replaces mutable fields only", func(t *testing.T) {
		resp, err := svc.UpdateUser(ctx, model.UpdateUserArgs{
			ID:       created.User.ID,
			Username: "alicia",
			Age:      31,
			Hobbies:  []string{"Yoga", "Yoga"},
		})
		require.NoError(t, err)
		assert.Equal(t, created.User.ID, resp.User.ID)
		assert.Equal(t, "alicia", resp.User.Username)
		assert.Equal(t, 31, resp.User.Age)
		assert.Equal(t, []string{"Yoga"}, resp.User.Hobbies)
		assert.Equal(t, created.User.CreatedAt, resp.User.CreatedAt)
	})

	t.Run("rejects invalid payload before touching state", func(t *testing.T) {
		_, err := svc.UpdateUser(ctx, model.UpdateUserArgs{ID: created.User.ID, Username: "", Age: 31})
		assert.ErrorIs(t, err, model.ErrValidation)

		current, err := svc.GetUser(ctx, created.User.ID)
		require.NoError(t, err)
		assert.Equal(t, "alicia", current.Username)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.UpdateUser(ctx, model.UpdateUserArgs{ID: "missing", Username: "bob", Age: 20})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestLinkUsers(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.CreateUser(ctx, model.CreateUserArgs{Username: "alice", Age: 30})
	require.NoError(t, err)
	b, err := svc.CreateUser(ctx, model.CreateUserArgs{Username: "bob", Age: 28})
	require.NoError(t, err)

	t.Run("self link is rejected", func(t *testing.T) {
		_, err := svc.LinkUsers(ctx, model.LinkUsersArgs{UserID1: a.User.ID, UserID2: a.User.ID})
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("missing endpoint", func(t *testing.T) {
		_, err := svc.LinkUsers(ctx, model.LinkUsersArgs{UserID1: a.User.ID, UserID2: "missing"})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("creates canonical edge", func(t *testing.T) {
		resp, err := svc.LinkUsers(ctx, model.LinkUsersArgs{UserID1: b.User.ID, UserID2: a.User.ID})
		require.NoError(t, err)
		assert.True(t, resp.Created)
		assert.Equal(t, a.User.ID, resp.Friendship.UserID1)
		assert.Equal(t, b.User.ID, resp.Friendship.UserID2)
	})

	t.Run("relinking in either order returns the existing edge", func(t *testing.T) {
		first, err := svc.LinkUsers(ctx, model.LinkUsersArgs{UserID1: a.User.ID, UserID2: b.User.ID})
		require.NoError(t, err)
		assert.False(t, first.Created)

		second, err := svc.LinkUsers(ctx, model.LinkUsersArgs{UserID1: b.User.ID, UserID2: a.User.ID})
		require.NoError(t, err)
		assert.False(t, second.Created)
		assert.Equal(t, first.Friendship.ID, second.Friendship.ID)
	})
}

func TestUnlinkUsers(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.CreateUser(ctx, model.CreateUserArgs{Username: "alice", Age: 30})
	require.NoError(t, err)
	b, err := svc.CreateUser(ctx, model.CreateUserArgs{Username: "bob", Age: 28})
	require.NoError(t, err)

	t.Run("missing edge reports false", func(t *testing.T) {
		removed, err := svc.UnlinkUsers(ctx, model.LinkUsersArgs{UserID1: a.User.ID, UserID2: b.User.ID})
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("removes regardless of argument order", func(t *testing.T) {
		_, err := svc.LinkUsers(ctx, model.LinkUsersArgs{UserID1: a.User.ID, UserID2: b.User.ID})
		require.NoError(t, err)

		removed, err := svc.UnlinkUsers(ctx, model.LinkUsersArgs{UserID1: b.User.ID, UserID2: a.User.ID})
		require.NoError(t, err)
		assert.True(t, removed)
	})
}

func TestDeleteUser(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.CreateUser(ctx, model.CreateUserArgs{Username: "alice", Age: 30})
	require.NoError(t, err)
	b, err := svc.CreateUser(ctx, model.CreateUserArgs{Username: "bob", Age: 28})
	require.NoError(t, err)
	_, err = svc.LinkUsers(ctx, model.LinkUsersArgs{UserID1: a.User.ID, UserID2: b.User.ID})
	require.NoError(t, err)

	t.Run("linked user cannot be deleted", func(t *testing.T) {
		err := svc.DeleteUser(ctx, a.User.ID)
		assert.ErrorIs(t, err, model.ErrHasFriendships)

		_, err = svc.GetUser(ctx, a.User.ID)
		assert.NoError(t, err)
	})

	t.Run("deletable after unlinking", func(t *testing.T) {
		_, err := svc.UnlinkUsers(ctx, model.LinkUsersArgs{UserID1: a.User.ID, UserID2: b.User.ID})
		require.NoError(t, err)

		require.NoError(t, svc.DeleteUser(ctx, a.User.ID))
		_, err = svc.GetUser(ctx, a.User.ID)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("unknown id", func(t *testing.T) {
		err := svc.DeleteUser(ctx, "missing")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestListUsersScores(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.CreateUser(ctx, model.CreateUserArgs{Username: "alice", Age: 30, Hobbies: []string{"Reading", "Gaming", "Coding"}})
	require.NoError(t, err)
	b, err := svc.CreateUser(ctx, model.CreateUserArgs{Username: "bob", Age: 28, Hobbies: []string{"Gaming", "Music"}})
	require.NoError(t, err)
	c, err := svc.CreateUser(ctx, model.CreateUserArgs{Username: "carol", Age: 35, Hobbies: []string{"Reading", "Yoga"}})
	require.NoError(t, err)
	d, err := svc.CreateUser(ctx, model.CreateUserArgs{Username: "dave", Age: 40, Hobbies: []string{"Traveling"}})
	require.NoError(t, err)

	for _, other := range []string{b.User.ID, c.User.ID, d.User.ID} {
		_, err := svc.LinkUsers(ctx, model.LinkUsersArgs{UserID1: a.User.ID, UserID2: other})
		require.NoError(t, err)
	}

	resp, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, resp.Users, 4)

	byID := make(map[string]model.User, len(resp.Users))
	for _, u := range resp.Users {
		byID[u.ID] = u
	}

	assert.Equal(t, 4.0, byID[a.User.ID].PopularityScore)
	assert.ElementsMatch(t, []string{b.User.ID, c.User.ID, d.User.ID}, byID[a.User.ID].Friends)
	assert.Equal(t, 1.5, byID[b.User.ID].PopularityScore)
	assert.Equal(t, 1.5, byID[c.User.ID].PopularityScore)
	assert.Equal(t, 1.0, byID[d.User.ID].PopularityScore)
}

func TestScoreIgnoresUnconnectedUsers(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.CreateUser(ctx, model.CreateUserArgs{Username: "alice", Age: 30, Hobbies: []string{"Reading", "Gaming"}})
	require.NoError(t, err)
	b, err := svc.CreateUser(ctx, model.CreateUserArgs{Username: "bob", Age: 28, Hobbies: []string{"Gaming"}})
	require.NoError(t, err)
	_, err = svc.LinkUsers(ctx, model.LinkUsersArgs{UserID1: a.User.ID, UserID2: b.User.ID})
	require.NoError(t, err)

	before, err := svc.GetUser(ctx, a.User.ID)
	require.NoError(t, err)
	require.Equal(t, 1.5, before.PopularityScore)

	// churn an unconnected user through its full lifecycle
	stranger, err := svc.CreateUser(ctx, model.CreateUserArgs{Username: "zed", Age: 50, Hobbies: []string{"Gaming", "Reading"}})
	require.NoError(t, err)
	_, err = svc.UpdateUser(ctx, model.UpdateUserArgs{ID: stranger.User.ID, Username: "zeddy", Age: 51, Hobbies: []string{"Reading"}})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteUser(ctx, stranger.User.ID))

	after, err := svc.GetUser(ctx, a.User.ID)
	require.NoError(t, err)
	assert.Equal(t, before.PopularityScore, after.PopularityScore)
	assert.Equal(t, before.Friends, after.Friends)
}

func TestSnapshot(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.CreateUser(ctx, model.CreateUserArgs{Username: "alice", Age: 30, Hobbies: []string{"Reading"}})
	require.NoError(t, err)
	b, err := svc.CreateUser(ctx, model.CreateUserArgs{Username: "bob", Age: 28, Hobbies: []string{"Reading"}})
	require.NoError(t, err)
	_, err = svc.LinkUsers(ctx, model.LinkUsersArgs{UserID1: b.User.ID, UserID2: a.User.ID})
	require.NoError(t, err)

	snapshot, err := svc.Snapshot(ctx)
	require.NoError(t, err)

	require.Len(t, snapshot.Users, 2)
	require.Len(t, snapshot.Edges, 1)

	edge := snapshot.Edges[0]
	assert.Equal(t, a.User.ID, edge.Source)
	assert.Equal(t, b.User.ID, edge.Target)
	assert.Equal(t, a.User.ID+"-"+b.User.ID, edge.ID)
	assert.Equal(t, 1.5, snapshot.Users[0].PopularityScore)
}

func TestSnapshotEmptyGraph(t *testing.T) {
	svc := newTestService()

	snapshot, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snapshot.Users)
	assert.Empty(t, snapshot.Edges)
}
