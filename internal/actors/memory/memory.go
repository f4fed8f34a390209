package memory

import (
	"context"
	"sync"
	"time"

	"github.com/popgraph/popgraph/internal/core/model"
)

// Store is an in-process implementation of ports.Repository. It is used for
// local runs without a database and by the usecase tests. All operations
// run under one mutex, so the canonicalize-then-insert and count-then-delete
// invariants hold under concurrent callers.
type Store struct {
	mu          sync.RWMutex
	users       map[string]model.User
	userOrder   []string
	friendships []model.Friendship
	nextEdgeID  int64
	nowFunc     func() time.Time
}

// StoreOptArgs are the optional arguments for building a Store.
type StoreOptArgs = func(*Store)

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) StoreOptArgs {
	return func(s *Store) {
		s.nowFunc = nowFunc
	}
}

// NewStore creates a new Store.
func NewStore(optArgs ...StoreOptArgs) *Store {
	s := &Store{
		users:      make(map[string]model.User),
		nextEdgeID: 1,
		nowFunc:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range optArgs {
		opt(s)
	}
	return s
}

// SaveUser durably saves the user.
func (s *Store) SaveUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.nowFunc()
	}
	if _, exists := s.users[user.ID]; !exists {
		s.userOrder = append(s.userOrder, user.ID)
	}
	s.users[user.ID] = bareUser(*user)
	return nil
}

// GetUser returns the bare user record.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &user, nil
}

// ListUsers lists all users in insertion order.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]model.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		users = append(users, s.users[id])
	}
	return users, nil
}

// UpdateUser replaces the mutable fields of an existing user.
func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return model.ErrNotFound
	}
	existing.Username = user.Username
	existing.Age = user.Age
	existing.Hobbies = user.Hobbies
	s.users[user.ID] = existing

	user.CreatedAt = existing.CreatedAt
	return nil
}

// DeleteUser removes the user unless it still has edges.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return model.ErrNotFound
	}
	for _, f := range s.friendships {
		if f.UserID1 == id || f.UserID2 == id {
			return model.ErrHasFriendships
		}
	}

	delete(s.users, id)
	for i, oid := range s.userOrder {
		if oid == id {
			s.userOrder = append(s.userOrder[:i], s.userOrder[i+1:]...)
			break
		}
	}
	return nil
}

// SaveFriendship inserts the canonical edge or returns the existing one.
func (s *Store) SaveFriendship(ctx context.Context, friendship *model.Friendship) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.friendships {
		if f.UserID1 == friendship.UserID1 && f.UserID2 == friendship.UserID2 {
			*friendship = f
			return false, nil
		}
	}

	friendship.ID = s.nextEdgeID
	s.nextEdgeID++
	if friendship.CreatedAt.IsZero() {
		friendship.CreatedAt = s.nowFunc()
	}
	s.friendships = append(s.friendships, *friendship)
	return true, nil
}

// DeleteFriendship removes the canonical edge if present.
func (s *Store) DeleteFriendship(ctx context.Context, userID1, userID2 string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range s.friendships {
		if f.UserID1 == userID1 && f.UserID2 == userID2 {
			s.friendships = append(s.friendships[:i], s.friendships[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// ListFriendships lists all edges in insertion order.
func (s *Store) ListFriendships(ctx context.Context) ([]model.Friendship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	friendships := make([]model.Friendship, len(s.friendships))
	copy(friendships, s.friendships)
	return friendships, nil
}

// FriendIDs returns the distinct neighbor ids of the given user.
func (s *Store) FriendIDs(ctx context.Context, id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var friends []string
	for _, f := range s.friendships {
		switch id {
		case f.UserID1:
			friends = append(friends, f.UserID2)
		case f.UserID2:
			friends = append(friends, f.UserID1)
		}
	}
	return friends, nil
}

// bareUser strips the derived fields so the store never persists them.
func bareUser(user model.User) model.User {
	user.Friends = nil
	user.PopularityScore = 0
	return user
}
