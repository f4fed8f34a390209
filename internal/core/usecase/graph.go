package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/popgraph/popgraph/internal/core/model"
	"github.com/popgraph/popgraph/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// maxUsernameLen caps the username length in runes.
const maxUsernameLen = 50

// GraphServiceArgs contains the mandatory arguments for the GraphService.
type GraphServiceArgs struct {
	// Repository is the repository for persistence operations.
	Repository ports.Repository
}

// GraphServiceOptArgs are the optional arguments for building a GraphService.
type GraphServiceOptArgs = func(*GraphService)

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) GraphServiceOptArgs {
	return func(s *GraphService) {
		s.nowFunc = nowFunc
	}
}

// WithIDFunc can be used to override the user-id allocator. Useful for testing.
func WithIDFunc(idFunc func() string) GraphServiceOptArgs {
	return func(s *GraphService) {
		s.newID = idFunc
	}
}

// WithSender attaches a best-effort publisher of graph events. Publish
// failures are logged and never fail the originating operation.
func WithSender(sender ports.Sender) GraphServiceOptArgs {
	return func(s *GraphService) {
		s.sender = sender
	}
}

// NewGraphService creates a new GraphService.
func NewGraphService(args GraphServiceArgs, optArgs ...GraphServiceOptArgs) *GraphService {
	s := &GraphService{
		repository: args.Repository,
		nowFunc:    func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
	for _, opt := range optArgs {
		opt(s)
	}
	return s
}

// GraphService gathers the functionality around the social graph: user
// lifecycle, friendship edges and the read-model projection. Scores are
// derived on every read and never persisted.
type GraphService struct {
	repository ports.Repository
	sender     ports.Sender
	nowFunc    func() time.Time
	newID      func() string
}

// CreateUser validates and creates a user.
func (s *GraphService) CreateUser(ctx context.Context, args model.CreateUserArgs) (*model.CreateUserResponse, error) {
	username, hobbies, err := validateProfile(args.Username, args.Age, args.Hobbies)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:        s.newID(),
		Username:  username,
		Age:       args.Age,
		Hobbies:   hobbies,
		CreatedAt: s.nowFunc(),
	}
	if err := s.repository.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error saving user in repository: %w", err)
	}

	created := *user
	created.Friends = []string{}
	created.PopularityScore = 0

	s.publish(ctx, model.GraphEvent{After: user})
	return &model.CreateUserResponse{User: created}, nil
}

// GetUser returns the user enriched with its current neighbor list and a
// freshly computed score. It returns model.ErrNotFound if the id does not
// correspond to an existing user.
func (s *GraphService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repository.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting user from repository: %w", err)
	}
	if err := s.enrichUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers lists all users enriched with neighbor lists and scores.
func (s *GraphService) ListUsers(ctx context.Context) (*model.ListUsersResponse, error) {
	users, _, err := s.loadEnriched(ctx)
	if err != nil {
		return nil, err
	}
	return &model.ListUsersResponse{Users: users}, nil
}

// UpdateUser replaces the mutable fields of a user. Identity, CreatedAt and
// edges are untouched. It returns model.ErrNotFound if the ID does not
// correspond to an existing user.
func (s *GraphService) UpdateUser(ctx context.Context, args model.UpdateUserArgs) (*model.UpdateUserResponse, error) {
	username, hobbies, err := validateProfile(args.Username, args.Age, args.Hobbies)
	if err != nil {
		return nil, err
	}

	before, err := s.repository.GetUser(ctx, args.ID)
	if err != nil {
		return nil, fmt.Errorf("error getting user from repository: %w", err)
	}

	updated := &model.User{
		ID:        before.ID,
		Username:  username,
		Age:       args.Age,
		Hobbies:   hobbies,
		CreatedAt: before.CreatedAt,
	}
	if err := s.repository.UpdateUser(ctx, updated); err != nil {
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	s.publish(ctx, model.GraphEvent{Before: before, After: updated})

	enriched := *updated
	if err := s.enrichUser(ctx, &enriched); err != nil {
		return nil, err
	}
	return &model.UpdateUserResponse{User: enriched}, nil
}

// DeleteUser removes a user without friendships. It returns
// model.ErrHasFriendships if the user still has edges (the caller unlinks
// first and retries) and model.ErrNotFound if the user does not exist.
func (s *GraphService) DeleteUser(ctx context.Context, id string) error {
	before, err := s.repository.GetUser(ctx, id)
	if err != nil {
		return fmt.Errorf("error getting user from repository: %w", err)
	}
	if err := s.repository.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("error deleting user from repository: %w", err)
	}

	s.publish(ctx, model.GraphEvent{Before: before})
	return nil
}

// LinkUsers creates the friendship between two distinct existing users. The
// pair is canonicalized first, so linking A-B after B-A returns the existing
// edge instead of creating a duplicate.
func (s *GraphService) LinkUsers(ctx context.Context, args model.LinkUsersArgs) (*model.LinkUsersResponse, error) {
	if args.UserID1 == args.UserID2 {
		return nil, fmt.Errorf("%w: users cannot be linked to themselves", model.ErrValidation)
	}
	id1, id2 := canonicalPair(args.UserID1, args.UserID2)

	for _, id := range []string{id1, id2} {
		if _, err := s.repository.GetUser(ctx, id); err != nil {
			return nil, fmt.Errorf("error getting link endpoint %s: %w", id, err)
		}
	}

	friendship := &model.Friendship{
		UserID1:   id1,
		UserID2:   id2,
		CreatedAt: s.nowFunc(),
	}
	created, err := s.repository.SaveFriendship(ctx, friendship)
	if err != nil {
		return nil, fmt.Errorf("error saving friendship in repository: %w", err)
	}

	if created {
		s.publish(ctx, model.GraphEvent{EdgeAfter: friendship})
	}
	return &model.LinkUsersResponse{Friendship: *friendship, Created: created}, nil
}

// UnlinkUsers removes the friendship between two users and reports whether
// anything was removed. A missing edge is not an error.
func (s *GraphService) UnlinkUsers(ctx context.Context, args model.LinkUsersArgs) (bool, error) {
	id1, id2 := canonicalPair(args.UserID1, args.UserID2)
	removed, err := s.repository.DeleteFriendship(ctx, id1, id2)
	if err != nil {
		return false, fmt.Errorf("error deleting friendship from repository: %w", err)
	}

	if removed {
		s.publish(ctx, model.GraphEvent{EdgeBefore: &model.Friendship{UserID1: id1, UserID2: id2}})
	}
	return removed, nil
}

// Snapshot assembles the read-optimized projection of the whole graph. It
// performs no mutation.
func (s *GraphService) Snapshot(ctx context.Context) (*model.GraphSnapshot, error) {
	users, friendships, err := s.loadEnriched(ctx)
	if err != nil {
		return nil, err
	}

	edges := make([]model.GraphEdge, len(friendships))
	for i, f := range friendships {
		edges[i] = model.GraphEdge{
			ID:     edgeID(f.UserID1, f.UserID2),
			Source: f.UserID1,
			Target: f.UserID2,
		}
	}
	return &model.GraphSnapshot{Users: users, Edges: edges}, nil
}

// restoreUser re-inserts a full user snapshot, keeping the original id and
// CreatedAt. Used by the command log to revert deletions and replay
// creations without re-allocating identifiers.
func (s *GraphService) restoreUser(ctx context.Context, user model.User) error {
	record := model.User{
		ID:        user.ID,
		Username:  user.Username,
		Age:       user.Age,
		Hobbies:   user.Hobbies,
		CreatedAt: user.CreatedAt,
	}
	if err := s.repository.SaveUser(ctx, &record); err != nil {
		return fmt.Errorf("error restoring user in repository: %w", err)
	}

	s.publish(ctx, model.GraphEvent{After: &record})
	return nil
}

// loadEnriched loads all users and edges and computes neighbor lists and
// scores in one pass.
func (s *GraphService) loadEnriched(ctx context.Context) ([]model.User, []model.Friendship, error) {
	users, err := s.repository.ListUsers(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("error listing users from repository: %w", err)
	}
	friendships, err := s.repository.ListFriendships(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("error listing friendships from repository: %w", err)
	}

	neighbors := make(map[string][]string, len(users))
	for _, f := range friendships {
		neighbors[f.UserID1] = append(neighbors[f.UserID1], f.UserID2)
		neighbors[f.UserID2] = append(neighbors[f.UserID2], f.UserID1)
	}

	hobbiesByID := make(map[string][]string, len(users))
	for _, u := range users {
		hobbiesByID[u.ID] = u.Hobbies
	}

	for i := range users {
		friends := neighbors[users[i].ID]
		if friends == nil {
			friends = []string{}
		}
		friendHobbies := make([][]string, len(friends))
		for j, id := range friends {
			friendHobbies[j] = hobbiesByID[id]
		}
		users[i].Friends = friends
		users[i].PopularityScore = popularityScore(users[i].Hobbies, friendHobbies)
	}
	return users, friendships, nil
}

// enrichUser fills in the neighbor list and score of a single user.
func (s *GraphService) enrichUser(ctx context.Context, user *model.User) error {
	friends, err := s.repository.FriendIDs(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("error listing friend ids from repository: %w", err)
	}
	if friends == nil {
		friends = []string{}
	}

	friendHobbies := make([][]string, len(friends))
	for i, id := range friends {
		friend, err := s.repository.GetUser(ctx, id)
		if err != nil {
			return fmt.Errorf("error getting friend %s from repository: %w", id, err)
		}
		friendHobbies[i] = friend.Hobbies
	}

	user.Friends = friends
	user.PopularityScore = popularityScore(user.Hobbies, friendHobbies)
	return nil
}

func (s *GraphService) publish(ctx context.Context, event model.GraphEvent) {
	if s.sender == nil {
		return
	}
	event.ID = s.newID()
	if err := s.sender.Send(ctx, event); err != nil {
		log.WithError(err).WithField("event-id", event.ID).Warn("error publishing graph event")
	}
}

// validateProfile applies the shared user validation: trimmed non-empty
// username of at most maxUsernameLen runes, age in [1,150], deduplicated
// hobbies. It rejects before any mutation is attempted.
func validateProfile(username string, age int, hobbies []string) (string, []string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", nil, fmt.Errorf("%w: username is required and must be a non-empty string", model.ErrValidation)
	}
	if utf8.RuneCountInString(username) > maxUsernameLen {
		return "", nil, fmt.Errorf("%w: username must be at most %d characters", model.ErrValidation, maxUsernameLen)
	}
	if age < 1 || age > 150 {
		return "", nil, fmt.Errorf("%w: age must be between 1 and 150", model.ErrValidation)
	}
	return username, dedupeHobbies(hobbies), nil
}

// canonicalPair fixes the order-independent representation of an unordered
// pair: the byte-wise smaller id always comes first.
func canonicalPair(a, b string) (string, string) {
	if strings.Compare(a, b) > 0 {
		return b, a
	}
	return a, b
}

// edgeID is the stable deterministic identifier of a canonical edge.
func edgeID(id1, id2 string) string {
	return id1 + "-" + id2
}
