package ports

import (
	"context"

	"github.com/popgraph/popgraph/internal/core/model"
)

// Repository is the interface for the persistence layer. It stores bare
// records: enrichment (friend lists, scores) happens in the usecase layer.
//
// Mutating operations must be atomic with respect to the invariants they
// guard: SaveFriendship's lookup-then-insert and DeleteUser's
// count-then-delete run in a single transaction or equivalent scope.
type Repository interface {
	// SaveUser durably saves the user. The caller provides the id and,
	// when restoring a previously deleted record, the original CreatedAt.
	SaveUser(ctx context.Context, user *model.User) error

	// GetUser returns the bare user record. It returns model.ErrNotFound
	// if the id does not correspond to an existing user.
	GetUser(ctx context.Context, id string) (*model.User, error)

	// ListUsers lists all users in the store's natural enumeration order.
	ListUsers(ctx context.Context) ([]model.User, error)

	// UpdateUser replaces the mutable fields (username, age, hobbies) of an
	// existing user. Identity and CreatedAt are untouched. It returns
	// model.ErrNotFound if the user does not exist.
	UpdateUser(ctx context.Context, user *model.User) error

	// DeleteUser removes the user. It returns model.ErrHasFriendships if
	// the user still has edges and model.ErrNotFound if it does not exist.
	DeleteUser(ctx context.Context, id string) error

	// SaveFriendship inserts the canonical edge, or fills in the existing
	// record when the pair is already linked, reporting whether a new edge
	// was created. The input pair must already be canonical
	// (UserID1 < UserID2).
	SaveFriendship(ctx context.Context, friendship *model.Friendship) (created bool, err error)

	// DeleteFriendship removes the canonical edge and reports whether
	// anything was removed. A missing edge is not an error.
	DeleteFriendship(ctx context.Context, userID1, userID2 string) (bool, error)

	// ListFriendships lists all edges in insertion order.
	ListFriendships(ctx context.Context) ([]model.Friendship, error)

	// FriendIDs returns the distinct neighbor ids of the given user.
	FriendIDs(ctx context.Context, id string) ([]string, error)
}
