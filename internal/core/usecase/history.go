package usecase

import (
	"context"
	"fmt"

	"github.com/popgraph/popgraph/internal/core/model"
)

// defaultHistoryLimit bounds the command log length. Oldest entries are
// evicted first once the cap is exceeded.
const defaultHistoryLimit = 50

// CommandKind enumerates the reversible operations the log records.
type CommandKind string

const (
	KindCreateUser       CommandKind = "CreateUser"
	KindDeleteUser       CommandKind = "DeleteUser"
	KindUpdateUser       CommandKind = "UpdateUser"
	KindCreateFriendship CommandKind = "CreateFriendship"
	KindDeleteFriendship CommandKind = "DeleteFriendship"
)

// Command is the recorded, reversible representation of one mutating
// operation. Commands are immutable once recorded: the log only moves its
// cursor relative to them. The captured snapshots carry enough data to both
// redo and undo the operation, including the original user ids, so replays
// preserve referential identity.
type Command struct {
	// Kind tags which operation this command records.
	Kind CommandKind

	// User is the full record created (CreateUser) or deleted (DeleteUser).
	User model.User

	// Prev and Next are the field snapshots around an UpdateUser.
	Prev model.User
	Next model.User

	// UserID1 and UserID2 are the canonical endpoints of an edge command.
	UserID1 string
	UserID2 string
}

// CreateUserCommand records a successful user creation.
func CreateUserCommand(user model.User) Command {
	return Command{Kind: KindCreateUser, User: user}
}

// DeleteUserCommand records a successful user deletion. The full prior
// record is captured so undo can restore it.
func DeleteUserCommand(user model.User) Command {
	return Command{Kind: KindDeleteUser, User: user}
}

// UpdateUserCommand records a successful user update with the prior and new
// field snapshots captured at push time.
func UpdateUserCommand(prev, next model.User) Command {
	return Command{Kind: KindUpdateUser, Prev: prev, Next: next}
}

// CreateFriendshipCommand records a successful link between two users.
func CreateFriendshipCommand(userID1, userID2 string) Command {
	id1, id2 := canonicalPair(userID1, userID2)
	return Command{Kind: KindCreateFriendship, UserID1: id1, UserID2: id2}
}

// DeleteFriendshipCommand records a successful unlink between two users.
func DeleteFriendshipCommand(userID1, userID2 string) Command {
	id1, id2 := canonicalPair(userID1, userID2)
	return Command{Kind: KindDeleteFriendship, UserID1: id1, UserID2: id2}
}

// HistoryArgs contains the mandatory arguments for the History.
type HistoryArgs struct {
	// Service is the graph service the commands are replayed against.
	Service *GraphService
}

// HistoryOptArgs are the optional arguments for building a History.
type HistoryOptArgs = func(*History)

// WithLimit overrides the history cap.
func WithLimit(limit int) HistoryOptArgs {
	return func(h *History) {
		h.limit = limit
	}
}

// NewHistory creates a new History.
func NewHistory(args HistoryArgs, optArgs ...HistoryOptArgs) *History {
	h := &History{
		service: args.Service,
		current: -1,
		limit:   defaultHistoryLimit,
	}
	for _, opt := range optArgs {
		opt(h)
	}
	return h
}

// History is the linear undo/redo command log. The cursor partitions the
// recorded commands into an undoable prefix and a redoable suffix; pushing
// after undoing discards the redoable suffix.
//
// A History is scoped to a single logical session and is not goroutine-safe:
// a multi-actor deployment needs one log per session or an external
// serialization point.
type History struct {
	service  *GraphService
	commands []Command
	current  int
	limit    int
}

// CanUndo reports whether there is a command to undo.
func (h *History) CanUndo() bool {
	return h.current >= 0
}

// CanRedo reports whether there is a command to redo.
func (h *History) CanRedo() bool {
	return h.current < len(h.commands)-1
}

// Len returns the number of recorded commands.
func (h *History) Len() int {
	return len(h.commands)
}

// Push records a command performed against the graph service. Any redoable
// suffix is discarded; once the cap is exceeded the oldest entry is evicted.
func (h *History) Push(cmd Command) {
	h.commands = append(h.commands[:h.current+1], cmd)
	if len(h.commands) > h.limit {
		h.commands = h.commands[1:]
	}
	h.current = len(h.commands) - 1
}

// Undo reverts the command at the cursor. It is a no-op when there is
// nothing to undo. The cursor moves only if the inverse operation succeeds.
func (h *History) Undo(ctx context.Context) error {
	if !h.CanUndo() {
		return nil
	}
	if err := h.invert(ctx, h.commands[h.current]); err != nil {
		return fmt.Errorf("error undoing %s command: %w", h.commands[h.current].Kind, err)
	}
	h.current--
	return nil
}

// Redo re-applies the command after the cursor. It is a no-op when there is
// nothing to redo.
func (h *History) Redo(ctx context.Context) error {
	if !h.CanRedo() {
		return nil
	}
	if err := h.apply(ctx, h.commands[h.current+1]); err != nil {
		return fmt.Errorf("error redoing %s command: %w", h.commands[h.current+1].Kind, err)
	}
	h.current++
	return nil
}

// Clear empties the log and resets the cursor.
func (h *History) Clear() {
	h.commands = nil
	h.current = -1
}

// invert runs the exact inverse of a recorded command against the service.
// The log assumes a well-ordered single-writer sequence: e.g. undoing a
// creation presumes no later surviving command linked the user.
func (h *History) invert(ctx context.Context, cmd Command) error {
	switch cmd.Kind {
	case KindCreateUser:
		return h.service.DeleteUser(ctx, cmd.User.ID)
	case KindDeleteUser:
		return h.service.restoreUser(ctx, cmd.User)
	case KindUpdateUser:
		return h.reapply(ctx, cmd.Prev)
	case KindCreateFriendship:
		_, err := h.service.UnlinkUsers(ctx, model.LinkUsersArgs{UserID1: cmd.UserID1, UserID2: cmd.UserID2})
		return err
	case KindDeleteFriendship:
		_, err := h.service.LinkUsers(ctx, model.LinkUsersArgs{UserID1: cmd.UserID1, UserID2: cmd.UserID2})
		return err
	}
	return fmt.Errorf("unknown command kind %q", cmd.Kind)
}

// apply runs the forward operation of a recorded command against the
// service. Creations replay the captured original id.
func (h *History) apply(ctx context.Context, cmd Command) error {
	switch cmd.Kind {
	case KindCreateUser:
		return h.service.restoreUser(ctx, cmd.User)
	case KindDeleteUser:
		return h.service.DeleteUser(ctx, cmd.User.ID)
	case KindUpdateUser:
		return h.reapply(ctx, cmd.Next)
	case KindCreateFriendship:
		_, err := h.service.LinkUsers(ctx, model.LinkUsersArgs{UserID1: cmd.UserID1, UserID2: cmd.UserID2})
		return err
	case KindDeleteFriendship:
		_, err := h.service.UnlinkUsers(ctx, model.LinkUsersArgs{UserID1: cmd.UserID1, UserID2: cmd.UserID2})
		return err
	}
	return fmt.Errorf("unknown command kind %q", cmd.Kind)
}

func (h *History) reapply(ctx context.Context, snapshot model.User) error {
	_, err := h.service.UpdateUser(ctx, model.UpdateUserArgs{
		ID:       snapshot.ID,
		Username: snapshot.Username,
		Age:      snapshot.Age,
		Hobbies:  snapshot.Hobbies,
	})
	return err
}
