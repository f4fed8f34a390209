package usecase

import (
	"context"
	"fmt"
	"slices"

	"github.com/popgraph/popgraph/internal/core/model"
	"github.com/popgraph/popgraph/internal/core/ports"
)

// NewInformer builds a new informer.
func NewInformer(sender ports.Sender) *Informer {
	return &Informer{sender: sender}
}

// Informer adapts internal graph-change events to a public-facing event
// stream. It publicly 'informs' about user and friendship changes.
type Informer struct {
	sender ports.Sender
}

func (i *Informer) Handle(ctx context.Context, event model.GraphEvent) error {

	// drop events that carry no observable change, e.g. an update that
	// rewrote every field with its previous value
	if usersAreEqual(event.Before, event.After) && event.EdgeBefore == nil && event.EdgeAfter == nil {
		return nil
	}

	if err := i.sender.Send(ctx, event); err != nil {
		return fmt.Errorf("error sending graph event ID [%s]: %w", event.ID, err)
	}

	return nil
}

func usersAreEqual(before *model.User, after *model.User) bool {
	if before == nil && after == nil {
		return true
	}
	if before == nil || after == nil {
		return false
	}
	return before.ID == after.ID &&
		before.Username == after.Username &&
		before.Age == after.Age &&
		slices.Equal(before.Hobbies, after.Hobbies)
}
