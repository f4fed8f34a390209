package ports

import (
	"context"

	"github.com/popgraph/popgraph/internal/core/model"
)

// GraphEventHandler handles incoming GraphEvents.
type GraphEventHandler interface {
	// Handle will receive an incoming graph event and handle it.
	Handle(ctx context.Context, event model.GraphEvent) error
}
