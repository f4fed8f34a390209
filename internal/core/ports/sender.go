package ports

import (
	"context"

	"github.com/popgraph/popgraph/internal/core/model"
)

// Sender is the port for publishing outbound graph-events. Delivery is
// best-effort: the graph store never depends on it for correctness.
type Sender interface {
	// Send sends graph-event data.
	Send(ctx context.Context, event model.GraphEvent) error
}
