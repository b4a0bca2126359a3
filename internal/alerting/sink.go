package alerting

import (
	"context"

	"github.com/prodmon/factory-engine/internal/domain"
)

// Sink is the outbound alert notification port. Delivery is
// fire-and-forget; dedup and persistence happen in the core before the
// sink is called.
type Sink interface {
	RaiseAlert(ctx context.Context, alert domain.Alert) error
}
