package api

import (
	"context"

	"github.com/stablex/driver/internal/domain"
	"github.com/stablex/driver/pkg/types"
)

// Provider is the narrow surface cmd/driver hands to the observability
// server: the live AuctionReader plus its readiness flag, the two
// things an operator needs to inspect from outside the process.
type Provider interface {
	domain.AuctionReader
	Ready() bool
}

// Ticker is the narrow surface an external scheduler drives through
// POST /tick?batch=N: the hook through which a batch boundary reaches
// the driver (§6 Non-goals — the scheduling policy itself stays
// external; this is only the trigger).
type Ticker interface {
	Tick(ctx context.Context, batch types.BatchIndex) error
}

// BuildSnapshot renders the current auction view for batch as its wire
// Snapshot, returning domain.ErrNotReady unchanged if the reader isn't
// ready yet.
func BuildSnapshot(ctx context.Context, provider Provider, batch types.BatchIndex) (Snapshot, error) {
	data, err := provider.GetAuctionData(ctx, batch)
	if err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(batch, data), nil
}
