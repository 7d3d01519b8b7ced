package domain

import (
	"context"

	"github.com/stablex/driver/pkg/types"
)

// EventSource is the narrow slice of the external ContractReader (§6) that
// the event updater (C4) needs: a historical backfill and a live
// subscription.
type EventSource interface {
	// PastEvents returns every event in [fromBlock, toBlock). The returned
	// events are not required to be in order; C4 sorts them.
	PastEvents(ctx context.Context, fromBlock, toBlock uint64) ([]types.Event, error)

	// SubscribeLive begins streaming events starting at fromBlock
	// (inclusive) and returns a channel of events and a channel that
	// receives at most one error before closing. The subscription must be
	// installed before PastEvents is called, so no block is ever skipped
	// between the two (§4.4 step 1).
	SubscribeLive(ctx context.Context, fromBlock uint64) (<-chan types.Event, <-chan error, error)

	// LatestBlock returns the current chain head, used as the boundary
	// between the past-event backfill and the live subscription.
	LatestBlock(ctx context.Context) (uint64, error)
}
