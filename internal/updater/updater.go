// Package updater implements the event updater (§4.4, C4): a background
// task that subscribes to the live event stream, backfills past events,
// feeds both into the orderbook state engine (C3) in strict
// (block_number, log_index) order, and exposes a readiness flag. The
// outer run-until-cancelled loop follows the same shape as a
// reconnecting stream reader, adapted here to a subscribe-then-backfill
// event-sourcing protocol instead of a reconnect-on-drop one.
package updater

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/stablex/driver/internal/domain"
	"github.com/stablex/driver/internal/orderbook"
	"github.com/stablex/driver/internal/tscache"
	"github.com/stablex/driver/pkg/types"
)

// Updater owns the orderbook's write lock for the life of the process
// (§5): it is the only caller of Orderbook.ApplyEvent.
type Updater struct {
	ob     *orderbook.Orderbook
	source domain.EventSource
	cache  *tscache.Cache
	logger *slog.Logger

	ready chan struct{}
}

// New builds an updater over ob, reading events from source and
// resolving block timestamps through cache.
func New(ob *orderbook.Orderbook, source domain.EventSource, cache *tscache.Cache, logger *slog.Logger) *Updater {
	return &Updater{
		ob:     ob,
		source: source,
		cache:  cache,
		logger: logger.With("component", "updater"),
		ready:  make(chan struct{}),
	}
}

// Ready reports whether the initial past-events backfill has completed
// and the orderbook now reflects live state.
func (u *Updater) Ready() bool {
	select {
	case <-u.ready:
		return true
	default:
		return false
	}
}

// GetAuctionData implements domain.AuctionReader, refusing to serve a
// snapshot until the backfill has completed (§4.2, ErrNotReady).
func (u *Updater) GetAuctionData(_ context.Context, batch types.BatchIndex) (types.AuctionData, error) {
	if !u.Ready() {
		return types.AuctionData{}, domain.ErrNotReady
	}
	return u.ob.GetAuctionData(batch), nil
}

type pastResult struct {
	events []types.Event
	err    error
}

// Run executes the C4 protocol and blocks until ctx is cancelled or a
// fatal error occurs. Any panic escalates to process exit (§4.4, §5
// "Failure isolation") rather than being swallowed — Go mutexes have no
// poison analogue, so a panic mid-update would otherwise leave readers
// served from a partially applied event.
func (u *Updater) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			u.logger.Error("updater panicked, exiting process", "panic", r)
			os.Exit(1)
		}
	}()

	latest, err := u.source.LatestBlock(ctx)
	if err != nil {
		return fmt.Errorf("%w: latest block: %v", domain.ErrRPC, err)
	}

	// Subscribe before backfilling, so no block between the backfill's
	// upper bound and the live stream's start is ever skipped (§4.4 step 1).
	liveCh, liveErrCh, err := u.source.SubscribeLive(ctx, latest)
	if err != nil {
		return fmt.Errorf("%w: subscribe live: %v", domain.ErrRPC, err)
	}

	pastDone := make(chan pastResult, 1)
	go u.fetchPast(ctx, latest, pastDone)

	var buffered []types.Event
	for {
		if drained, err := u.drainExitOrLive(ctx, liveCh, &buffered); drained {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-liveCh:
			if !ok {
				return fmt.Errorf("%w: live stream closed during backfill", domain.ErrStreamEnded)
			}
			buffered = append(buffered, ev)
		case res := <-pastDone:
			if res.err != nil {
				return fmt.Errorf("%w: past events: %v", domain.ErrRPC, res.err)
			}
			for _, ev := range res.events {
				if err := u.apply(ctx, ev); err != nil {
					return err
				}
			}
			for _, ev := range buffered {
				if err := u.apply(ctx, ev); err != nil {
					return err
				}
			}
			buffered = nil
			close(u.ready)
			u.logger.Info("updater ready", "backfill_blocks", latest)
			return u.runLive(ctx, liveCh, liveErrCh)
		}
	}
}

// drainExitOrLive gives exit and already-queued live events priority
// over the still-running past-events future, and guarantees liveCh is
// polled at least once per loop iteration — required so the underlying
// RPC filter subscription stays installed even while the backfill is
// still in flight (§4.4).
func (u *Updater) drainExitOrLive(ctx context.Context, liveCh <-chan types.Event, buffered *[]types.Event) (bool, error) {
	select {
	case <-ctx.Done():
		return true, ctx.Err()
	default:
	}

	select {
	case ev, ok := <-liveCh:
		if !ok {
			return true, fmt.Errorf("%w: live stream closed during backfill", domain.ErrStreamEnded)
		}
		*buffered = append(*buffered, ev)
	default:
	}

	return false, nil
}

// runLive is the steady-state loop once the engine is ready: exit wins
// over live, live wins over a stream error (so a final in-flight event
// is still applied before the error is surfaced).
func (u *Updater) runLive(ctx context.Context, liveCh <-chan types.Event, liveErrCh <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		select {
		case ev, ok := <-liveCh:
			if !ok {
				return fmt.Errorf("%w: live stream closed", domain.ErrStreamEnded)
			}
			if err := u.apply(ctx, ev); err != nil {
				return err
			}
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-liveCh:
			if !ok {
				return fmt.Errorf("%w: live stream closed", domain.ErrStreamEnded)
			}
			if err := u.apply(ctx, ev); err != nil {
				return err
			}
		case err := <-liveErrCh:
			return fmt.Errorf("%w: live stream: %v", domain.ErrRPC, err)
		}
	}
}

// fetchPast retrieves events in [0, upTo), pre-warms the timestamp cache
// over the distinct block hashes observed, resolves each event's
// timestamp, and sorts the result into (block_number, log_index) order
// before returning it to Run for application (§4.4 steps 2-4).
func (u *Updater) fetchPast(ctx context.Context, upTo uint64, out chan<- pastResult) {
	events, err := u.source.PastEvents(ctx, 0, upTo)
	if err != nil {
		out <- pastResult{err: err}
		return
	}

	hashes := make(map[[32]byte]struct{})
	for _, ev := range events {
		hashes[ev.BlockHash] = struct{}{}
	}
	if err := u.cache.PrepareCache(ctx, hashes); err != nil {
		out <- pastResult{err: err}
		return
	}

	for i := range events {
		ts, err := u.cache.BlockTimestamp(ctx, events[i].BlockHash)
		if err != nil {
			out <- pastResult{err: err}
			return
		}
		events[i].BlockTimestamp = ts
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber < events[j].BlockNumber
		}
		return events[i].LogIndex < events[j].LogIndex
	})

	out <- pastResult{events: events}
}

// apply resolves ev's block timestamp (if not already set by the
// past-events path) and applies it to the orderbook.
func (u *Updater) apply(ctx context.Context, ev types.Event) error {
	if ev.BlockTimestamp == 0 {
		ts, err := u.cache.BlockTimestamp(ctx, ev.BlockHash)
		if err != nil {
			return err
		}
		ev.BlockTimestamp = ts
	}
	return u.ob.ApplyEvent(ev)
}
