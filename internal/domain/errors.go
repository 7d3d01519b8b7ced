// Package domain holds the types and error sentinels shared across the
// driver's components — the narrow interfaces C2, C4, and C7 all
// implement or wrap, and the error kinds of §7 that cross package
// boundaries.
package domain

import "errors"

// Error kinds from §7. Each is a sentinel so callers can match with
// errors.Is regardless of which component raised it.
var (
	// ErrNotReady is returned by the event updater (C4) when a snapshot is
	// requested before the initial past-events replay has completed.
	ErrNotReady = errors.New("domain: orderbook not ready")

	// ErrCorruptPage is returned by the codec (C1) when page bytes are not
	// a multiple of the record width, or a record names the same token as
	// both buy and sell side.
	ErrCorruptPage = errors.New("domain: corrupt auction data page")

	// ErrDuplicateOrder is returned by the orderbook (C3) when an
	// OrderPlacement names an (owner, id) pair that already exists.
	ErrDuplicateOrder = errors.New("domain: duplicate order")

	// ErrDuplicateToken is returned by the orderbook (C3) when a
	// TokenListing names a token id already listed at a different address.
	ErrDuplicateToken = errors.New("domain: duplicate token listing")

	// ErrStreamEnded is returned by the event updater (C4) when the live
	// event subscription terminates.
	ErrStreamEnded = errors.New("domain: event stream ended")

	// ErrReorgBeyondHistory reports a reorg whose fork point lies before
	// the oldest retained event. The orderbook (C3) retains its full
	// history, so it never returns this error.
	ErrReorgBeyondHistory = errors.New("domain: reorg beyond retained history")

	// ErrUserOverflow is returned by the paginated reader (C2) when a
	// cursor offset would exceed the uint16 range the contract accepts.
	ErrUserOverflow = errors.New("domain: user order offset overflows uint16")

	// ErrRPC wraps a transient network error from the ContractReader or
	// Clock. It is surfaced unchanged to most callers; the event updater
	// (C4) treats any error, including this one, as fatal.
	ErrRPC = errors.New("domain: rpc error")
)
