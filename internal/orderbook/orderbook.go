// Package orderbook implements the orderbook state engine (§4.3, C3): a
// pure in-memory state machine that replays a totally ordered event log
// into token listings, orders, and balances, and can materialize the
// snapshot active at any batch index. A detected reorg truncates the log
// back to the fork point and replays forward rather than patching state
// in place.
package orderbook

import (
	"fmt"
	"sort"
	"sync"

	"github.com/stablex/driver/internal/domain"
	"github.com/stablex/driver/pkg/types"
)

// BatchDuration is the fixed wall-clock window per batch (§4.3, explicit
// constant).
const BatchDuration = 300

// CurrentBatch derives the batch index in effect at a given block
// timestamp.
func CurrentBatch(blockTimestamp uint64) types.BatchIndex {
	return types.BatchIndex(blockTimestamp / BatchDuration)
}

type pendingEntry struct {
	batch  types.BatchIndex
	amount types.Amount
}

type eventKey struct {
	hash     [32]byte
	logIndex uint64
}

// Orderbook is the C3 state engine. All reads and writes go through a
// single RWMutex: the updater (C4) holds the write half for the whole
// duration of applying one event; readers (the scheduler and the shadow
// reader) take the read half for GetAuctionData. Per §5, the lock is
// never held across I/O — every method here is pure CPU work over the
// in-memory maps.
type Orderbook struct {
	mu sync.RWMutex

	events  []types.Event
	applied map[eventKey]struct{}

	tokens map[types.TokenID]types.Address
	orders map[types.OrderKey]*types.Order

	liquid             map[types.BalanceKey]types.Amount
	pendingDeposits    map[types.BalanceKey][]pendingEntry
	pendingWithdrawals map[types.BalanceKey][]pendingEntry

	blockHashAt    map[uint64][32]byte
	maxBlockNumber uint64
	haveBlock      bool
}

// New builds an empty orderbook.
func New() *Orderbook {
	return &Orderbook{
		applied:            make(map[eventKey]struct{}),
		tokens:             make(map[types.TokenID]types.Address),
		orders:             make(map[types.OrderKey]*types.Order),
		liquid:             make(map[types.BalanceKey]types.Amount),
		pendingDeposits:    make(map[types.BalanceKey][]pendingEntry),
		pendingWithdrawals: make(map[types.BalanceKey][]pendingEntry),
		blockHashAt:        make(map[uint64][32]byte),
	}
}

// ApplyEvent applies one event to the state (§4.3). It is idempotent
// under redelivery of the identical (block_hash, log_index) pair, and
// truncates-and-reapplies on reorg detection.
func (ob *Orderbook) ApplyEvent(ev types.Event) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	key := eventKey{hash: ev.BlockHash, logIndex: ev.LogIndex}
	if _, ok := ob.applied[key]; ok {
		return nil
	}

	if ob.haveBlock && ev.BlockNumber < ob.maxBlockNumber {
		if prevHash, ok := ob.blockHashAt[ev.BlockNumber]; ok && prevHash != ev.BlockHash {
			if err := ob.truncateAndReapply(ev.BlockNumber); err != nil {
				return err
			}
		}
	}

	if err := ob.applyEffect(ev); err != nil {
		return err
	}

	ob.events = append(ob.events, ev)
	ob.applied[key] = struct{}{}
	ob.blockHashAt[ev.BlockNumber] = ev.BlockHash
	if !ob.haveBlock || ev.BlockNumber > ob.maxBlockNumber {
		ob.maxBlockNumber = ev.BlockNumber
		ob.haveBlock = true
	}
	return nil
}

// truncateAndReapply drops every retained event at or after forkPoint
// and rebuilds state from the remaining prefix, per §4.3's reorg clause.
// Because this engine retains its full event history for the lifetime of
// the process (§6: "no persisted state... all durability comes from the
// chain" — there is nothing else to fall back to), forkPoint can never
// fall before the oldest retained event, so ErrReorgBeyondHistory is
// unreachable here; it is kept in the error taxonomy (§7) for an
// implementation that prunes history.
func (ob *Orderbook) truncateAndReapply(forkPoint uint64) error {
	kept := ob.events[:0:0]
	for _, e := range ob.events {
		if e.BlockNumber < forkPoint {
			kept = append(kept, e)
		}
	}

	ob.events = nil
	ob.applied = make(map[eventKey]struct{})
	ob.tokens = make(map[types.TokenID]types.Address)
	ob.orders = make(map[types.OrderKey]*types.Order)
	ob.liquid = make(map[types.BalanceKey]types.Amount)
	ob.pendingDeposits = make(map[types.BalanceKey][]pendingEntry)
	ob.pendingWithdrawals = make(map[types.BalanceKey][]pendingEntry)
	ob.blockHashAt = make(map[uint64][32]byte)
	ob.maxBlockNumber = 0
	ob.haveBlock = false

	for _, e := range kept {
		if err := ob.applyEffect(e); err != nil {
			return fmt.Errorf("reorg replay: %w", err)
		}
		ob.events = append(ob.events, e)
		ob.applied[eventKey{hash: e.BlockHash, logIndex: e.LogIndex}] = struct{}{}
		ob.blockHashAt[e.BlockNumber] = e.BlockHash
		if !ob.haveBlock || e.BlockNumber > ob.maxBlockNumber {
			ob.maxBlockNumber = e.BlockNumber
			ob.haveBlock = true
		}
	}
	return nil
}

func (ob *Orderbook) applyEffect(ev types.Event) error {
	d := ev.Data
	switch d.Kind {
	case types.EventTokenListing:
		if addr, ok := ob.tokens[d.TokenID]; ok && addr != d.TokenAddress {
			return fmt.Errorf("%w: token %d", domain.ErrDuplicateToken, d.TokenID)
		}
		ob.tokens[d.TokenID] = d.TokenAddress

	case types.EventOrderPlacement:
		key := types.OrderKey{Owner: d.Owner, ID: d.OrderID}
		if _, ok := ob.orders[key]; ok {
			return fmt.Errorf("%w: owner=%x id=%d", domain.ErrDuplicateOrder, d.Owner, d.OrderID)
		}
		ob.orders[key] = &types.Order{
			ID:               d.OrderID,
			Owner:            d.Owner,
			BuyToken:         d.BuyToken,
			SellToken:        d.SellToken,
			PriceNumerator:   d.Numerator,
			PriceDenominator: d.Denominator,
			RemainingAmount:  d.Denominator,
			ValidFrom:        d.ValidFrom,
			ValidUntil:       d.ValidUntil,
		}

	case types.EventOrderCancellation:
		key := types.OrderKey{Owner: d.Owner, ID: d.OrderID}
		if o, ok := ob.orders[key]; ok {
			cb := CurrentBatch(ev.BlockTimestamp)
			if cb == 0 {
				o.ValidUntil = 0
			} else {
				o.ValidUntil = cb - 1
			}
		}

	case types.EventOrderDeletion:
		delete(ob.orders, types.OrderKey{Owner: d.Owner, ID: d.OrderID})

	case types.EventDeposit:
		key := types.BalanceKey{Owner: d.Owner, Token: d.Token}
		ob.pendingDeposits[key] = append(ob.pendingDeposits[key], pendingEntry{batch: d.BatchID, amount: d.Amount})

	case types.EventWithdrawRequest:
		key := types.BalanceKey{Owner: d.Owner, Token: d.Token}
		ob.pendingWithdrawals[key] = append(ob.pendingWithdrawals[key], pendingEntry{batch: d.BatchID, amount: d.Amount})

	case types.EventWithdraw:
		key := types.BalanceKey{Owner: d.Owner, Token: d.Token}
		bal := ob.liquid[key]
		debit := d.Amount
		if bal.Cmp(debit) < 0 {
			debit = bal
		}
		ob.liquid[key] = bal.Sub(debit)

		pending := ob.pendingWithdrawals[key]
		for i, p := range pending {
			if p.amount.Cmp(d.Amount) == 0 {
				ob.pendingWithdrawals[key] = append(pending[:i], pending[i+1:]...)
				break
			}
		}

	case types.EventSolutionSubmission:
		for _, tr := range d.Trades {
			okey := types.OrderKey{Owner: tr.Owner, ID: tr.OrderID}
			o, ok := ob.orders[okey]
			if !ok {
				continue
			}
			o.RemainingAmount = o.RemainingAmount.Sub(tr.ExecSell)

			sellKey := types.BalanceKey{Owner: tr.Owner, Token: o.SellToken}
			buyKey := types.BalanceKey{Owner: tr.Owner, Token: o.BuyToken}
			ob.liquid[sellKey] = ob.liquid[sellKey].Sub(tr.ExecSell)
			ob.liquid[buyKey] = ob.liquid[buyKey].Add(tr.ExecBuy)
		}
	}
	return nil
}

// GetAuctionData materializes the snapshot valid at batch (§4.3): the
// balance formula plus every order active at batch, sorted by
// (owner, id).
func (ob *Orderbook) GetAuctionData(batch types.BatchIndex) types.AuctionData {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	balanceKeys := make(map[types.BalanceKey]struct{})
	for k := range ob.liquid {
		balanceKeys[k] = struct{}{}
	}
	for k := range ob.pendingDeposits {
		balanceKeys[k] = struct{}{}
	}
	for k := range ob.pendingWithdrawals {
		balanceKeys[k] = struct{}{}
	}

	balances := make(map[types.BalanceKey]types.Amount, len(balanceKeys))
	for k := range balanceKeys {
		bal := ob.liquid[k]
		for _, dep := range ob.pendingDeposits[k] {
			if dep.batch < batch {
				bal = bal.Add(dep.amount)
			}
		}
		for _, w := range ob.pendingWithdrawals[k] {
			if w.batch <= batch {
				if bal.Cmp(w.amount) >= 0 {
					bal = bal.Sub(w.amount)
				} else {
					bal = types.Zero
				}
			}
		}
		balances[k] = bal
	}

	keys := make([]types.OrderKey, 0, len(ob.orders))
	for k := range ob.orders {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	orders := make([]types.Order, 0, len(keys))
	for _, k := range keys {
		o := ob.orders[k]
		if o.ActiveAt(batch) {
			orders = append(orders, *o)
		}
	}

	return types.AuctionData{Balances: balances, Orders: orders}
}

// TokenListing returns the listed address for id, if any.
func (ob *Orderbook) TokenListing(id types.TokenID) (types.Address, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	addr, ok := ob.tokens[id]
	return addr, ok
}
