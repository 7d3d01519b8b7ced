// Package types defines the shared data model for the batch-auction
// settlement driver — tokens, addresses, orders, balances, and solutions.
//
// This package is the common vocabulary for the driver: every other
// package (codec, reader, orderbook, matcher, filter) imports it. It has
// no dependencies on internal packages, so it can be imported by any layer.
package types

// TokenID identifies a listed token. Token 0 is reserved as the fee token.
type TokenID uint16

// FeeTokenID is the distinguished fee token; its price is always pinned to
// BasePrice in a non-trivial solution.
const FeeTokenID TokenID = 0

// AddressLength is the byte width of an Address (an EVM account or
// contract address).
const AddressLength = 20

// Address is an opaque 20-byte identifier for a user or contract.
type Address [AddressLength]byte

// Less orders addresses lexicographically so orders can be sorted
// deterministically by (owner, order id) per §4.3.
func (a Address) Less(b Address) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// BatchIndex is a batch number — one batch clears per BatchDuration of
// wall-clock time.
type BatchIndex uint32

// OrderID is unique per owner, not globally.
type OrderID uint16

// OrderKey identifies an order within the orderbook state.
type OrderKey struct {
	Owner Address
	ID    OrderID
}

// Less orders keys by (owner, id) as required by §4.3's sort order.
func (k OrderKey) Less(other OrderKey) bool {
	if k.Owner != other.Owner {
		return k.Owner.Less(other.Owner)
	}
	return k.ID < other.ID
}

// Order is a single limit order on the book.
//
// The limit ratio is: sell_in >= buy_in * PriceDenominator/PriceNumerator.
// RemainingAmount tracks partial fills across batches and never exceeds
// PriceDenominator (the order's lifetime sell budget, §3 invariants).
type Order struct {
	ID        OrderID
	Owner     Address
	BuyToken  TokenID
	SellToken TokenID

	PriceNumerator   Amount // buy amount
	PriceDenominator Amount // sell amount

	RemainingAmount Amount

	ValidFrom  BatchIndex // inclusive
	ValidUntil BatchIndex // inclusive
}

// ActiveAt reports whether the order is active in batch b per §3: within
// its validity window, has a remaining amount, and that remaining amount
// is at least one clearing unit (its numerator) so it is fillable at all.
func (o Order) ActiveAt(b BatchIndex) bool {
	if b < o.ValidFrom || b > o.ValidUntil {
		return false
	}
	if o.RemainingAmount.IsZero() {
		return false
	}
	return o.RemainingAmount.Cmp(o.PriceNumerator) >= 0
}

// BalanceKey identifies a user's balance of one token.
type BalanceKey struct {
	Owner Address
	Token TokenID
}

// TokenListing maps a token id to the ERC-20 contract address that backs
// it. Token 0's listing is the fee token, set at contract genesis.
type TokenListing struct {
	ID      TokenID
	Address Address
}

// Fee is the per-trade fee applied by the matcher (§4.6). Only
// {Token: FeeTokenID, Ratio: 1/1000} is used in practice, but the type is
// general.
type Fee struct {
	Token TokenID
	Ratio float64
}

// Denominator converts the fee ratio to the integer divisor used
// throughout the matcher's arithmetic (round(1/ratio)), per §9: "never
// propagate the float past config parsing."
func (f Fee) Denominator() uint64 {
	if f.Ratio <= 0 {
		return 1
	}
	return uint64(1.0/f.Ratio + 0.5)
}

// Execution is one order's fill within a Solution.
type Execution struct {
	Owner    Address
	OrderID  OrderID
	ExecBuy  Amount
	ExecSell Amount
}

// Solution is the matcher's (or trivial) output: a price vector plus a
// set of executed trades.
type Solution struct {
	Prices     map[TokenID]Amount
	Executions []Execution
}

// TrivialSolution returns the always-feasible empty solution.
func TrivialSolution() Solution {
	return Solution{Prices: map[TokenID]Amount{}, Executions: nil}
}

// IsTrivial reports whether s has no prices and no executions.
func (s Solution) IsTrivial() bool {
	return len(s.Prices) == 0 && len(s.Executions) == 0
}

// AuctionData is the materialized snapshot a batch's matcher consumes:
// balances and the set of orders active in that batch.
type AuctionData struct {
	Balances map[BalanceKey]Amount
	Orders   []Order
}
